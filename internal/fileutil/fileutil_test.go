package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.json")

	ok, err := Exists(path)
	assert.NilError(t, err)
	assert.Assert(t, !ok, "expected missing file to report false")

	assert.NilError(t, os.WriteFile(path, []byte("{}"), 0644))

	ok, err = Exists(path)
	assert.NilError(t, err)
	assert.Assert(t, ok, "expected existing file to report true")
}

func TestReadableWritable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	assert.NilError(t, os.WriteFile(path, []byte("{}"), 0600))

	assert.NilError(t, Readable(path))
	assert.NilError(t, Writable(path))
}

func TestReadableMissingFile(t *testing.T) {
	err := Readable(filepath.Join(t.TempDir(), "nope.json"))
	assert.Assert(t, err != nil, "expected error for missing file")
}

func TestWritableReadOnlyFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "readonly.json")
	assert.NilError(t, os.WriteFile(path, []byte("{}"), 0400))

	assert.NilError(t, Readable(path))
	assert.Assert(t, Writable(path) != nil, "expected write check to fail on read-only file")
}
