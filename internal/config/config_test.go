package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	assert.NilError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
path: /tmp/demo.json
autosave_ms: 500
seq_url: http://localhost:5341
tables:
  - users
  - sessions
`)

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, "/tmp/demo.json", cfg.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveInterval())
	assert.Equal(t, "http://localhost:5341", cfg.SeqURL)
	assert.DeepEqual(t, cfg.Tables, []string{"users", "sessions"})
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `path: store.json`)

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, "store.json", cfg.Path)
	assert.Equal(t, Default().AutosaveMs, cfg.AutosaveMs)
	assert.Equal(t, "", cfg.SeqURL)
}

func TestLoadRejectsNegativeAutosave(t *testing.T) {
	path := writeConfig(t, `
path: store.json
autosave_ms: -1
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "autosave_ms")
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	path := writeConfig(t, `path: ""`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "path")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Assert(t, err != nil)
}
