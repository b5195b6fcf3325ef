package joystore

import (
	"errors"
	"fmt"
)

// Lifecycle violations. These are returned synchronously when an
// operation is attempted in the wrong state; they are fatal to the
// calling operation but never to the process.
var (
	ErrAlreadyStarted = errors.New("database already started")
	ErrNotStarted     = errors.New("database not started")
	ErrClosed         = errors.New("database is closed")
)

// Bootstrap stages that can fail while creating a missing backing file
const (
	InitStageCreate     = "create"
	InitStagePermission = "permission"
	InitStageSeed       = "seed"
)

// InitError reports which bootstrap stage failed while creating the
// backing file for a database whose path did not exist yet.
type InitError struct {
	Stage string // "create", "permission" or "seed"
	Path  string // filesystem path of the backing file
	Err   error  // underlying cause
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize database file %s (stage %s): %v", e.Path, e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// AccessError reports a backing file that exists but cannot be opened
// for the given operation. Read and write access are checked
// independently so the two failures stay distinguishable.
type AccessError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("database file %s is not %sable: %v", e.Path, e.Op, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
