package namespace

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: some level of the path failed validation.
	ErrNotFound = errors.New("no such entry")
	// ErrIsDir: a content operation was applied to a directory.
	ErrIsDir = errors.New("is a directory")
	// ErrNotDir: a listing was requested on a value file.
	ErrNotDir = errors.New("not a directory")
	// ErrPermission: an open requested write access.
	ErrPermission = errors.New("permission denied")
	// ErrReadOnly: a mutating operation was attempted.
	ErrReadOnly = errors.New("read-only filesystem")
	// ErrInvalid: a malformed argument such as a negative offset.
	ErrInvalid = errors.New("invalid argument")
)

// PathError records the operation and path that failed.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}
