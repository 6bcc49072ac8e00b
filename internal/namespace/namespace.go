// Package namespace maps filesystem paths onto a relational database:
// tables are top-level directories, columns are their subdirectories,
// distinct column values are entries below those, and each value is a
// read-only file holding the matching rows.
//
// Every operation re-derives its answer from the live database. There is
// no cache and no consistency across separate calls.
package namespace

import (
	"context"
	"io/fs"
	"os"
)

// Kind classifies what a path denotes.
type Kind int

const (
	KindNotFound Kind = iota
	KindRoot
	KindTable
	KindField
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindTable:
		return "table"
	case KindField:
		return "field"
	case KindValue:
		return "value"
	default:
		return "not-found"
	}
}

// Entry is the result of a successful Stat.
type Entry struct {
	Path Path
	Kind Kind
	// Size is the exact content length for value files, 0 for directories.
	Size int64
}

func (e *Entry) IsDir() bool {
	return e.Kind != KindValue
}

// Mode is r-x for directories and r-- for files, for every principal.
func (e *Entry) Mode() fs.FileMode {
	if e.IsDir() {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

func (e *Entry) Name() string {
	return e.Path.Name()
}

// Namespace is what the FUSE and NFS hosts drive.
type Namespace interface {
	// Stat classifies path; unknown entries yield ErrNotFound.
	Stat(ctx context.Context, path string) (*Entry, error)
	// ListChildren returns child names. Invalid paths list as empty.
	ListChildren(ctx context.Context, path string) ([]string, error)
	// OpenForRead rejects write intent with ErrPermission before
	// looking at the path, then requires the path to exist.
	OpenForRead(ctx context.Context, path string, flags int) (*Entry, error)
	// ReadRange returns content[offset:offset+length], clipped.
	ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error)
}

// WriteIntent reports whether open flags ask for anything but reading.
func WriteIntent(flags int) bool {
	const write = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC
	return flags&write != 0
}
