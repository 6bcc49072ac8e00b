package nfsmount

import (
	"context"
	"io"

	"github.com/agentic-research/sqldirfs/internal/namespace"
)

// namespaceFile implements billy.File over namespace.ReadRange. Every read
// re-queries the database; size is the value reported when the file was
// opened. Write and Truncate return errors.
type namespaceFile struct {
	path string
	size int64
	ns   namespace.Namespace
	pos  int64
}

func (f *namespaceFile) Name() string { return f.path }

func (f *namespaceFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *namespaceFile) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := f.ns.ReadRange(context.Background(), f.path, off, len(p))
	if err != nil {
		return 0, osError("read", f.path, err)
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *namespaceFile) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = f.size + offset
	}
	if newPos < 0 {
		newPos = 0
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *namespaceFile) Write([]byte) (int, error) {
	return 0, osError("write", f.path, namespace.ErrReadOnly)
}

func (f *namespaceFile) Truncate(int64) error {
	return osError("truncate", f.path, namespace.ErrReadOnly)
}

func (f *namespaceFile) Lock() error   { return nil }
func (f *namespaceFile) Unlock() error { return nil }
func (f *namespaceFile) Close() error  { return nil }
