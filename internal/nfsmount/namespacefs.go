// Package nfsmount provides an NFS-based mount backend for sqldirfs.
// It adapts namespace.Namespace to billy.Filesystem for use with
// willscott/go-nfs, as an alternative to the FUSE mount layer.
package nfsmount

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/agentic-research/sqldirfs/internal/logging"
	"github.com/agentic-research/sqldirfs/internal/namespace"
)

// NamespaceFS adapts a namespace.Namespace to billy.Filesystem.
type NamespaceFS struct {
	ns        namespace.Namespace
	log       *logging.Logger
	mountTime time.Time
}

// NewNamespaceFS creates a read-only billy.Filesystem over ns.
func NewNamespaceFS(ns namespace.Namespace, log *logging.Logger) *NamespaceFS {
	if log == nil {
		log = logging.Discard()
	}
	return &NamespaceFS{ns: ns, log: log, mountTime: time.Now()}
}

// --- billy.Basic ---

func (fs *NamespaceFS) Create(filename string) (billy.File, error) {
	return nil, osError("create", cleanPath(filename), namespace.ErrReadOnly)
}

func (fs *NamespaceFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *NamespaceFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)

	entry, err := fs.ns.OpenForRead(context.Background(), filename, flag)
	if err != nil {
		return nil, osError("open", filename, err)
	}
	if entry.IsDir() {
		return nil, osError("open", filename, namespace.ErrIsDir)
	}

	return &namespaceFile{
		path: filename,
		size: entry.Size,
		ns:   fs.ns,
	}, nil
}

func (fs *NamespaceFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *NamespaceFS) Rename(oldpath, newpath string) error {
	return osError("rename", cleanPath(oldpath), namespace.ErrReadOnly)
}

func (fs *NamespaceFS) Remove(filename string) error {
	return osError("remove", cleanPath(filename), namespace.ErrReadOnly)
}

func (fs *NamespaceFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *NamespaceFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

// ReadDir stats every child so NFS READDIRPLUS gets sizes. A child that
// disappears between the listing and its stat is skipped. Listing a field
// directory therefore materializes the content of every value in it.
func (fs *NamespaceFS) ReadDir(path string) ([]os.FileInfo, error) {
	path = cleanPath(path)
	ctx := context.Background()

	entry, err := fs.ns.Stat(ctx, path)
	if err != nil {
		return nil, osError("readdir", path, err)
	}
	if !entry.IsDir() {
		return nil, osError("readdir", path, namespace.ErrNotDir)
	}

	children, err := fs.ns.ListChildren(ctx, path)
	if err != nil {
		return nil, osError("readdir", path, err)
	}

	infos := make([]os.FileInfo, 0, len(children))
	for _, name := range children {
		child, err := fs.ns.Stat(ctx, entry.Path.Child(name).String())
		if err != nil {
			fs.log.Debug("readdir %s: skipping %q: %v", path, name, err)
			continue
		}
		infos = append(infos, fs.fileInfo(child))
	}
	return infos, nil
}

func (fs *NamespaceFS) MkdirAll(filename string, perm os.FileMode) error {
	return osError("mkdir", cleanPath(filename), namespace.ErrReadOnly)
}

// --- billy.Symlink ---

func (fs *NamespaceFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)

	entry, err := fs.ns.Stat(context.Background(), filename)
	if err != nil {
		return nil, osError("lstat", filename, err)
	}
	return fs.fileInfo(entry), nil
}

func (fs *NamespaceFS) Symlink(target, link string) error {
	return osError("symlink", cleanPath(link), namespace.ErrReadOnly)
}

func (fs *NamespaceFS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *NamespaceFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *NamespaceFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *NamespaceFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	path = filepath.Clean("/" + path)
	if path == "." {
		return "/"
	}
	return path
}

// osError wraps namespace errors in the os errors go-nfs translates to
// NFS status codes. Read-only refusals stay namespace.ErrReadOnly and also
// match os.ErrPermission.
func osError(op, path string, err error) error {
	var mapped error
	switch {
	case errors.Is(err, namespace.ErrNotFound):
		mapped = os.ErrNotExist
	case errors.Is(err, namespace.ErrPermission):
		mapped = os.ErrPermission
	case errors.Is(err, namespace.ErrReadOnly):
		mapped = readOnlyError{}
	default:
		mapped = err
	}
	return &os.PathError{Op: op, Path: path, Err: mapped}
}

// readOnlyError is namespace.ErrReadOnly that also reports os.ErrPermission.
type readOnlyError struct{}

func (readOnlyError) Error() string { return namespace.ErrReadOnly.Error() }

func (readOnlyError) Is(target error) bool {
	return target == namespace.ErrReadOnly || target == os.ErrPermission
}

func (fs *NamespaceFS) fileInfo(e *namespace.Entry) os.FileInfo {
	return &staticFileInfo{
		name:    e.Name(),
		size:    e.Size,
		mode:    e.Mode(),
		modTime: fs.mountTime,
	}
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*NamespaceFS)(nil)
	_ billy.Capable    = (*NamespaceFS)(nil)
	_ billy.File       = (*namespaceFile)(nil)
)
