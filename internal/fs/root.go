package fs

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/agentic-research/sqldirfs/internal/logging"
	"github.com/agentic-research/sqldirfs/internal/namespace"
	"github.com/winfsp/cgofuse/fuse"
	"golang.org/x/sys/unix"
)

// SQLDirFS implements the FUSE interface from cgofuse on top of a
// namespace.Namespace. Every mutating operation fails with EROFS.
type SQLDirFS struct {
	fuse.FileSystemBase
	NS        namespace.Namespace
	log       *logging.Logger
	mountTime fuse.Timespec
	uid, gid  uint32

	mu     sync.Mutex
	dirs   map[uint64][]string
	nextFh uint64
}

func NewSQLDirFS(ns namespace.Namespace, uid, gid uint32, log *logging.Logger) *SQLDirFS {
	if log == nil {
		log = logging.Discard()
	}
	return &SQLDirFS{
		NS:        ns,
		log:       log,
		mountTime: fuse.NewTimespec(time.Now()),
		uid:       uid,
		gid:       gid,
		dirs:      make(map[uint64][]string),
		nextFh:    1,
	}
}

// errno maps namespace errors onto negative FUSE error codes.
func errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, namespace.ErrNotFound):
		return -fuse.ENOENT
	case errors.Is(err, namespace.ErrIsDir):
		return -fuse.EISDIR
	case errors.Is(err, namespace.ErrNotDir):
		return -fuse.ENOTDIR
	case errors.Is(err, namespace.ErrPermission):
		return -fuse.EACCES
	case errors.Is(err, namespace.ErrReadOnly):
		return -fuse.EROFS
	case errors.Is(err, namespace.ErrInvalid):
		return -fuse.EINVAL
	default:
		return -fuse.EIO
	}
}

// openFlags converts FUSE open flags to the os package's values.
func openFlags(flags int) int {
	var out int
	switch flags & fuse.O_ACCMODE {
	case fuse.O_WRONLY:
		out = os.O_WRONLY
	case fuse.O_RDWR:
		out = os.O_RDWR
	}
	if flags&fuse.O_APPEND != 0 {
		out |= os.O_APPEND
	}
	if flags&fuse.O_CREAT != 0 {
		out |= os.O_CREATE
	}
	if flags&fuse.O_TRUNC != 0 {
		out |= os.O_TRUNC
	}
	return out
}

func (fs *SQLDirFS) fillStat(entry *namespace.Entry, stat *fuse.Stat_t) {
	stat.Atim = fs.mountTime
	stat.Mtim = fs.mountTime
	stat.Ctim = fs.mountTime
	stat.Birthtim = fs.mountTime
	stat.Uid = fs.uid
	stat.Gid = fs.gid

	if entry.IsDir() {
		stat.Mode = fuse.S_IFDIR | 0o555
		stat.Nlink = 2
		return
	}
	stat.Mode = fuse.S_IFREG | 0o444
	stat.Nlink = 1
	stat.Size = entry.Size
}

// Getattr (Stat)
func (fs *SQLDirFS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	entry, err := fs.NS.Stat(context.Background(), path)
	if err != nil {
		return errno(err)
	}
	fs.fillStat(entry, stat)
	return 0
}

// Access: existence is checked; write access is never granted.
func (fs *SQLDirFS) Access(path string, mask uint32) int {
	if _, err := fs.NS.Stat(context.Background(), path); err != nil {
		return errno(err)
	}
	if mask&unix.W_OK != 0 {
		return errno(namespace.ErrReadOnly)
	}
	return 0
}

// Opendir snapshots the listing so a Readdir resumed at an offset sees
// the same entries.
func (fs *SQLDirFS) Opendir(path string) (int, uint64) {
	ctx := context.Background()
	entry, err := fs.NS.Stat(ctx, path)
	if err != nil {
		return errno(err), ^uint64(0)
	}
	if !entry.IsDir() {
		return -fuse.ENOTDIR, ^uint64(0)
	}
	children, err := fs.NS.ListChildren(ctx, path)
	if err != nil {
		return errno(err), ^uint64(0)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fh := fs.nextFh
	fs.nextFh++
	fs.dirs[fh] = append([]string{".", ".."}, children...)
	return 0, fh
}

// Readdir (List directory)
func (fs *SQLDirFS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	fs.mu.Lock()
	names, ok := fs.dirs[fh]
	fs.mu.Unlock()

	if !ok {
		children, err := fs.NS.ListChildren(context.Background(), path)
		if err != nil {
			return errno(err)
		}
		names = append([]string{".", ".."}, children...)
	}

	for i := ofst; i < int64(len(names)); i++ {
		if !fill(names[i], nil, i+1) {
			break
		}
	}
	return 0
}

func (fs *SQLDirFS) Releasedir(path string, fh uint64) int {
	fs.mu.Lock()
	delete(fs.dirs, fh)
	fs.mu.Unlock()
	return 0
}

// Open admits read-only opens of value files.
func (fs *SQLDirFS) Open(path string, flags int) (int, uint64) {
	entry, err := fs.NS.OpenForRead(context.Background(), path, openFlags(flags))
	if err != nil {
		fs.log.Debug("open %s: %v", path, err)
		return errno(err), ^uint64(0)
	}
	if entry.IsDir() {
		return -fuse.EISDIR, ^uint64(0)
	}
	return 0, 0
}

// Read (Cat file). Content is re-queried on every call.
func (fs *SQLDirFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	data, err := fs.NS.ReadRange(context.Background(), path, ofst, len(buff))
	if err != nil {
		return errno(err)
	}
	return copy(buff, data)
}

func (fs *SQLDirFS) Release(path string, fh uint64) int {
	return 0
}

func (fs *SQLDirFS) Statfs(path string, stat *fuse.Statfs_t) int {
	*stat = fuse.Statfs_t{Bsize: 4096, Frsize: 4096, Namemax: 255}
	return 0
}

// Mutations.

func (fs *SQLDirFS) Mkdir(path string, mode uint32) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Mknod(path string, mode uint32, dev uint64) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Create(path string, flags int, mode uint32) (int, uint64) {
	return errno(namespace.ErrReadOnly), ^uint64(0)
}

func (fs *SQLDirFS) Unlink(path string) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Rmdir(path string) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Rename(oldpath string, newpath string) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Symlink(target string, newpath string) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Link(oldpath string, newpath string) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Truncate(path string, size int64, fh uint64) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Chmod(path string, mode uint32) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Chown(path string, uid uint32, gid uint32) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Utimens(path string, tmsp []fuse.Timespec) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Setxattr(path string, name string, value []byte, flags int) int {
	return errno(namespace.ErrReadOnly)
}

func (fs *SQLDirFS) Removexattr(path string, name string) int {
	return errno(namespace.ErrReadOnly)
}

var _ fuse.FileSystemInterface = (*SQLDirFS)(nil)
