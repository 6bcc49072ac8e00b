package nfsmount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/sqldirfs/internal/catalog"
	"github.com/agentic-research/sqldirfs/internal/content"
	"github.com/agentic-research/sqldirfs/internal/namespace"
	"github.com/agentic-research/sqldirfs/internal/testutil"
)

func newTestFS(t *testing.T) (*NamespaceFS, string) {
	t.Helper()
	db := testutil.NewShopDB(t)
	c, err := catalog.Open(context.Background(), catalog.Config{Driver: "sqlite", Database: db}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ns := namespace.Serialized(namespace.NewResolver(c, content.FromCatalog(c), nil))
	return NewNamespaceFS(ns, nil), db
}

func names(infos []os.FileInfo) []string {
	out := make([]string, len(infos))
	for i, fi := range infos {
		out[i] = fi.Name()
	}
	return out
}

func TestStatRoot(t *testing.T) {
	nfs, _ := newTestFS(t)

	info, err := nfs.Stat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "/", info.Name())
	assert.Equal(t, os.ModeDir|0o555, info.Mode())

	info, err = nfs.Stat("")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStatFile(t *testing.T) {
	nfs, _ := newTestFS(t)

	info, err := nfs.Stat("/users/status/active")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, "active", info.Name())
	assert.Equal(t, os.FileMode(0o444), info.Mode())
	assert.Positive(t, info.Size())
}

func TestStatDir(t *testing.T) {
	nfs, _ := newTestFS(t)

	for _, path := range []string{"/users", "users", "/users/status"} {
		info, err := nfs.Stat(path)
		require.NoError(t, err, path)
		assert.True(t, info.IsDir(), path)
	}
}

func TestStatNotFound(t *testing.T) {
	nfs, _ := newTestFS(t)

	for _, path := range []string{"/nonexistent", "/users/nope", "/users/status/gone", "/users/status/active/x"} {
		_, err := nfs.Stat(path)
		assert.True(t, os.IsNotExist(err), path)
	}
}

func TestReadDirRoot(t *testing.T) {
	nfs, _ := newTestFS(t)

	entries, err := nfs.ReadDir("/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users", "orders"}, names(entries))
	for _, e := range entries {
		assert.True(t, e.IsDir())
	}
}

func TestReadDirValues(t *testing.T) {
	nfs, _ := newTestFS(t)

	entries, err := nfs.ReadDir("/orders/total")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"9.5", "20.25"}, names(entries))
	for _, e := range entries {
		assert.False(t, e.IsDir())
		assert.Positive(t, e.Size())
	}
}

func TestReadDirErrors(t *testing.T) {
	nfs, _ := newTestFS(t)

	_, err := nfs.ReadDir("/nope")
	assert.True(t, os.IsNotExist(err))

	_, err = nfs.ReadDir("/users/status/active")
	require.Error(t, err)
	assert.ErrorIs(t, err, namespace.ErrNotDir)
}

func TestOpenAndRead(t *testing.T) {
	nfs, _ := newTestFS(t)

	f, err := nfs.Open("/users/status/active")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	require.NoError(t, err)

	info, err := nfs.Stat("/users/status/active")
	require.NoError(t, err)
	assert.Equal(t, info.Size(), int64(len(data)))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	assert.Len(t, rows, 2)
}

func TestReadAt(t *testing.T) {
	nfs, _ := newTestFS(t)

	f, err := nfs.Open("/users/status/active")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "[\n   ", string(buf[:n]))

	n, err = f.ReadAt(buf, 1<<20)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestSeek(t *testing.T) {
	nfs, _ := newTestFS(t)

	f, err := nfs.Open("/users/status/active")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	pos, err := f.Seek(2, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)

	buf := make([]byte, 5)
	n, _ := f.Read(buf)
	require.Equal(t, 5, n)
	assert.Equal(t, "    {", string(buf[:n]))

	end, err := f.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	n, err = f.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
	assert.Positive(t, end)
}

func TestOpenErrors(t *testing.T) {
	nfs, _ := newTestFS(t)

	_, err := nfs.Open("/nonexistent")
	assert.True(t, os.IsNotExist(err))

	_, err = nfs.Open("/users")
	assert.ErrorIs(t, err, namespace.ErrIsDir)

	_, err = nfs.OpenFile("/users/status/active", os.O_RDWR, 0)
	assert.True(t, os.IsPermission(err))

	_, err = nfs.OpenFile("/nope/nope/nope", os.O_WRONLY|os.O_CREATE, 0o644)
	assert.True(t, os.IsPermission(err))
}

func TestReadOnly(t *testing.T) {
	nfs, _ := newTestFS(t)

	f, err := nfs.Open("/users/status/active")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	_, createErr := nfs.Create("newfile.txt")
	_, writeErr := f.Write([]byte("x"))

	tests := []struct {
		name string
		err  error
	}{
		{"create", createErr},
		{"mkdir", nfs.MkdirAll("/newdir", 0o755)},
		{"remove", nfs.Remove("/users/status/active")},
		{"rename", nfs.Rename("/users", "/renamed")},
		{"symlink", nfs.Symlink("/users", "/u")},
		{"write", writeErr},
		{"truncate", f.Truncate(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.ErrorIs(t, tt.err, namespace.ErrReadOnly)
			assert.ErrorIs(t, tt.err, os.ErrPermission)

			var pe *os.PathError
			require.ErrorAs(t, tt.err, &pe)
			assert.Equal(t, tt.name, pe.Op)
		})
	}
}

func TestOSError(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{namespace.ErrNotFound, os.ErrNotExist},
		{&namespace.PathError{Op: "open", Path: "/x", Err: namespace.ErrPermission}, os.ErrPermission},
		{namespace.ErrReadOnly, namespace.ErrReadOnly},
		{namespace.ErrIsDir, namespace.ErrIsDir},
	}
	for _, tt := range tests {
		err := osError("op", "/x", tt.err)
		assert.ErrorIs(t, err, tt.want, "%v", tt.err)
	}
	assert.NotErrorIs(t, osError("op", "/x", namespace.ErrNotFound), namespace.ErrReadOnly)
}

func TestReadSeesLiveDatabase(t *testing.T) {
	nfs, db := newTestFS(t)

	f, err := nfs.Open("/users/status/inactive")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	testutil.Exec(t, db, "DELETE FROM users WHERE status = 'inactive'")

	_, err = f.ReadAt(make([]byte, 10), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCapabilities(t *testing.T) {
	nfs, _ := newTestFS(t)

	caps := nfs.Capabilities()
	assert.NotZero(t, caps&2) // ReadCapability (1 << 1)
	assert.NotZero(t, caps&8) // SeekCapability (1 << 3)
	assert.Zero(t, caps&1)    // WriteCapability (1 << 0) should NOT be set
}

func TestChroot(t *testing.T) {
	nfs, _ := newTestFS(t)

	sub, err := nfs.Chroot("/users")
	require.NoError(t, err)
	entries, err := sub.ReadDir("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "status"}, names(entries))
}

func TestRootAndJoin(t *testing.T) {
	nfs, _ := newTestFS(t)
	assert.Equal(t, "/", nfs.Root())
	assert.Equal(t, "a/b/c", nfs.Join("a", "b", "c"))
}

func TestNFSServerStarts(t *testing.T) {
	nfs, _ := newTestFS(t)

	srv, err := NewServer(nfs, "", nil)
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	assert.True(t, srv.Port() > 0, "server should be on a valid port")

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", srv.Port()))
	require.NoError(t, err)
	_ = conn.Close()
}
