package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/sqldirfs/internal/config"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMissingDatabasePrintsUsage(t *testing.T) {
	out, err := runRoot(t, t.TempDir())
	require.ErrorIs(t, err, config.ErrMissingDatabase)
	assert.Contains(t, out, "-o db=<db.sqlite>")
	assert.Contains(t, out, "Usage:")
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"empty db", []string{"/mnt", "-o", "db="}},
		{"unknown backend", []string{"/mnt", "-o", "db=x.db", "--backend", "smb"}},
		{"unknown driver", []string{"/mnt", "-o", "db=x.db,driver=oracle"}},
		{"bad log level", []string{"/mnt", "-o", "db=x.db", "--log-level", "loud"}},
		{"no mountpoint", []string{"-o", "db=x.db"}},
		{"too many args", []string{"/a", "/b", "-o", "db=x.db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runRoot(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestBuildConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqldirfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mountpoint: /from/file
db: file.db
driver: sqlite
backend: nfs
log_level: warn
`), 0o600))

	cmd := &cobra.Command{}
	var f flags
	addFlags(cmd, &f)
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", path,
		"-o", "db=option.db,allow_other",
		"--log-level", "debug",
	}))

	cfg, err := buildConfig(cmd, &f, []string{"/from/args"})
	require.NoError(t, err)
	assert.Equal(t, "/from/args", cfg.MountPoint)
	assert.Equal(t, "option.db", cfg.Database)
	assert.Equal(t, config.BackendNFS, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"allow_other"}, cfg.FuseOptions)
}

func TestFuseArgs(t *testing.T) {
	cfg := config.Default()
	cfg.FuseOptions = []string{"allow_other"}

	args := fuseArgs(cfg, 501, 20)
	assert.Equal(t, []string{
		"-s",
		"-o", "ro",
		"-o", "uid=501",
		"-o", "gid=20",
		"-o", "fsname=sqldirfs",
		"-o", "allow_other",
	}, args)
}

func TestMissingDatabaseFileFailsBeforeMount(t *testing.T) {
	mnt := t.TempDir()
	_, err := runRoot(t, mnt, "-o", "db="+filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestCheckMountPoint(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, checkMountPoint(dir))
	assert.Error(t, checkMountPoint(filepath.Join(dir, "nope")))

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.Error(t, checkMountPoint(file))
}
