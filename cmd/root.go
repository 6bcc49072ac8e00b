package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/winfsp/cgofuse/fuse"
	"golang.org/x/sys/unix"

	"github.com/agentic-research/sqldirfs/internal/catalog"
	"github.com/agentic-research/sqldirfs/internal/config"
	"github.com/agentic-research/sqldirfs/internal/content"
	sqlfs "github.com/agentic-research/sqldirfs/internal/fs"
	"github.com/agentic-research/sqldirfs/internal/logging"
	"github.com/agentic-research/sqldirfs/internal/namespace"
	"github.com/agentic-research/sqldirfs/internal/nfsmount"
)

// flags holds the raw command-line values before they are folded into a
// config.Config.
type flags struct {
	options    []string
	configPath string
	backend    string
	driver     string
	logLevel   string
	logFile    string
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "sqldirfs [mountpoint] -o db=<db.sqlite>",
		Short: "Mount a relational database as a read-only directory tree",
		Long: `sqldirfs exposes every table as a directory, every column as a
subdirectory and every distinct column value as a file holding the
matching rows as JSON:

  <mountpoint>/<table>/<field>/<value>`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, &f, args)
			if errors.Is(err, config.ErrMissingDatabase) {
				cmd.PrintErrln(err)
				_ = cmd.Usage()
				return err
			}
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	addFlags(cmd, &f)
	return cmd
}

func addFlags(cmd *cobra.Command, f *flags) {
	cmd.Flags().StringArrayVarP(&f.options, "option", "o", nil, "Mount option (db=<path>, driver=, backend=, nfs_addr= or a FUSE option)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Mount backend: fuse or nfs")
	cmd.Flags().StringVar(&f.driver, "driver", "", "Database driver: sqlite or postgres")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Write logs to this file (rotated)")
	cmd.Flags().BoolVar(&f.logJSON, "log-json", false, "Emit JSON log lines")
}

// buildConfig layers defaults, the config file, -o options and explicit
// flags, in increasing precedence, and validates the result.
func buildConfig(cmd *cobra.Command, f *flags, args []string) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyMountOptions(f.options); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("backend") {
		cfg.Backend = f.backend
	}
	if changed("driver") {
		cfg.Driver = f.driver
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if changed("log-json") {
		cfg.LogJSON = f.logJSON
	}
	if len(args) > 0 {
		cfg.MountPoint = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MountPoint == "" {
		return nil, fmt.Errorf("missing mountpoint")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	if cfg.Backend == config.BackendFUSE {
		if err := checkMountPoint(cfg.MountPoint); err != nil {
			return err
		}
	}

	cat, err := catalog.Open(ctx, catalog.Config{Driver: cfg.Driver, Database: cfg.Database}, log.Named("catalog"))
	if err != nil {
		log.Error("%v", err)
		return err
	}
	defer func() { _ = cat.Close() }()

	resolver := namespace.NewResolver(cat, content.FromCatalog(cat), log.Named("namespace"))
	ns := namespace.Serialized(resolver)

	fmt.Printf("Mounting database %s\n", cfg.Database)
	log.Info("mounting %s database %s at %s (%s)", cfg.Driver, cfg.Database, cfg.MountPoint, cfg.Backend)

	switch cfg.Backend {
	case config.BackendNFS:
		return serveNFS(ctx, cfg, ns, log)
	default:
		return serveFUSE(cfg, ns, log)
	}
}

func serveFUSE(cfg *config.Config, ns namespace.Namespace, log *logging.Logger) error {
	uid, gid := os.Getuid(), os.Getgid()
	host := fuse.NewFileSystemHost(sqlfs.NewSQLDirFS(ns, uint32(uid), uint32(gid), log.Named("fuse")))

	if !host.Mount(cfg.MountPoint, fuseArgs(cfg, uid, gid)) {
		return fmt.Errorf("mount failed")
	}
	return nil
}

// fuseArgs builds the host arguments. -s keeps dispatch single-threaded;
// -o uid/gid make the mounting user own every entry.
func fuseArgs(cfg *config.Config, uid, gid int) []string {
	opts := []string{
		"-s",
		"-o", "ro",
		"-o", fmt.Sprintf("uid=%d", uid),
		"-o", fmt.Sprintf("gid=%d", gid),
		"-o", "fsname=sqldirfs",
	}
	for _, o := range cfg.FuseOptions {
		opts = append(opts, "-o", o)
	}
	return opts
}

func serveNFS(ctx context.Context, cfg *config.Config, ns namespace.Namespace, log *logging.Logger) error {
	srv, err := nfsmount.NewServer(nfsmount.NewNamespaceFS(ns, log.Named("nfs")), cfg.NFSAddr, log.Named("nfs"))
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	log.Info("nfs server listening on port %d", srv.Port())
	if err := nfsmount.Mount(srv.Port(), cfg.MountPoint); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("unmounting %s", cfg.MountPoint)
	return nfsmount.Unmount(cfg.MountPoint)
}

// checkMountPoint requires an existing directory the caller may mount on.
func checkMountPoint(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("mountpoint: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mountpoint %s: not a directory", path)
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("mountpoint %s: %w", path, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, config.ErrMissingDatabase) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
