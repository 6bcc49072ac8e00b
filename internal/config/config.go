// Package config assembles the mount configuration from a YAML file,
// FUSE-style "-o key=value" options and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/sqldirfs/internal/logging"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendFUSE = "fuse"
	BackendNFS  = "nfs"
)

// ErrMissingDatabase is returned by Validate when no db option was given.
var ErrMissingDatabase = errors.New("missing database: specify it with -o db=<db.sqlite>")

// Config is the complete, explicit configuration of one mount. It is built
// once at startup and passed down; nothing reads it from package state.
type Config struct {
	MountPoint string `yaml:"mountpoint"`
	// Database is a file path for sqlite, or a connection string for postgres.
	Database string `yaml:"db"`
	Driver   string `yaml:"driver"`
	Backend  string `yaml:"backend"`
	// NFSAddr is the listen address of the NFS backend.
	NFSAddr string `yaml:"nfs_addr"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	LogJSON  bool   `yaml:"log_json"`

	// FuseOptions are passed through to the FUSE host as "-o" options.
	FuseOptions []string `yaml:"fuse_options"`
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		Driver:   DriverSQLite,
		Backend:  BackendFUSE,
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyMountOptions consumes "-o" option strings. Each string may hold
// several comma-separated options. db=, driver=, backend= and nfs_addr=
// are ours; everything else is kept for the FUSE host.
func (c *Config) ApplyMountOptions(opts []string) error {
	for _, group := range opts {
		for _, opt := range strings.Split(group, ",") {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				continue
			}
			key, value, hasValue := strings.Cut(opt, "=")
			switch key {
			case "db":
				if !hasValue || value == "" {
					return fmt.Errorf("mount option %q: empty database path", opt)
				}
				c.Database = value
			case "driver":
				c.Driver = value
			case "backend":
				c.Backend = value
			case "nfs_addr":
				c.NFSAddr = value
			default:
				c.FuseOptions = append(c.FuseOptions, opt)
			}
		}
	}
	return nil
}

// Validate checks that the configuration can be mounted.
func (c *Config) Validate() error {
	if c.Database == "" {
		return ErrMissingDatabase
	}
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", c.Driver, DriverSQLite, DriverPostgres)
	}
	switch c.Backend {
	case BackendFUSE, BackendNFS:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendFUSE, BackendNFS)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Logger builds the logger described by the log_* settings.
func (c *Config) Logger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Name:  "sqldirfs",
		Level: level,
		File:  c.LogFile,
		JSON:  c.LogJSON,
	}), nil
}
