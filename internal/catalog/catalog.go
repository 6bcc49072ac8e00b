// Package catalog answers schema questions against a live database:
// which tables exist, which columns a table has and which distinct values
// a column holds. Nothing is cached; every call queries the database.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/sqldirfs/internal/logging"
)

// Config selects and locates the database.
type Config struct {
	Driver string
	// Database is a file path for sqlite or a connection string for postgres.
	Database     string
	MaxOpenConns int
}

// Catalog is the schema introspector and value enumerator.
type Catalog struct {
	db      *sql.DB
	dialect Dialect
	log     *logging.Logger
}

// Open connects to the configured database read-only and probes it with a
// table listing, so a missing or unreadable database fails here rather
// than on the first filesystem call.
func Open(ctx context.Context, cfg Config, log *logging.Logger) (*Catalog, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite {
		info, err := os.Stat(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", cfg.Database, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("open database %s: is a directory", cfg.Database)
		}
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("open %s %s: %w", dialect.Name(), cfg.Database, err)
	}
	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 2
	}
	db.SetMaxOpenConns(maxConns)

	c := New(db, dialect, log)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() // ignore error
		return nil, fmt.Errorf("connect %s %s: %w", dialect.Name(), cfg.Database, err)
	}
	if _, err := c.ListTables(ctx); err != nil {
		_ = db.Close() // ignore error
		return nil, fmt.Errorf("read schema of %s: %w", cfg.Database, err)
	}
	return c, nil
}

// New wraps an already opened database.
func New(db *sql.DB, dialect Dialect, log *logging.Logger) *Catalog {
	if log == nil {
		log = logging.Discard()
	}
	return &Catalog{db: db, dialect: dialect, log: log}
}

func (c *Catalog) DB() *sql.DB       { return c.db }
func (c *Catalog) Dialect() Dialect { return c.dialect }

func (c *Catalog) Close() error {
	return c.db.Close()
}

// ListTables returns the names of all user tables in engine order.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	tables, err := c.queryStrings(ctx, c.dialect.TablesQuery())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// ListFields returns the column names of table. An unknown table yields an
// empty slice, not an error; callers check ListTables for existence.
func (c *Catalog) ListFields(ctx context.Context, table string) ([]string, error) {
	fields, err := c.queryStrings(ctx, c.dialect.FieldsQuery(), table)
	if err != nil {
		return nil, fmt.Errorf("list fields of %s: %w", table, err)
	}
	return fields, nil
}

// queryStrings runs a single-column query and collects non-NULL values.
func (c *Catalog) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	out := []string{}
	nulls := 0
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if !s.Valid {
			nulls++
			continue
		}
		out = append(out, s.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	if nulls > 0 {
		c.log.Debug("skipped %d NULL rows", nulls)
	}
	return out, nil
}
