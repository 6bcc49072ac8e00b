package catalog

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// Dialect holds the engine-specific SQL the catalog needs. Identifiers are
// never bound as parameters by any engine, so they go through Quote.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// DSN turns the configured database into a read-only data source name.
	DSN(database string) string
	// TablesQuery lists user table names, one per row.
	TablesQuery() string
	// FieldsQuery lists the column names of the table bound to Placeholder(1).
	FieldsQuery() string
	Quote(ident string) string
	Placeholder(n int) string
	// StoredExpr selects column ident as its stored value through an
	// expression with no declared type, so the driver does not convert it.
	StoredExpr(ident string) string
}

// DialectFor returns the dialect registered under driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// quoteIdent wraps ident in double quotes, doubling embedded quotes.
// Both SQLite and PostgreSQL accept this form.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) DSN(database string) string {
	if abs, err := filepath.Abs(database); err == nil {
		database = abs
	}
	u := url.URL{Scheme: "file", Path: database}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "query_only(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}

func (sqliteDialect) TablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`
}

func (sqliteDialect) FieldsQuery() string {
	return "SELECT name FROM pragma_table_info(?)"
}

func (sqliteDialect) Quote(ident string) string { return quoteIdent(ident) }
func (sqliteDialect) Placeholder(int) string    { return "?" }

// StoredExpr uses unary plus, which SQLite defines as a no-op on every
// storage class but which drops the column's declared type.
func (sqliteDialect) StoredExpr(ident string) string { return "+" + quoteIdent(ident) }

type postgresDialect struct{}

func (postgresDialect) Name() string               { return "postgres" }
func (postgresDialect) DriverName() string         { return "pgx" }
func (postgresDialect) DSN(database string) string { return database }

func (postgresDialect) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'`
}

func (postgresDialect) FieldsQuery() string {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`
}

func (postgresDialect) Quote(ident string) string { return quoteIdent(ident) }
func (postgresDialect) Placeholder(n int) string  { return "$" + strconv.Itoa(n) }

// StoredExpr renders date and time columns in their canonical text form,
// the same text ListValues lists them by.
func (postgresDialect) StoredExpr(ident string) string { return TextExpr(Postgres, ident) }
