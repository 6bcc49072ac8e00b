// Package testutil builds fixture databases for tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// ShopSchema is the fixture used across packages:
//
//	users:  1 alice active, 2 bob inactive, 3 carol active
//	orders: three orders, one with a NULL note
const ShopSchema = `
CREATE TABLE users (
	id     INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	status TEXT NOT NULL
);
INSERT INTO users (id, name, status) VALUES
	(1, 'alice', 'active'),
	(2, 'bob',   'inactive'),
	(3, 'carol', 'active');

CREATE TABLE orders (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	total   REAL,
	note    TEXT
);
INSERT INTO orders (user_id, total, note) VALUES
	(1, 9.5, 'gift <wrapped>'),
	(1, 20.25, NULL),
	(3, 9.5, 'a/b');
`

// NewSQLite creates a database file in a temp dir, runs schema against it
// and returns the file path.
func NewSQLite(t testing.TB, schema string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return path
}

// NewShopDB creates the ShopSchema fixture.
func NewShopDB(t testing.TB) string {
	t.Helper()
	return NewSQLite(t, ShopSchema)
}

// Exec runs statements against an existing fixture, for tests that
// change the database between two filesystem calls.
func Exec(t testing.TB, path, stmt string, args ...any) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(stmt, args...)
	require.NoError(t, err)
}
