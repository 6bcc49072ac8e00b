// Package content renders the rows behind a value file.
package content

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentic-research/sqldirfs/api"
	"github.com/agentic-research/sqldirfs/internal/catalog"
)

// Querier is the part of *sql.DB the materializer needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Materializer runs the filter query for a (table, field, value) triple and
// renders the matching rows. It keeps no state between calls, so the same
// database content always renders to the same bytes.
type Materializer struct {
	q       Querier
	dialect catalog.Dialect
}

func New(q Querier, dialect catalog.Dialect) *Materializer {
	return &Materializer{q: q, dialect: dialect}
}

// FromCatalog builds a Materializer sharing the catalog's connection pool.
func FromCatalog(c *catalog.Catalog) *Materializer {
	return New(c.DB(), c.Dialect())
}

// Materialize returns the rendered content of table/field/value.
func (m *Materializer) Materialize(ctx context.Context, table, field, value string) ([]byte, error) {
	rows, err := m.Rows(ctx, table, field, value)
	if err != nil {
		return nil, err
	}
	return rows.Render()
}

// Rows selects every column of the rows whose field renders as value.
// Identifiers are quoted; the value is always a bound parameter.
//
// Drivers parse text in DATE, DATETIME and TIMESTAMP columns into
// time.Time. When the result has such columns the query is re-run with
// those columns selected as stored, so content shows the same text the
// value directories are named by.
func (m *Materializer) Rows(ctx context.Context, table, field, value string) (api.Rows, error) {
	rows, err := m.query(ctx, "*", table, field, value)
	if err != nil {
		return nil, err
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	if cols, ok := m.storedColumns(types); ok {
		_ = rows.Close()
		if rows, err = m.query(ctx, cols, table, field, value); err != nil {
			return nil, err
		}
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	return scanRows(table, rows)
}

func (m *Materializer) query(ctx context.Context, columns, table, field, value string) (*sql.Rows, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		columns, m.dialect.Quote(table), catalog.TextExpr(m.dialect, field), m.dialect.Placeholder(1))

	rows, err := m.q.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("select %s where %s = %q: %w", table, field, value, err)
	}
	return rows, nil
}

// storedColumns builds a select list that keeps every column's name and
// order but reads time-typed columns as stored. ok is false when no
// column needs it.
func (m *Materializer) storedColumns(types []*sql.ColumnType) (string, bool) {
	list := make([]string, len(types))
	found := false
	for i, ct := range types {
		name := ct.Name()
		if isTimeType(ct.DatabaseTypeName()) {
			list[i] = m.dialect.StoredExpr(name) + " AS " + m.dialect.Quote(name)
			found = true
			continue
		}
		list[i] = m.dialect.Quote(name)
	}
	return strings.Join(list, ", "), found
}

// isTimeType matches the declared types drivers convert to time.Time.
func isTimeType(declared string) bool {
	t := strings.ToUpper(declared)
	return strings.Contains(t, "DATE") || strings.Contains(t, "TIME")
}

func scanRows(table string, rows *sql.Rows) (api.Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	out := api.Rows{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		out = append(out, api.Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return out, nil
}
