package catalog

import (
	"context"
	"fmt"
	"strings"
)

// ListValues returns the distinct values of field in table, rendered as
// text by the engine itself. The same text cast is used by the content
// query, so every listed value matches its own rows.
//
// table and field are interpolated as quoted identifiers. Callers pass only
// names previously returned by ListTables and ListFields; an invalid name
// surfaces as a query error.
func (c *Catalog) ListValues(ctx context.Context, table, field string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s",
		TextExpr(c.dialect, field), c.dialect.Quote(table))

	raw, err := c.queryStrings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list values of %s.%s: %w", table, field, err)
	}

	values := raw[:0]
	skipped := 0
	for _, v := range raw {
		if !ValidSegment(v) {
			skipped++
			continue
		}
		values = append(values, v)
	}
	if skipped > 0 {
		c.log.Debug("%s.%s: %d values cannot be file names", table, field, skipped)
	}
	return values, nil
}

// TextExpr is the expression comparing a column by its text rendering.
func TextExpr(d Dialect, field string) string {
	return "CAST(" + d.Quote(field) + " AS TEXT)"
}

// ValidSegment reports whether s can be used as a single path segment.
func ValidSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\x00")
}
