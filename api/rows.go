// Package api defines the content format served for every value file:
// a JSON array of row objects whose keys are the table's column names.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Indent is the indentation unit of rendered content.
const Indent = "    "

// Row is one result row. Columns and Values are parallel slices; keys are
// emitted in column order so rendering is byte-stable.
type Row struct {
	Columns []string
	Values  []any
}

// MarshalJSON renders the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	if len(r.Columns) != len(r.Values) {
		return nil, fmt.Errorf("row has %d columns but %d values", len(r.Columns), len(r.Values))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeTrimmed(enc, &buf, col); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeTrimmed(enc, &buf, normalize(r.Values[i])); err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeTrimmed encodes v and drops the newline json.Encoder appends.
func encodeTrimmed(enc *json.Encoder, buf *bytes.Buffer, v any) error {
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// normalize turns driver values into something with a readable JSON form.
// Text stored in BLOB columns comes back as []byte.
func normalize(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}

// Rows is the full content of a value file.
type Rows []Row

// Render serializes rows as an indented JSON array followed by a newline.
// An empty result renders as "[]\n", never "null".
func (rs Rows) Render() ([]byte, error) {
	if rs == nil {
		rs = Rows{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(rs); err != nil {
		return nil, fmt.Errorf("render rows: %w", err)
	}
	return buf.Bytes(), nil
}
