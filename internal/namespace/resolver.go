package namespace

import (
	"context"
	"slices"

	"github.com/agentic-research/sqldirfs/internal/logging"
)

// Introspector lists schema and values. Implemented by *catalog.Catalog.
type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	ListFields(ctx context.Context, table string) ([]string, error)
	ListValues(ctx context.Context, table, field string) ([]string, error)
}

// Materializer renders the content of a value file. Implemented by
// *content.Materializer.
type Materializer interface {
	Materialize(ctx context.Context, table, field, value string) ([]byte, error)
}

// Resolver implements Namespace by querying the database on every call.
//
// Validation always walks shallow to deep: the table must be listed by
// ListTables, the field by ListFields(table), the value by
// ListValues(table, field). Only names that passed those checks ever reach
// an identifier position in SQL.
type Resolver struct {
	schema  Introspector
	content Materializer
	log     *logging.Logger
}

func NewResolver(schema Introspector, content Materializer, log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{schema: schema, content: content, log: log}
}

// Stat classifies path. Value files are materialized to report their exact size.
func (r *Resolver) Stat(ctx context.Context, path string) (*Entry, error) {
	p := Split(path)
	kind := r.classify(ctx, p)
	r.log.Debug("stat %s -> %s", path, kind)

	switch kind {
	case KindNotFound:
		return nil, pathErr("stat", path, ErrNotFound)
	case KindValue:
		data, err := r.content.Materialize(ctx, p.Table, p.Field, p.Value)
		if err != nil {
			r.log.Error("materialize %s: %v", p, err)
			return nil, pathErr("stat", path, err)
		}
		return &Entry{Path: p, Kind: KindValue, Size: int64(len(data))}, nil
	default:
		return &Entry{Path: p, Kind: kind}, nil
	}
}

// ListChildren lists tables, fields or values depending on the depth of
// path. Value files and paths that fail validation list as empty.
func (r *Resolver) ListChildren(ctx context.Context, path string) ([]string, error) {
	p := Split(path)
	kind := r.classify(ctx, p)
	r.log.Debug("list %s (%s)", path, kind)

	switch kind {
	case KindRoot:
		return r.tables(ctx), nil
	case KindTable:
		return r.fields(ctx, p.Table), nil
	case KindField:
		return r.values(ctx, p.Table, p.Field), nil
	default:
		return []string{}, nil
	}
}

// OpenForRead refuses write intent regardless of whether path exists.
func (r *Resolver) OpenForRead(ctx context.Context, path string, flags int) (*Entry, error) {
	if WriteIntent(flags) {
		r.log.Debug("open %s: write intent (flags %#x) refused", path, flags)
		return nil, pathErr("open", path, ErrPermission)
	}
	entry, err := r.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReadRange re-validates path, re-runs the content query and returns the
// requested slice. Reads at or past the end return an empty slice. Two
// reads of one open file may see different database states.
func (r *Resolver) ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, pathErr("read", path, ErrInvalid)
	}

	p := Split(path)
	switch kind := r.classify(ctx, p); kind {
	case KindValue:
	case KindNotFound:
		return nil, pathErr("read", path, ErrNotFound)
	default:
		return nil, pathErr("read", path, ErrIsDir)
	}

	data, err := r.content.Materialize(ctx, p.Table, p.Field, p.Value)
	if err != nil {
		r.log.Error("materialize %s: %v", p, err)
		return nil, pathErr("read", path, err)
	}
	return clip(data, offset, length), nil
}

// clip returns data[offset:offset+length] bounded by len(data).
func clip(data []byte, offset int64, length int) []byte {
	size := int64(len(data))
	if offset >= size {
		return []byte{}
	}
	end := offset + int64(length)
	if end > size {
		end = size
	}
	return data[offset:end]
}

// classify walks p against the live schema, stopping at the first level
// that does not exist.
func (r *Resolver) classify(ctx context.Context, p Path) Kind {
	if p.Excess {
		return KindNotFound
	}
	if p.Table == "" {
		return KindRoot
	}
	if !slices.Contains(r.tables(ctx), p.Table) {
		return KindNotFound
	}
	if p.Field == "" {
		return KindTable
	}
	if !slices.Contains(r.fields(ctx, p.Table), p.Field) {
		return KindNotFound
	}
	if p.Value == "" {
		return KindField
	}
	if !slices.Contains(r.values(ctx, p.Table, p.Field), p.Value) {
		return KindNotFound
	}
	return KindValue
}

// The lookups below turn query failures into empty results: a name the
// engine cannot resolve does not denote an entry.

func (r *Resolver) tables(ctx context.Context) []string {
	tables, err := r.schema.ListTables(ctx)
	if err != nil {
		r.log.Warn("%v", err)
		return []string{}
	}
	return tables
}

func (r *Resolver) fields(ctx context.Context, table string) []string {
	fields, err := r.schema.ListFields(ctx, table)
	if err != nil {
		r.log.Warn("%v", err)
		return []string{}
	}
	return fields
}

func (r *Resolver) values(ctx context.Context, table, field string) []string {
	values, err := r.schema.ListValues(ctx, table, field)
	if err != nil {
		r.log.Warn("%v", err)
		return []string{}
	}
	return values
}

var _ Namespace = (*Resolver)(nil)
