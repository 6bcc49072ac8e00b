package namespace

import (
	"context"
	"sync"
)

// SerialNamespace runs at most one operation of the wrapped Namespace at a
// time, so database queries from two filesystem calls never interleave.
type SerialNamespace struct {
	mu sync.Mutex
	ns Namespace
}

func Serialized(ns Namespace) *SerialNamespace {
	return &SerialNamespace{ns: ns}
}

func (s *SerialNamespace) Stat(ctx context.Context, path string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns.Stat(ctx, path)
}

func (s *SerialNamespace) ListChildren(ctx context.Context, path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns.ListChildren(ctx, path)
}

func (s *SerialNamespace) OpenForRead(ctx context.Context, path string, flags int) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns.OpenForRead(ctx, path, flags)
}

func (s *SerialNamespace) ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns.ReadRange(ctx, path, offset, length)
}

var _ Namespace = (*SerialNamespace)(nil)
