// Package memory provides the in-memory document store used for tests
// and single-process deployments.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/restmach/restmach/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*store.Document
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{docs: make(map[string]*store.Document)}
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(doc), nil
}

// Put creates or replaces a document and reports whether it was new.
func (s *Store) Put(ctx context.Context, doc *store.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.docs[doc.ID]
	doc.ETag = store.ETagFor(doc.Body)
	doc.UpdatedAt = store.Timestamp()
	s.docs[doc.ID] = clone(doc)
	return !existed, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

// List returns documents ordered by ID.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	start := min(offset, len(ids))
	end := min(start+limit, len(ids))

	out := make([]*store.Document, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, clone(s.docs[id]))
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func clone(doc *store.Document) *store.Document {
	c := *doc
	c.Body = slices.Clone(doc.Body)
	return &c
}
