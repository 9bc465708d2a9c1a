// Package memory provides an in-memory collection backend used for tests and
// ephemeral environments.
package memory

import (
	"checklist/pkg/domain"
	"context"
	"sync"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain backend interface.
var _ domain.Backend = (*Store)(nil)

// Store keeps each collection as an independent record slice.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]domain.Record
}

// NewStore returns an empty in-memory backend.
func NewStore() *Store {
	return &Store{collections: make(map[string][]domain.Record)}
}

// Driver returns the backend identifier.
func (s *Store) Driver() string { return "memory" }

// Load returns a copy of the named collection.
func (s *Store) Load(_ context.Context, schema domain.Schema) ([]domain.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.collections[schema.Name]
	if !ok {
		return []domain.Record{}, false, nil
	}
	return domain.CloneRecords(records), true, nil
}

// Update runs fn and stores its result under the write lock.
func (s *Store) Update(_ context.Context, schema domain.Schema, fn domain.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.collections[schema.Name]
	if !ok {
		current = []domain.Record{}
	}
	next, changed, err := fn(domain.CloneRecords(current), ok)
	if err != nil {
		return err
	}
	if changed {
		s.collections[schema.Name] = domain.CloneRecords(next)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
