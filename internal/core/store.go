package core

import (
	"checklist/pkg/domain"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// maxIDAttempts bounds id regeneration when a fresh id collides with a live record.
const maxIDAttempts = 8

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithIDGenerator overrides the record id generator (uuid v4 by default).
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Store owns one durable collection. Every mutation is a full read-modify-write
// cycle run through Backend.Update, which excludes writers in other Stores and
// processes sharing the backend. Within one Store the write lock also
// serializes mutations and reads share the read lock. Nothing is cached, so a
// failed write leaves the previous state.
type Store struct {
	mu      sync.RWMutex
	schema  domain.Schema
	backend domain.Backend
	newID   func() string
}

// NewStore binds schema to backend and seeds an empty collection when the
// backend has none yet.
func NewStore(ctx context.Context, schema domain.Schema, backend domain.Backend, opts ...StoreOption) (*Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("store %s: nil backend", schema.Name)
	}
	s := &Store{schema: schema, backend: backend, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	err := backend.Update(ctx, schema, func(_ []domain.Record, ok bool) ([]domain.Record, bool, error) {
		return []domain.Record{}, !ok, nil
	})
	if err != nil {
		return nil, domain.StorageError{Op: "init " + schema.Name, Err: err}
	}
	return s, nil
}

// Schema returns the collection schema.
func (s *Store) Schema() domain.Schema { return s.schema }

// Transaction is a private copy of the collection handed to RunInTransaction.
type Transaction struct {
	store   *Store
	records []domain.Record
	dirty   bool
}

var _ domain.Transaction = (*Transaction)(nil)

// TransactionView is a read-only snapshot of a collection.
type TransactionView struct {
	schema  domain.Schema
	records []domain.Record
}

var _ domain.TransactionView = TransactionView{}

// Records returns a copy of the snapshot in insertion order.
func (v TransactionView) Records() []domain.Record { return domain.CloneRecords(v.records) }

// Find looks up a record by id.
func (v TransactionView) Find(id string) (domain.Record, bool) {
	if i := domain.IndexOf(v.records, id); i >= 0 {
		return v.records[i], true
	}
	return domain.Record{}, false
}

// Snapshot exposes the transaction's current state.
func (tx *Transaction) Snapshot() domain.TransactionView {
	return TransactionView{schema: tx.store.schema, records: tx.records}
}

// Insert appends a record built from validated input with a fresh id.
func (tx *Transaction) Insert(input domain.RecordInput) (domain.Record, error) {
	id, err := tx.freshID()
	if err != nil {
		return domain.Record{}, err
	}
	rec := domain.Record{
		ID:             id,
		Checked:        false,
		Priority:       domain.DefaultPriority,
		PrimaryLabel:   input.PrimaryLabel,
		SecondaryLabel: input.SecondaryLabel,
	}
	tx.records = append(tx.records, rec)
	tx.dirty = true
	return rec, nil
}

func (tx *Transaction) freshID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := tx.store.newID()
		if id != "" && domain.IndexOf(tx.records, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("%s: could not generate a unique id", tx.store.schema.Name)
}

// Update applies mutator to a copy of the record with id and stores the result.
// The id is restored if the mutator changes it.
func (tx *Transaction) Update(id string, mutator func(*domain.Record) error) (domain.Record, error) {
	i := domain.IndexOf(tx.records, id)
	if i < 0 {
		return domain.Record{}, domain.NotFoundError{Collection: tx.store.schema.Name, ID: id}
	}
	rec := tx.records[i]
	if err := mutator(&rec); err != nil {
		return domain.Record{}, err
	}
	rec.ID = id
	if rec != tx.records[i] {
		next := domain.CloneRecords(tx.records)
		next[i] = rec
		tx.records = next
		tx.dirty = true
	}
	return rec, nil
}

// Delete removes the record with id and reports whether it was present.
func (tx *Transaction) Delete(id string) bool {
	i := domain.IndexOf(tx.records, id)
	if i < 0 {
		return false
	}
	next := make([]domain.Record, 0, len(tx.records)-1)
	next = append(next, tx.records[:i]...)
	next = append(next, tx.records[i+1:]...)
	tx.records = next
	tx.dirty = true
	return true
}

func (s *Store) load(ctx context.Context) ([]domain.Record, error) {
	records, _, err := s.backend.Load(ctx, s.schema)
	if err != nil {
		return nil, domain.StorageError{Op: "load " + s.schema.Name, Err: err}
	}
	return records, nil
}

// RunInTransaction loads the collection, runs fn against a private copy and,
// when fn succeeds and changed something, stores the whole new collection. The
// backend holds the collection for the entire cycle and may run fn again after
// losing a race with another writer.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fnErr error
	err := s.backend.Update(ctx, s.schema, func(current []domain.Record, _ bool) ([]domain.Record, bool, error) {
		tx := &Transaction{store: s, records: domain.CloneRecords(current)}
		if fnErr = fn(tx); fnErr != nil {
			return nil, false, fnErr
		}
		return tx.records, tx.dirty, nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return domain.StorageError{Op: "update " + s.schema.Name, Err: err}
	}
	return nil
}

// View runs fn against a freshly loaded snapshot under the read lock.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(TransactionView{schema: s.schema, records: records})
}

// Create appends a new record. Labels are trusted; validate with
// Schema.ValidateCreate first.
func (s *Store) Create(ctx context.Context, input domain.RecordInput) (domain.Record, error) {
	var created domain.Record
	err := s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.Insert(input)
		return err
	})
	return created, err
}

// List returns every record in insertion order as an independent slice.
func (s *Store) List(ctx context.Context) ([]domain.Record, error) {
	var out []domain.Record
	err := s.View(ctx, func(v domain.TransactionView) error {
		out = v.Records()
		return nil
	})
	return out, err
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (domain.Record, error) {
	var found domain.Record
	err := s.View(ctx, func(v domain.TransactionView) error {
		rec, ok := v.Find(id)
		if !ok {
			return domain.NotFoundError{Collection: s.schema.Name, ID: id}
		}
		found = rec
		return nil
	})
	return found, err
}

// ToggleChecked flips the checked flag of the record with id.
func (s *Store) ToggleChecked(ctx context.Context, id string) (domain.Record, error) {
	var updated domain.Record
	err := s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.Update(id, func(r *domain.Record) error {
			r.Checked = !r.Checked
			return nil
		})
		return err
	})
	return updated, err
}

// SetPriority validates value and assigns it to the record with id.
func (s *Store) SetPriority(ctx context.Context, id string, value int) (domain.Record, error) {
	if err := domain.ValidatePriority(value); err != nil {
		return domain.Record{}, err
	}
	var updated domain.Record
	err := s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.Update(id, func(r *domain.Record) error {
			r.Priority = value
			return nil
		})
		return err
	})
	return updated, err
}

// Delete removes the record with id. Absent ids are a successful no-op.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		removed = tx.Delete(id)
		return nil
	})
	return removed, err
}
