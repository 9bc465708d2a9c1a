package domain

import "context"

// UpdateFunc receives the current collection, with ok=false when it has never
// been written, and returns its replacement. changed=false skips the write.
type UpdateFunc func(current []Record, ok bool) (next []Record, changed bool, err error)

// Backend persists whole collections. The unit of durability is the full
// record sequence of one schema and a reader never observes a partial write.
//
// Update is the only write path. It holds the collection exclusively from the
// read handed to fn until the replacement is stored, across every Backend value
// and process sharing the same storage. Backends built on optimistic
// concurrency may call fn more than once. An error returned by fn aborts the
// update without writing and is returned unchanged.
type Backend interface {
	Load(ctx context.Context, schema Schema) (records []Record, ok bool, err error)
	Update(ctx context.Context, schema Schema, fn UpdateFunc) error
	Driver() string
	Close() error
}

// Transaction exposes the single-record mutations available inside one
// read-modify-write cycle.
type Transaction interface {
	Snapshot() TransactionView
	Insert(input RecordInput) (Record, error)
	Update(id string, mutator func(*Record) error) (Record, error)
	Delete(id string) bool
}

// TransactionView provides read-only access to a loaded collection.
type TransactionView interface {
	Records() []Record
	Find(id string) (Record, bool)
}
