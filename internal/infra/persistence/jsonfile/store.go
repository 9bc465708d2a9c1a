// Package jsonfile persists each collection as a JSON array in its own file
// under a data directory. Writes go through a temp file and an atomic rename so
// readers only ever see a complete array. Writers serialize on an advisory
// lock file next to the collection, which also excludes other processes.
package jsonfile

import (
	"checklist/internal/infra/persistence"
	"checklist/pkg/domain"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

var _ domain.Backend = (*Store)(nil)

// lockRetry is the polling interval while another writer holds the lock.
const lockRetry = 5 * time.Millisecond

// Swappable for tests.
var (
	rename    = os.Rename
	writeFile = func(f *os.File, data []byte) error {
		if _, err := f.Write(data); err != nil {
			return err
		}
		return f.Sync()
	}
)

// Store is a directory of <collection>.json files.
type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Driver returns the backend identifier.
func (s *Store) Driver() string { return "jsonfile" }

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file holding the given collection.
func (s *Store) Path(schema domain.Schema) string {
	return filepath.Join(s.dir, schema.Name+".json")
}

// LockPath returns the advisory lock file guarding writes to the collection.
func (s *Store) LockPath(schema domain.Schema) string {
	return filepath.Join(s.dir, "."+schema.Name+".lock")
}

// Load reads and decodes the collection file. A missing file reports ok=false.
func (s *Store) Load(_ context.Context, schema domain.Schema) ([]domain.Record, bool, error) {
	// #nosec G304 -- path is derived from the configured data dir and a validated schema name
	data, err := os.ReadFile(s.Path(schema))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Record{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", schema.Name, err)
	}
	records, err := persistence.Decode(schema, data)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", schema.Name, err)
	}
	return records, true, nil
}

// Update takes the collection's lock file, loads the current array, runs fn
// and writes its result. Each call opens its own lock handle so concurrent
// callers in one process exclude each other the same way separate processes do.
func (s *Store) Update(ctx context.Context, schema domain.Schema, fn domain.UpdateFunc) error {
	lock := flock.New(s.LockPath(schema), flock.SetPermissions(0o640))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock %s: %w", schema.Name, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: %w", schema.Name, ctx.Err())
	}
	defer func() { _ = lock.Unlock() }()

	current, ok, err := s.Load(ctx, schema)
	if err != nil {
		return err
	}
	next, changed, err := fn(current, ok)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.write(schema, next)
}

// write stores records in a temp file in the same directory and renames it
// over the previous file.
func (s *Store) write(schema domain.Schema, records []domain.Record) error {
	data, err := persistence.Encode(schema, records)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+schema.Name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", schema.Name, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if err := writeFile(tmp, data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", schema.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", schema.Name, err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		return fmt.Errorf("chmod %s: %w", schema.Name, err)
	}
	if err := rename(tmpName, s.Path(schema)); err != nil {
		return fmt.Errorf("replace %s: %w", schema.Name, err)
	}
	return nil
}

// Close is a no-op; files are not held open between calls.
func (s *Store) Close() error { return nil }
