// Package sqlite persists collections into a single SQLite table, one JSON
// payload row per collection. Updates run in BEGIN IMMEDIATE transactions so
// the database write lock covers the read as well as the upsert, including
// against other connections to the same file.
package sqlite

import (
	"checklist/internal/infra/persistence"
	"checklist/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.Backend = (*Store)(nil)

// dsnParams waits on a locked database instead of failing with SQLITE_BUSY and
// makes every transaction take the write lock up front.
const dsnParams = "?_pragma=busy_timeout(10000)&_txlock=immediate"

// Store snapshots each collection as a JSON blob keyed by collection name.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database file and ensures the state table exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "checklist.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Driver returns the backend identifier.
func (s *Store) Driver() string { return "sqlite" }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Load reads the collection payload. A missing row reports ok=false.
func (s *Store) Load(ctx context.Context, schema domain.Schema) ([]domain.Record, bool, error) {
	return load(ctx, s.db, schema)
}

func load(ctx context.Context, q queryer, schema domain.Schema) ([]domain.Record, bool, error) {
	var payload []byte
	err := q.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, schema.Name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Record{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", schema.Name, err)
	}
	records, err := persistence.Decode(schema, payload)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", schema.Name, err)
	}
	return records, true, nil
}

// Update reads the payload, runs fn and upserts the result inside one
// immediate transaction.
func (s *Store) Update(ctx context.Context, schema domain.Schema, fn domain.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	current, ok, err := load(ctx, tx, schema)
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
	data, err := persistence.Encode(schema, next)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, schema.Name, data); err != nil {
		return fmt.Errorf("upsert %s: %w", schema.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", schema.Name, err)
	}
	committed = true
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
