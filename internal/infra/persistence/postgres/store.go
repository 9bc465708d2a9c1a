// Package postgres provides a Postgres-backed collection store that keeps one
// JSONB payload row per collection. Updates hold a transaction-scoped advisory
// lock keyed by collection name, so writers on any connection serialize even
// before the row exists.
package postgres

import (
	"checklist/internal/infra/persistence"
	"checklist/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.Backend = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/checklist?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists collections to Postgres.
type Store struct {
	db *sql.DB
}

type rowsQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func lockKey(schema domain.Schema) string { return "checklist/" + schema.Name }

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN) and ensures the state table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// Driver returns the backend identifier.
func (s *Store) Driver() string { return "postgres" }

// Load reads the collection payload. A missing row reports ok=false.
func (s *Store) Load(ctx context.Context, schema domain.Schema) ([]domain.Record, bool, error) {
	return load(ctx, s.db, schema)
}

func load(ctx context.Context, q rowsQueryer, schema domain.Schema) ([]domain.Record, bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT bucket, payload FROM state WHERE bucket = $1`, schema.Name)
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", schema.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var payload []byte
	found := false
	for rows.Next() {
		var bucket string
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, false, fmt.Errorf("scan %s: %w", schema.Name, err)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate %s: %w", schema.Name, err)
	}
	if !found {
		return []domain.Record{}, false, nil
	}
	records, err := persistence.Decode(schema, payload)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", schema.Name, err)
	}
	return records, true, nil
}

// Update locks the collection for the duration of a transaction, reads the
// payload, runs fn and upserts the result.
func (s *Store) Update(ctx context.Context, schema domain.Schema, fn domain.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey(schema)); err != nil {
		return fmt.Errorf("lock %s: %w", schema.Name, err)
	}
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
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, schema.Name, data); err != nil {
		return fmt.Errorf("upsert %s: %w", schema.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

var errNilDB = errors.New("nil db")

// NewStoreWithDB wraps an already-open handle; used by tests with stub drivers.
func NewStoreWithDB(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errNilDB
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}
