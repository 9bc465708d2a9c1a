// Package objectstore persists each collection as one JSON object in a blob
// store (local filesystem, S3/MinIO or memory). Updates are optimistic: the
// replacement is written with a conditional put against the ETag that was
// read, and the whole read-modify-write is retried when another writer won.
package objectstore

import (
	"bytes"
	"checklist/internal/blob/core"
	"checklist/internal/infra/persistence"
	"checklist/pkg/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"
)

var _ domain.Backend = (*Store)(nil)

const (
	contentType = "application/json"
	// maxAttempts bounds read-modify-write retries under write contention.
	maxAttempts = 64
	maxBackoff  = 20 * time.Millisecond
)

// Store maps collection <name> to the object <prefix><name>.json.
type Store struct {
	blobs  core.Store
	prefix string
}

// New wraps a blob store. prefix is prepended verbatim to every key.
func New(blobs core.Store, prefix string) (*Store, error) {
	if blobs == nil {
		return nil, errors.New("objectstore: nil blob store")
	}
	return &Store{blobs: blobs, prefix: prefix}, nil
}

// Driver returns the backend identifier.
func (s *Store) Driver() string { return "objectstore" }

// BlobDriver reports the underlying blob driver.
func (s *Store) BlobDriver() core.Driver { return s.blobs.Driver() }

// Key returns the object key holding the given collection.
func (s *Store) Key(schema domain.Schema) string {
	return s.prefix + schema.Name + ".json"
}

// Load fetches and decodes the collection object. A missing object reports ok=false.
func (s *Store) Load(ctx context.Context, schema domain.Schema) ([]domain.Record, bool, error) {
	records, ok, _, err := s.load(ctx, schema)
	return records, ok, err
}

func (s *Store) load(ctx context.Context, schema domain.Schema) ([]domain.Record, bool, string, error) {
	info, rc, err := s.blobs.Get(ctx, s.Key(schema))
	if errors.Is(err, core.ErrNotFound) {
		return []domain.Record{}, false, "", nil
	}
	if err != nil {
		return nil, false, "", fmt.Errorf("get %s: %w", schema.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, "", fmt.Errorf("read %s: %w", schema.Name, err)
	}
	records, err := persistence.Decode(schema, data)
	if err != nil {
		return nil, true, "", fmt.Errorf("decode %s: %w", schema.Name, err)
	}
	return records, true, info.ETag, nil
}

// Update reads the collection, runs fn and writes the result only if the
// object is unchanged since the read. A lost race reloads and calls fn again.
func (s *Store) Update(ctx context.Context, schema domain.Schema, fn domain.UpdateFunc) error {
	for attempt := 1; ; attempt++ {
		current, ok, etag, err := s.load(ctx, schema)
		if err != nil {
			return err
		}
		if ok && etag == "" {
			return fmt.Errorf("put %s: %s blob store reported no etag", schema.Name, s.blobs.Driver())
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
		opts := core.PutOptions{ContentType: contentType, IfMatch: etag, IfNoneMatch: !ok}
		_, err = s.blobs.Put(ctx, s.Key(schema), bytes.NewReader(data), opts)
		if err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrPreconditionFailed) {
			return fmt.Errorf("put %s: %w", schema.Name, err)
		}
		if attempt == maxAttempts {
			return fmt.Errorf("put %s: gave up after %d conflicting writes: %w", schema.Name, attempt, err)
		}
		if err := backoff(ctx, attempt); err != nil {
			return err
		}
	}
}

// backoff sleeps a jittered, capped interval that grows with attempt.
func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt) * time.Millisecond
	if d > maxBackoff {
		d = maxBackoff
	}
	d = d/2 + time.Duration(rand.Int63n(int64(d/2+1)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close is a no-op; blob stores hold no per-backend resources.
func (s *Store) Close() error { return nil }
