// Package memory implements an in-memory blob Store for tests.
package memory

import (
	"bytes"
	"checklist/internal/blob/core"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var _ core.Store = (*Store)(nil)

type blobEntry struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory. Intended for tests.
type Store struct {
	mu   sync.RWMutex
	objs map[string]blobEntry
}

// New returns an in-memory blob store.
func New() *Store { return &Store{objs: make(map[string]blobEntry)} }

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a blob, replacing any existing object at key. Conditions in opts
// are checked against the current object under the write lock.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.TrimSpace(key) == "" {
		return core.Info{}, fmt.Errorf("empty key")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := sha256.Sum256(b)
	info := core.Info{Key: key, Size: int64(len(b)), ContentType: opts.ContentType, ETag: hex.EncodeToString(sum[:]), LastModified: time.Now().UTC()}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, exists := s.objs[key]
	if err := core.CheckPrecondition(opts, exists, prev.info.ETag); err != nil {
		return core.Info{}, fmt.Errorf("%s: %w", key, err)
	}
	s.objs[key] = blobEntry{info: info, data: b}
	return info, nil
}

// Get returns blob metadata and a read closer over a copy of its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("%s: %w", key, core.ErrNotFound)
	}
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	return obj.info, io.NopCloser(bytes.NewReader(dataCopy)), nil
}
