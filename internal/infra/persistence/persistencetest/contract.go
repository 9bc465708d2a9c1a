// Package persistencetest holds behaviour checks shared by every collection
// backend.
package persistencetest

import (
	"checklist/pkg/domain"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Replace writes records as the whole collection.
func Replace(t testing.TB, b domain.Backend, schema domain.Schema, records []domain.Record) {
	t.Helper()
	err := b.Update(context.Background(), schema, func([]domain.Record, bool) ([]domain.Record, bool, error) {
		return records, true, nil
	})
	require.NoError(t, err)
}

// UpdateContract checks the Update semantics every backend shares. b must not
// hold the todos collection yet.
func UpdateContract(t *testing.T, b domain.Backend) {
	t.Helper()
	ctx := context.Background()
	schema := domain.TodoSchema

	err := b.Update(ctx, schema, func(current []domain.Record, ok bool) ([]domain.Record, bool, error) {
		assert.False(t, ok)
		assert.Empty(t, current)
		return nil, false, nil
	})
	require.NoError(t, err)
	_, ok, err := b.Load(ctx, schema)
	require.NoError(t, err)
	assert.False(t, ok, "an unchanged update must not create the collection")

	first := domain.Record{ID: "a", Priority: 2, PrimaryLabel: "ann", SecondaryLabel: "milk"}
	Replace(t, b, schema, []domain.Record{first})

	boom := errors.New("boom")
	err = b.Update(ctx, schema, func(current []domain.Record, ok bool) ([]domain.Record, bool, error) {
		assert.True(t, ok)
		assert.Equal(t, []domain.Record{first}, current)
		return append(current, domain.Record{ID: "b", Priority: 1, PrimaryLabel: "bob", SecondaryLabel: "eggs"}), true, boom
	})
	assert.ErrorIs(t, err, boom)
	records, ok, err := b.Load(ctx, schema)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []domain.Record{first}, records, "a failed update must not write")
}

// ConcurrentAppends runs perBackend goroutines against each backend, every
// goroutine appending one record through Update, and checks that no append
// was lost. The backends must share storage.
func ConcurrentAppends(t *testing.T, backends []domain.Backend, perBackend int) {
	t.Helper()
	ctx := context.Background()
	schema := domain.TodoSchema

	var wg sync.WaitGroup
	errs := make(chan error, len(backends)*perBackend)
	for i, b := range backends {
		for j := 0; j < perBackend; j++ {
			wg.Add(1)
			go func(b domain.Backend, id string) {
				defer wg.Done()
				errs <- b.Update(ctx, schema, func(current []domain.Record, _ bool) ([]domain.Record, bool, error) {
					return append(current, domain.Record{ID: id, Priority: 2, PrimaryLabel: "owner", SecondaryLabel: id}), true, nil
				})
			}(b, fmt.Sprintf("w%d-%d", i, j))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, ok, err := backends[0].Load(ctx, schema)
	require.NoError(t, err)
	require.True(t, ok)
	want := len(backends) * perBackend
	assert.Len(t, records, want)
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.ID] = true
	}
	for i := range backends {
		for j := 0; j < perBackend; j++ {
			id := fmt.Sprintf("w%d-%d", i, j)
			assert.True(t, seen[id], "lost update %s", id)
		}
	}
}
