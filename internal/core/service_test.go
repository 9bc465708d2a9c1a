package core

import (
	"bytes"
	"checklist/internal/infra/persistence/memory"
	"checklist/internal/logging"
	"checklist/pkg/domain"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metricsCall struct {
	collection string
	op         string
	success    bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, collection, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{collection: collection, op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, schema domain.Schema, opts ...ServiceOption) *Service {
	t.Helper()
	store, err := NewStore(context.Background(), schema, memory.NewStore())
	require.NoError(t, err)
	return NewService(store, opts...)
}

func TestServiceCreateValidates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, domain.TodoSchema)

	for _, tc := range []struct{ primary, secondary, msg string }{
		{"", "x", "missing owner"},
		{"x", "", "missing todo"},
		{"   ", "x", "missing owner"},
	} {
		_, err := svc.Create(ctx, tc.primary, tc.secondary)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
		assert.Equal(t, tc.msg, err.Error())
	}
	records, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "rejected creates leave the collection unchanged")

	rec, err := svc.Create(ctx, "  ann ", " milk ")
	require.NoError(t, err)
	assert.Equal(t, "ann", rec.PrimaryLabel)
	assert.Equal(t, "milk", rec.SecondaryLabel)
}

func TestServicePlayerMessages(t *testing.T) {
	svc := newTestService(t, domain.PlayerSchema)
	_, err := svc.Create(context.Background(), "Ada", "")
	assert.EqualError(t, err, "missing lastName")
}

func TestServiceListSortedIsStable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, domain.TodoSchema)
	ids := map[string]string{}
	for _, item := range []struct {
		name string
		prio int
	}{{"A", 3}, {"B", 1}, {"C", 2}, {"D", 1}} {
		rec, err := svc.Create(ctx, "owner", item.name)
		require.NoError(t, err)
		_, err = svc.SetPriority(ctx, rec.ID, item.prio)
		require.NoError(t, err)
		ids[rec.ID] = item.name
	}
	sorted, err := svc.ListSorted(ctx)
	require.NoError(t, err)
	var order []string
	for _, r := range sorted {
		order = append(order, ids[r.ID])
	}
	assert.Equal(t, []string{"B", "D", "C", "A"}, order)

	raw, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", ids[raw[0].ID], "stored order stays insertion order")
}

func TestServiceSetPriorityParsesRawValues(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, domain.TodoSchema)
	rec, _ := svc.Create(ctx, "ann", "milk")

	for _, raw := range []any{"1", 2.0, json.Number("3"), 1} {
		_, err := svc.SetPriority(ctx, rec.ID, raw)
		assert.NoError(t, err, "%v", raw)
	}
	for _, raw := range []any{"high", 2.5, 0, 4, nil, true} {
		_, err := svc.SetPriority(ctx, rec.ID, raw)
		assert.True(t, domain.IsValidation(err), "%v", raw)
	}
	_, err := svc.SetPriority(ctx, "missing", 2)
	assert.True(t, domain.IsNotFound(err))
}

func TestServiceDeleteReturnsRemaining(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, domain.TodoSchema)
	a, _ := svc.Create(ctx, "ann", "milk")
	b, _ := svc.Create(ctx, "bob", "eggs")

	remaining, removed, err := svc.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []domain.Record{b}, remaining)

	remaining, removed, err = svc.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, []domain.Record{b}, remaining)
}

func TestServiceObservability(t *testing.T) {
	ctx := context.Background()
	metrics := &captureMetricsRecorder{}
	var buf bytes.Buffer
	logger := logging.NewFromConfig(&buf, "debug", "json", false)
	svc := newTestService(t, domain.TodoSchema, WithMetricsRecorder(metrics), WithLogger(logger))

	rec, err := svc.Create(ctx, "ann", "milk")
	require.NoError(t, err)
	_, _ = svc.Create(ctx, "", "milk")
	_, _ = svc.ToggleChecked(ctx, rec.ID)
	_, _ = svc.ToggleChecked(ctx, "missing")
	_, _ = svc.Get(ctx, rec.ID)
	_, _, _ = svc.Delete(ctx, rec.ID)

	assert.True(t, metrics.has(OpCreate, true))
	assert.True(t, metrics.has(OpCreate, false))
	assert.True(t, metrics.has(OpToggle, true))
	assert.True(t, metrics.has(OpToggle, false))
	assert.True(t, metrics.has(OpGet, true))
	assert.True(t, metrics.has(OpDelete, true))
	for _, call := range metrics.calls {
		assert.Equal(t, "todos", call.collection)
	}

	var ops []string
	var msgs []string
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if op, ok := entry["op"].(string); ok {
			ops = append(ops, op)
		}
		msgs = append(msgs, entry["msg"].(string))
	}
	assert.Contains(t, ops, OpCreate)
	assert.Contains(t, ops, OpDelete)
	assert.Contains(t, msgs, "operation rejected")
	assert.Contains(t, buf.String(), rec.ID)
}

func TestNoopLogger(t *testing.T) {
	logger := noopLogger{}
	assert.NotPanics(t, func() {
		logger.Debug("test message", "arg1", "arg2")
		logger.Info("test message", "arg1", "arg2")
		logger.Warn("test message", "arg1", "arg2")
		logger.Error("test message", "arg1", "arg2")
	})
	svc := NewService(nil, WithLogger(nil), WithMetricsRecorder(nil))
	assert.IsType(t, noopLogger{}, svc.logger)
	assert.IsType(t, noopMetricsRecorder{}, svc.metrics)
}
