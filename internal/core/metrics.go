package core

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives one observation per service call.
type MetricsRecorder interface {
	Observe(ctx context.Context, collection, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, string, bool, time.Duration) {}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// PrometheusMetricsRecorder exports operation counters and latency histograms.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the checklist collectors on reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checklist",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by collection, operation and outcome.",
		}, []string{"collection", "op", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checklist",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection", "op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{r.operations, r.durations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, collection, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(collection, operation, statusLabel(success)).Inc()
	r.durations.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

var expvarSeq uint64

// ExpvarMetricsRecorder publishes aggregate timing and result counters via
// expvar, keyed "<collection>.<operation>".
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
}

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and publishes it
// under the supplied name. When name is empty, a unique identifier is generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("checklist_store_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}
	results := make(map[string]map[string]int64, len(r.results))
	for op, counts := range r.results {
		cpy := make(map[string]int64, len(counts))
		for status, n := range counts {
			cpy[status] = n
		}
		results[op] = cpy
	}
	return ExpvarMetricsSnapshot{DurationsMS: durations, Results: results, RecordedAt: time.Now().UTC()}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, collection, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	key := collection + "." + operation
	r.mu.Lock()
	r.durations[key] += float64(duration) / float64(time.Millisecond)
	if _, ok := r.results[key]; !ok {
		r.results[key] = make(map[string]int64, 2)
	}
	r.results[key][statusLabel(success)]++
	r.mu.Unlock()
}

// MultiMetricsRecorder fans observations out to several recorders.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, collection, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		if r != nil {
			r.Observe(ctx, collection, operation, success, duration)
		}
	}
}
