// Package core holds the serialized collection Store and the Service that
// validates, logs and measures every operation on top of it.
package core

import (
	"checklist/pkg/domain"
	"context"
	"time"
)

// Operation names reported to loggers and metrics.
const (
	OpCreate      = "create"
	OpList        = "list"
	OpGet         = "get"
	OpToggle      = "toggle"
	OpSetPriority = "set_priority"
	OpDelete      = "delete"
)

// Logger is the structured logger used by Service. *log.Logger from
// charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(interface{}, ...interface{}) {}
func (noopLogger) Info(interface{}, ...interface{})  {}
func (noopLogger) Warn(interface{}, ...interface{})  {}
func (noopLogger) Error(interface{}, ...interface{}) {}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// Service is the entry point used by the HTTP adapter and the CLI. It
// validates raw input, delegates to the Store and reports each call.
type Service struct {
	store   *Store
	logger  Logger
	metrics MetricsRecorder
}

// NewService wraps store.
func NewService(store *Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: noopLogger{}, metrics: noopMetricsRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the collection schema served by this service.
func (s *Service) Schema() domain.Schema { return s.store.Schema() }

// Store returns the underlying store.
func (s *Service) Store() *Store { return s.store }

func (s *Service) observe(ctx context.Context, op, id string, started time.Time, err error) {
	collection := s.store.Schema().Name
	s.metrics.Observe(ctx, collection, op, err == nil, time.Since(started))
	kv := []interface{}{"collection", collection, "op", op}
	if id != "" {
		kv = append(kv, "id", id)
	}
	switch {
	case err == nil:
		s.logger.Debug("operation complete", kv...)
	case domain.IsValidation(err), domain.IsNotFound(err):
		s.logger.Info("operation rejected", append(kv, "err", err)...)
	default:
		s.logger.Error("operation failed", append(kv, "err", err)...)
	}
}

// Create validates both labels and appends a new record.
func (s *Service) Create(ctx context.Context, primary, secondary string) (rec domain.Record, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, OpCreate, rec.ID, started, err) }()
	input, err := s.store.Schema().ValidateCreate(primary, secondary)
	if err != nil {
		return domain.Record{}, err
	}
	return s.store.Create(ctx, input)
}

// List returns the collection in insertion order.
func (s *Service) List(ctx context.Context) (records []domain.Record, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, OpList, "", started, err) }()
	return s.store.List(ctx)
}

// ListSorted returns the collection ordered by ascending priority.
func (s *Service) ListSorted(ctx context.Context) ([]domain.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SortByPriority(records), nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (rec domain.Record, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, OpGet, id, started, err) }()
	return s.store.Get(ctx, id)
}

// ToggleChecked flips a record's checked flag.
func (s *Service) ToggleChecked(ctx context.Context, id string) (rec domain.Record, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, OpToggle, id, started, err) }()
	return s.store.ToggleChecked(ctx, id)
}

// SetPriority parses raw (int, float, json.Number or string) and assigns it.
func (s *Service) SetPriority(ctx context.Context, id string, raw any) (rec domain.Record, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, OpSetPriority, id, started, err) }()
	value, err := domain.ParsePriority(raw)
	if err != nil {
		return domain.Record{}, err
	}
	return s.store.SetPriority(ctx, id, value)
}

// Delete removes id and returns the remaining collection in insertion order,
// read inside the same cycle as the removal.
func (s *Service) Delete(ctx context.Context, id string) (remaining []domain.Record, removed bool, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, OpDelete, id, started, err) }()
	err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		removed = tx.Delete(id)
		remaining = tx.Snapshot().Records()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return remaining, removed, nil
}
