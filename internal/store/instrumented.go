package store

import (
	"context"
	"errors"
	"time"

	"github.com/alecthomas/types/optional"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Operation result labels.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

// Instrumented wraps a Store and records Prometheus metrics and debug logs
// for every call.
type Instrumented struct {
	next     Store
	logger   *zap.Logger
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ Store = (*Instrumented)(nil)

// NewInstrumented wraps next. Metrics are registered with reg; a nil reg
// leaves them unregistered.
func NewInstrumented(next Store, logger *zap.Logger, reg prometheus.Registerer) *Instrumented {
	factory := promauto.With(reg)

	return &Instrumented{
		next:   next,
		logger: logger,
		total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "items_store_operations_total",
				Help: "Total number of item store operations",
			},
			[]string{"operation", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "items_store_operation_duration_seconds",
				Help:    "Item store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (s *Instrumented) observe(operation string, start time.Time, err error) {
	result := resultOK
	switch {
	case errors.Is(err, ErrNotFound):
		result = resultNotFound
	case err != nil:
		result = resultError
	}

	elapsed := time.Since(start)
	s.total.WithLabelValues(operation, result).Inc()
	s.duration.WithLabelValues(operation).Observe(elapsed.Seconds())

	s.logger.Debug("store operation",
		zap.String("operation", operation),
		zap.String("result", result),
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)
}

// Insert implements Store.
func (s *Instrumented) Insert(ctx context.Context, item *model.Item) (*model.Item, error) {
	start := time.Now()
	created, err := s.next.Insert(ctx, item)
	s.observe("insert", start, err)
	return created, err
}

// FindByID implements Store.
func (s *Instrumented) FindByID(ctx context.Context, id int64) (optional.Option[model.Item], error) {
	start := time.Now()
	item, err := s.next.FindByID(ctx, id)
	if err == nil && !item.Ok() {
		s.observe("find_by_id", start, ErrNotFound)
	} else {
		s.observe("find_by_id", start, err)
	}
	return item, err
}

// FindAll implements Store.
func (s *Instrumented) FindAll(ctx context.Context) ([]model.Item, error) {
	start := time.Now()
	items, err := s.next.FindAll(ctx)
	s.observe("find_all", start, err)
	return items, err
}

// ExistsByID implements Store.
func (s *Instrumented) ExistsByID(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	exists, err := s.next.ExistsByID(ctx, id)
	s.observe("exists_by_id", start, err)
	return exists, err
}

// DeleteByID implements Store.
func (s *Instrumented) DeleteByID(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.next.DeleteByID(ctx, id)
	s.observe("delete_by_id", start, err)
	return err
}

// Update implements Store.
func (s *Instrumented) Update(ctx context.Context, item *model.Item) (*model.Item, error) {
	start := time.Now()
	updated, err := s.next.Update(ctx, item)
	s.observe("update", start, err)
	return updated, err
}

// Ping implements Store.
func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close implements Store.
func (s *Instrumented) Close() error {
	return s.next.Close()
}
