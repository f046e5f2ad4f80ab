package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records a read and whether it was served from cache.
	RecordLookup(ctx context.Context, meta CacheMeta, hit bool)

	// RecordStore records a write; err is non-nil when the write was dropped.
	RecordStore(ctx context.Context, meta CacheMeta, err error)

	// RecordEviction records entries removed by a capacity bound.
	RecordEviction(ctx context.Context, meta CacheMeta, n int)

	// RecordCompute records an underlying computation run on a miss.
	RecordCompute(ctx context.Context, meta CacheMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	lookups     metric.Int64Counter
	stores      metric.Int64Counter
	storeErrors metric.Int64Counter
	evictions   metric.Int64Counter
	computeHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Cache reads, labelled by hit or miss"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	stores, err := meter.Int64Counter(
		"cache.stores",
		metric.WithDescription("Cache writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	storeErrors, err := meter.Int64Counter(
		"cache.store_errors",
		metric.WithDescription("Cache writes dropped because the backend failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Entries evicted by a max-items bound"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	computeHist, err := meter.Float64Histogram(
		"cache.compute.duration_ms",
		metric.WithDescription("Duration of computations run on a cache miss"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:     lookups,
		stores:      stores,
		storeErrors: storeErrors,
		evictions:   evictions,
		computeHist: computeHist,
	}, nil
}

func metaAttrs(meta CacheMeta, extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := []attribute.KeyValue{
		attribute.String("cache.component", meta.component()),
	}
	if meta.Name != "" {
		attrs = append(attrs, attribute.String("cache.name", meta.Name))
	}
	if meta.Backend != "" {
		attrs = append(attrs, attribute.String("cache.backend", meta.Backend))
	}
	return metric.WithAttributes(append(attrs, extra...)...)
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta CacheMeta, hit bool) {
	m.lookups.Add(ctx, 1, metaAttrs(meta, attribute.Bool("cache.hit", hit)))
}

func (m *metricsImpl) RecordStore(ctx context.Context, meta CacheMeta, err error) {
	opt := metaAttrs(meta)
	m.stores.Add(ctx, 1, opt)
	if err != nil {
		m.storeErrors.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordEviction(ctx context.Context, meta CacheMeta, n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metaAttrs(meta))
}

func (m *metricsImpl) RecordCompute(ctx context.Context, meta CacheMeta, duration time.Duration, err error) {
	m.computeHist.Record(ctx, float64(duration.Milliseconds()),
		metaAttrs(meta, attribute.Bool("cache.error", err != nil)))
}

type nopMetrics struct{}

func (nopMetrics) RecordLookup(context.Context, CacheMeta, bool)                  {}
func (nopMetrics) RecordStore(context.Context, CacheMeta, error)                  {}
func (nopMetrics) RecordEviction(context.Context, CacheMeta, int)                 {}
func (nopMetrics) RecordCompute(context.Context, CacheMeta, time.Duration, error) {}
