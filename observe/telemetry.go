package observe

import (
	"context"
	"time"
)

// ExecuteFunc is a unit of work instrumented by Telemetry.Wrap.
type ExecuteFunc func(ctx context.Context, meta CacheMeta) error

// Telemetry bundles the tracer, metrics and logger handed to cache
// components. The zero value is not usable; start from Nop or FromObserver.
//
// Contract:
//   - Concurrency: all members are safe for concurrent use.
//   - Errors: errors from wrapped functions are recorded and propagated unchanged.
type Telemetry struct {
	Tracer  Tracer
	Metrics Metrics
	Logger  Logger
}

// Nop returns Telemetry that records nothing.
func Nop() Telemetry {
	return Telemetry{
		Tracer:  NewNopTracer(),
		Metrics: nopMetrics{},
		Logger:  NewNopLogger(),
	}
}

// FromObserver builds Telemetry from an Observer.
func FromObserver(obs Observer) (Telemetry, error) {
	if obs == nil {
		return Nop(), nil
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return Telemetry{}, err
	}
	return Telemetry{
		Tracer:  NewTracer(obs.Tracer()),
		Metrics: metrics,
		Logger:  obs.Logger(),
	}, nil
}

// OrNop fills any nil member with its no-op counterpart.
func (t Telemetry) OrNop() Telemetry {
	nop := Nop()
	if t.Tracer == nil {
		t.Tracer = nop.Tracer
	}
	if t.Metrics == nil {
		t.Metrics = nop.Metrics
	}
	if t.Logger == nil {
		t.Logger = nop.Logger
	}
	return t
}

// Wrap instruments fn with a span, a compute-duration sample and a log line.
func (t Telemetry) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta CacheMeta) error {
		ctx, span := t.Tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		t.Tracer.EndSpan(span, err)
		t.Metrics.RecordCompute(ctx, meta, duration, err)

		logger := t.Logger.WithCache(meta)
		fields := []Field{F("duration_ms", float64(duration.Milliseconds()))}
		if err != nil {
			logger.Warn(ctx, "cache computation failed", append(fields, F("error", err))...)
		} else {
			logger.Debug(ctx, "cache computation completed", fields...)
		}
		return err
	}
}
