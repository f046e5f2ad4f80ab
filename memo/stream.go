package memo

import (
	"context"
	"sync"

	"github.com/jonwraymond/memocache/cache"
)

// Stream is a push-based source of values.
//
// Contract:
//   - Subscribe calls next for each value in order, from one goroutine, and
//     returns once the stream completes: nil on success, the stream's error
//     on failure, or ctx.Err() if the subscriber gave up first.
type Stream[T any] interface {
	Subscribe(ctx context.Context, next func(T)) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc[T any] func(ctx context.Context, next func(T)) error

// Subscribe calls s.
func (s StreamFunc[T]) Subscribe(ctx context.Context, next func(T)) error {
	return s(ctx, next)
}

// StreamOf returns a stream emitting values and completing.
func StreamOf[T any](values ...T) Stream[T] {
	return StreamFunc[T](func(ctx context.Context, next func(T)) error {
		for _, v := range values {
			if err := ctx.Err(); err != nil {
				return err
			}
			next(v)
		}
		return nil
	})
}

// Collect subscribes to s and returns every value it emits.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	var out []T
	err := s.Subscribe(ctx, func(v T) {
		out = append(out, v)
	})
	return out, err
}

// broadcast fans one producer out to any number of subscribers, replaying
// earlier values to subscribers that join late.
type broadcast[T any] struct {
	mu     sync.Mutex
	values []T
	done   bool
	err    error
	notify chan struct{}
}

func newBroadcast[T any]() *broadcast[T] {
	return &broadcast[T]{notify: make(chan struct{})}
}

func (b *broadcast[T]) emit(v T) {
	b.mu.Lock()
	b.values = append(b.values, v)
	b.wakeLocked()
	b.mu.Unlock()
}

func (b *broadcast[T]) finish(err error) {
	b.mu.Lock()
	b.done, b.err = true, err
	b.wakeLocked()
	b.mu.Unlock()
}

func (b *broadcast[T]) wakeLocked() {
	close(b.notify)
	b.notify = make(chan struct{})
}

// snapshot returns a copy of every value emitted so far.
func (b *broadcast[T]) snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]T(nil), b.values...)
}

func (b *broadcast[T]) subscribe(ctx context.Context, next func(T)) error {
	seen := 0
	for {
		b.mu.Lock()
		pending := b.values[seen:len(b.values):len(b.values)]
		done, err, wake := b.done, b.err, b.notify
		b.mu.Unlock()

		for _, v := range pending {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			next(v)
		}
		seen += len(pending)

		if done {
			return err
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// StreamCache memoizes a function returning a Stream. At most one producer
// per key runs at a time; the complete sequence it emitted is cached.
type StreamCache[A, T any] struct {
	*core
	fn func(context.Context, A) Stream[T]

	mu      sync.Mutex
	flights map[string]*broadcast[T]
}

// Streamed wraps fn.
func Streamed[A, T any](c *cache.Cache, cfg Config, fn func(context.Context, A) Stream[T]) *StreamCache[A, T] {
	return &StreamCache[A, T]{
		core:    newCore(c, cfg),
		fn:      fn,
		flights: make(map[string]*broadcast[T]),
	}
}

// Call returns a stream of the results for arg. Nothing runs until the
// stream is subscribed. A cached sequence is replayed; otherwise the
// subscriber attaches to the in-flight producer for arg, starting one if
// needed. The producer runs detached from every subscriber's context.
func (s *StreamCache[A, T]) Call(_ context.Context, arg A) Stream[T] {
	return StreamFunc[T](func(ctx context.Context, next func(T)) error {
		return s.subscribe(ctx, arg, next)
	})
}

func (s *StreamCache[A, T]) subscribe(ctx context.Context, arg A, next func(T)) error {
	key, ok := s.key(ctx, arg)
	if !ok {
		src := s.fn(ctx, arg)
		if src == nil {
			return ErrNilStream
		}
		return src.Subscribe(ctx, next)
	}

	s.mu.Lock()
	b, inflight := s.flights[key]
	if !inflight {
		if values, ok := load[[]T](ctx, s.core, key); ok {
			s.mu.Unlock()
			return StreamOf(values...).Subscribe(ctx, next)
		}
		b = newBroadcast[T]()
		s.flights[key] = b
		go s.produce(context.WithoutCancel(ctx), key, arg, b, s.generation())
	}
	s.mu.Unlock()

	return b.subscribe(ctx, next)
}

// produce drives the underlying stream. On success the sequence is stored
// before subscribers are told the stream completed.
func (s *StreamCache[A, T]) produce(ctx context.Context, key string, arg A, b *broadcast[T], gen uint64) {
	err := s.compute(ctx, func(ctx context.Context) error {
		src := s.fn(ctx, arg)
		if src == nil {
			return ErrNilStream
		}
		return src.Subscribe(ctx, b.emit)
	})
	if err == nil {
		s.store(ctx, key, b.snapshot(), gen)
	}

	s.mu.Lock()
	if s.flights[key] == b {
		delete(s.flights, key)
	}
	s.mu.Unlock()

	b.finish(err)
}

// ClearCache removes every sequence this wrapper stored. Producers still in
// flight finish for their subscribers but their sequences are not stored.
func (s *StreamCache[A, T]) ClearCache(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights = make(map[string]*broadcast[T])
	s.core.ClearCache(ctx)
}

// InFlight returns the number of producers currently running.
func (s *StreamCache[A, T]) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flights)
}
