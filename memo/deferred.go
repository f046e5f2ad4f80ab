package memo

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/memocache/cache"
)

// FutureFunc memoizes a function returning a Future. At most one future per
// key is in flight; concurrent callers attach to it.
type FutureFunc[A, R any] struct {
	*core
	fn     func(context.Context, A) *Future[R]
	flight singleflight.Group
}

// Deferred wraps fn.
func Deferred[A, R any](c *cache.Cache, cfg Config, fn func(context.Context, A) *Future[R]) *FutureFunc[A, R] {
	return &FutureFunc[A, R]{core: newCore(c, cfg), fn: fn}
}

// Call returns a future for the result for arg. The underlying future runs
// detached from ctx; cancelling ctx only settles the returned future with
// ctx.Err().
func (f *FutureFunc[A, R]) Call(ctx context.Context, arg A) *Future[R] {
	key, ok := f.key(ctx, arg)
	if !ok {
		if fut := f.fn(ctx, arg); fut != nil {
			return fut
		}
		return Failed[R](ErrNilFuture)
	}
	if v, ok := load[R](ctx, f.core, key); ok {
		return Resolved(v)
	}

	gen := f.generation()
	// Flights are per generation so calls after ClearCache start afresh.
	ch := f.flight.DoChan(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
		return f.produce(context.WithoutCancel(ctx), key, arg, gen)
	})

	out := newFuture[R]()
	go func() {
		select {
		case res := <-ch:
			v, _ := res.Val.(R)
			out.settle(v, res.Err)
		case <-ctx.Done():
			var zero R
			out.settle(zero, ctx.Err())
		}
	}()
	return out
}

// produce runs inside the flight. The result is stored before the flight
// returns, so it is visible to any caller that sees the flight complete.
func (f *FutureFunc[A, R]) produce(ctx context.Context, key string, arg A, gen uint64) (any, error) {
	// A flight for this key may have finished between our miss and DoChan.
	if v, ok := load[R](ctx, f.core, key); ok {
		return v, nil
	}

	var out R
	err := f.compute(ctx, func(ctx context.Context) error {
		var err error
		fut := f.fn(ctx, arg)
		if fut == nil {
			return ErrNilFuture
		}
		out, err = fut.Await(ctx)
		return err
	})
	if err != nil {
		return out, err
	}
	f.store(ctx, key, out, gen)
	return out, nil
}
