package memo

import (
	"context"

	"github.com/jonwraymond/memocache/cache"
)

// Func memoizes a synchronous function.
// Concurrent misses for one key each call fn; use Deferred to coalesce.
type Func[A, R any] struct {
	*core
	fn func(context.Context, A) (R, error)
}

// Immediate wraps fn.
func Immediate[A, R any](c *cache.Cache, cfg Config, fn func(context.Context, A) (R, error)) *Func[A, R] {
	return &Func[A, R]{core: newCore(c, cfg), fn: fn}
}

// Call returns the cached result for arg, or calls fn and caches its result.
// Errors are returned uncached.
func (f *Func[A, R]) Call(ctx context.Context, arg A) (R, error) {
	key, ok := f.key(ctx, arg)
	if !ok {
		return f.fn(ctx, arg)
	}
	if v, ok := load[R](ctx, f.core, key); ok {
		return v, nil
	}

	gen := f.generation()
	var out R
	err := f.compute(ctx, func(ctx context.Context) error {
		var err error
		out, err = f.fn(ctx, arg)
		return err
	})
	if err != nil {
		return out, err
	}
	f.store(ctx, key, out, gen)
	return out, nil
}
