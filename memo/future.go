package memo

import (
	"context"
	"sync"
)

// Future is a single value that becomes available later.
type Future[R any] struct {
	done chan struct{}
	once sync.Once
	val  R
	err  error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns its eventual result.
func Go[R any](ctx context.Context, fn func(context.Context) (R, error)) *Future[R] {
	f := newFuture[R]()
	go func() {
		f.settle(fn(ctx))
	}()
	return f
}

// Resolved returns a settled Future holding v.
func Resolved[R any](v R) *Future[R] {
	f := newFuture[R]()
	f.settle(v, nil)
	return f
}

// Failed returns a settled Future holding err.
func Failed[R any](err error) *Future[R] {
	f := newFuture[R]()
	var zero R
	f.settle(zero, err)
	return f
}

func (f *Future[R]) settle(v R, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
