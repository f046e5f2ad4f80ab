package resilience

import (
	"context"
	"errors"
	"time"
)

// RunWithin runs op with a deadline of d. It returns ErrTimeout as soon as
// the deadline passes, even if op ignores its context; op keeps running in
// its own goroutine until it returns. A non-positive d runs op directly.
func RunWithin(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	if d <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
