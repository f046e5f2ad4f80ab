package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Backoff retries transient store failures with exponential delay.
type Backoff struct {
	// Attempts is the total number of attempts, including the first.
	// Default: 3
	Attempts int

	// Base is the delay before the first retry. Default: 20ms
	Base time.Duration

	// Max caps the delay between retries. Default: 1s
	Max time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Default: anything but ErrCircuitOpen and context errors.
	Retryable func(err error) bool
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Base <= 0 {
		b.Base = 20 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = time.Second
	}
	if b.Retryable == nil {
		b.Retryable = defaultRetryable
	}
	return b
}

func defaultRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCircuitOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// Execute runs op until it succeeds, returns a non-retryable error, or the
// attempts are used up. The last error is returned.
func (b Backoff) Execute(ctx context.Context, op func(context.Context) error) error {
	b = b.withDefaults()

	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if !b.Retryable(err) || attempt >= b.Attempts {
			return err
		}

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay doubles per attempt with up to 25% jitter, capped at Max.
func (b Backoff) delay(attempt int) time.Duration {
	d := b.Max
	if shift := attempt - 1; shift < 32 {
		if scaled := b.Base << shift; scaled > 0 && scaled < b.Max {
			d = scaled
		}
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int64N(q))
	}
	return d
}
