package resilience

import (
	"context"
	"time"
)

// Guard composes a breaker, retries and a per-attempt deadline. The zero
// value runs operations directly.
type Guard struct {
	breaker  *Breaker
	backoff  *Backoff
	deadline time.Duration
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// NewGuard creates a Guard.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithBreaker adds a breaker.
func WithBreaker(b *Breaker) GuardOption {
	return func(g *Guard) { g.breaker = b }
}

// WithBackoff adds retries.
func WithBackoff(b Backoff) GuardOption {
	return func(g *Guard) { g.backoff = &b }
}

// WithDeadline bounds each attempt.
func WithDeadline(d time.Duration) GuardOption {
	return func(g *Guard) { g.deadline = d }
}

// Breaker returns the configured breaker, or nil.
func (g *Guard) Breaker() *Breaker {
	return g.breaker
}

// Do runs op. The breaker sees the outcome of the whole retry sequence, and
// each attempt is bounded by the deadline.
func (g *Guard) Do(ctx context.Context, op func(context.Context) error) error {
	if g == nil {
		return op(ctx)
	}

	run := op
	if g.deadline > 0 {
		inner := run
		run = func(ctx context.Context) error {
			return RunWithin(ctx, g.deadline, inner)
		}
	}
	if g.backoff != nil {
		inner, b := run, *g.backoff
		run = func(ctx context.Context) error {
			return b.Execute(ctx, inner)
		}
	}
	if g.breaker != nil {
		inner := run
		run = func(ctx context.Context) error {
			return g.breaker.Execute(ctx, inner)
		}
	}
	return run(ctx)
}
