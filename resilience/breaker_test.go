package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func failing(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})

	if b.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
	if b.cfg.Threshold != 5 {
		t.Errorf("Threshold = %d, want 5", b.cfg.Threshold)
	}
	if b.cfg.Cooldown != 30*time.Second {
		t.Errorf("Cooldown = %v, want 30s", b.cfg.Cooldown)
	}
	if b.cfg.Probes != 1 {
		t.Errorf("Probes = %d, want 1", b.cfg.Probes)
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker(BreakerConfig{Threshold: 3, Cooldown: time.Second, Now: clock.Now})
	storeErr := errors.New("connection refused")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Execute(ctx, failing(storeErr)); !errors.Is(err, storeErr) {
			t.Fatalf("Execute() = %v, want %v", err, storeErr)
		}
		if b.State() != StateClosed {
			t.Fatalf("after %d failures state = %v, want closed", i+1, b.State())
		}
	}

	_ = b.Execute(ctx, failing(storeErr))
	if b.State() != StateOpen {
		t.Fatalf("after 3 failures state = %v, want open", b.State())
	}

	err := b.Execute(ctx, func(context.Context) error {
		t.Error("op must not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 2})
	ctx := context.Background()

	_ = b.Execute(ctx, failing(errors.New("x")))
	_ = b.Execute(ctx, failing(nil))
	_ = b.Execute(ctx, failing(errors.New("x")))

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
	if b.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", b.Failures())
	}
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1})

	_ = b.Execute(context.Background(), failing(context.Canceled))

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var transitions []string
	b := NewBreaker(BreakerConfig{
		Threshold: 1,
		Cooldown:  time.Second,
		Now:       clock.Now,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	_ = b.Execute(ctx, failing(errors.New("down")))
	clock.Advance(time.Second)

	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if err := b.Execute(ctx, failing(nil)); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state after probe = %v, want closed", b.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, Now: clock.Now})
	ctx := context.Background()

	_ = b.Execute(ctx, failing(errors.New("down")))
	clock.Advance(time.Second)
	_ = b.Execute(ctx, failing(errors.New("still down")))

	if b.State() != StateOpen {
		t.Errorf("state = %v, want open", b.State())
	}
	clock.Advance(500 * time.Millisecond)
	if b.State() != StateOpen {
		t.Errorf("cooldown restarted from the failed probe; state = %v", b.State())
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, Now: clock.Now})
	ctx := context.Background()

	_ = b.Execute(ctx, failing(errors.New("down")))
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Execute(ctx, failing(nil)); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe = %v, want ErrCircuitOpen", err)
	}
	close(release)
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1})
	_ = b.Execute(context.Background(), failing(errors.New("down")))

	b.Reset()

	if b.State() != StateClosed || b.Failures() != 0 {
		t.Errorf("after Reset state = %v failures = %d", b.State(), b.Failures())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(99):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
