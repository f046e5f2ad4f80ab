package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/kvstore"
	"github.com/jonwraymond/memocache/resilience"
)

// probeKey is written and removed by probes.
const probeKey = "__memocache_health__"

// StoreCheck writes, reads back and removes a probe item.
func StoreCheck(s kvstore.Store) Checker {
	return CheckFunc(func(ctx context.Context) Result {
		want := strconv.FormatInt(time.Now().UnixNano(), 10)
		if err := s.SetItem(ctx, probeKey, want); err != nil {
			return Unhealthy("store write failed", err)
		}
		defer s.RemoveItem(context.WithoutCancel(ctx), probeKey)

		got, ok, err := s.GetItem(ctx, probeKey)
		switch {
		case err != nil:
			return Unhealthy("store read failed", err)
		case !ok || got != want:
			return Unhealthy("store lost the probe", ErrProbeMismatch)
		}
		return Healthy("store round trip ok")
	})
}

// BreakerCheck maps a breaker's state to a status: closed is healthy,
// half-open degraded, open unhealthy.
func BreakerCheck(b *resilience.Breaker) Checker {
	return CheckFunc(func(context.Context) Result {
		state := b.State()
		details := map[string]any{"state": state.String(), "failures": b.Failures()}
		switch state {
		case resilience.StateClosed:
			return Healthy("breaker closed").WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("breaker probing").WithDetails(details)
		default:
			return Unhealthy("breaker open", resilience.ErrCircuitOpen).WithDetails(details)
		}
	})
}

// CacheCheck sets and reads back a probe entry through the facade using
// opts. Facade writes never fail, so a lost probe is reported as degraded:
// the cache still answers, it just does not hold values.
func CacheCheck(c *cache.Cache, opts cache.Options) Checker {
	return CheckFunc(func(ctx context.Context) Result {
		want := strconv.FormatInt(time.Now().UnixNano(), 10)
		probe := opts
		probe.TTL = time.Minute
		c.Set(ctx, probeKey, want, probe)
		defer c.Delete(context.WithoutCancel(ctx), probeKey, probe)

		got, ok := cache.GetAs[string](ctx, c, probeKey, probe)
		if !ok || got != want {
			return Degraded(fmt.Sprintf("%s backend did not retain the probe", backendName(opts)))
		}
		return Healthy(backendName(opts) + " backend ok")
	})
}

func backendName(opts cache.Options) string {
	if opts.Backend == "" {
		return "memory"
	}
	return string(opts.Backend)
}
