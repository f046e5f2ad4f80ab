// Package resilience guards calls to persistent cache stores.
//
// Stores behind the persistent engines live outside the process (a SQLite
// file, a Redis server). A cache must never make the caller slower or less
// available than computing the value directly, so every store round trip can
// be run through a Guard that combines:
//
//   - Breaker: stops calling a store after consecutive failures and probes
//     it again after a cooldown.
//
//   - Backoff: retries transient failures a bounded number of times.
//
//   - Deadline: bounds a single attempt.
//
// # Usage
//
//	guard := resilience.NewGuard(
//	    resilience.WithBreaker(resilience.NewBreaker(resilience.BreakerConfig{
//	        Threshold: 5,
//	        Cooldown:  30 * time.Second,
//	    })),
//	    resilience.WithDeadline(250*time.Millisecond),
//	)
//
//	err := guard.Do(ctx, func(ctx context.Context) error {
//	    return rdb.Set(ctx, key, value, 0).Err()
//	})
//
// Errors returned by Do are the store's own errors, ErrCircuitOpen or
// ErrTimeout. Callers in this module log them and treat the cache operation
// as a miss or a dropped write.
package resilience
