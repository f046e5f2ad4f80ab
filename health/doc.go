// Package health reports whether the stores behind a cache are usable.
//
// Checks are small probes: a round trip through a kvstore.Store, the state
// of a resilience.Breaker, or a set-and-get through a cache.Cache. An
// Aggregator runs them in parallel under a timeout and folds the results
// into one Status; Handler serves the report as JSON.
//
// Usage:
//
//	agg := health.NewAggregator(2 * time.Second)
//	agg.Register("local.store", health.StoreCheck(store))
//	agg.Register("local.breaker", health.BreakerCheck(breaker))
//	report := agg.Report(ctx)
package health
