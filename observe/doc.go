// Package observe provides observability primitives for the cache layers.
//
// It is a pure instrumentation library: structured JSON logging, otel
// metrics for lookups/stores/evictions, and spans around expensive
// computations. The storage, cache, memo and httpcache packages accept a
// Telemetry value and default to a no-op one.
package observe
