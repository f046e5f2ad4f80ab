// Package cache provides the TTL cache facade used by memoized functions and
// the HTTP response cache.
//
// A Cache stores Entry values, each an opaque value plus an optional
// absolute expiry, in the storage engine selected per call by Options
// (backend kind and prefix). Expiry is lazy: a read that finds an expired
// entry deletes it and reports a miss. Nothing sweeps in the background.
//
// The package also provides the TTL Policy applied to every write and the
// Keyer used to derive deterministic keys from structured arguments.
package cache
