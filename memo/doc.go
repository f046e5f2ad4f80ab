// Package memo memoizes function results in a cache.Cache.
//
// A wrapper is built explicitly around the function it memoizes, in one of
// three shapes:
//
//   - Immediate wraps func(ctx, A) (R, error).
//   - Deferred wraps func(ctx, A) *Future[R]. Concurrent calls with equal
//     arguments share one in-flight future.
//   - Streamed wraps func(ctx, A) Stream[T]. Concurrent subscribers with
//     equal arguments share one in-flight producer; late subscribers get a
//     replay of what was already emitted. The full sequence is cached.
//
// Keys are derived from the argument with a cache.Keyer, inside a scope
// unique to the wrapper, so two wrappers never see each other's entries.
// Each wrapper keeps a bounded record of the keys it stored. When storing a
// new key would exceed Config.MaxItems, expired keys are dropped first and
// then the oldest stored key is evicted. Reads do not refresh a key's
// position, so eviction is FIFO among live keys, not LRU.
//
// Failures are never cached. A failed future or stream is delivered to every
// caller attached to it and the next call starts over.
//
// A caller abandoning its context detaches only itself. The shared producer
// keeps running and its result is cached even if every caller has left.
package memo
