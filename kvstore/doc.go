// Package kvstore provides string key/value stores used as the medium behind
// persistent cache engines.
//
// A Store only deals in strings: GetItem, SetItem and RemoveItem. Encoding of
// structured values is the caller's job (see package storage). Three stores
// are provided:
//
//   - SessionStore: a process-local map with a byte quota.
//   - SQLiteStore: a table in a SQLite database (modernc.org/sqlite, no cgo).
//   - RedisStore: keys in a Redis database (github.com/redis/go-redis/v9).
//
// Stores that can expire data natively also implement TTLStore. Expiry is
// always enforced by the cache layer above; native expiry only lets the
// backend reclaim space for entries nobody reads again.
//
// Guarded wraps any Store with a resilience.Guard so that an unreachable
// backend trips a breaker instead of slowing every cache call.
package kvstore
