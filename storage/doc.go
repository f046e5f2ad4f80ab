// Package storage provides the storage engines behind the cache facade.
//
// An Engine is a small has/get/set/delete contract over a key/value medium.
// MemoryEngine keeps values in a map as given. PersistentEngine encodes
// values with a Serializer and keeps them in a kvstore.Store under an
// optional key prefix.
//
// Engines are obtained from a Registry, which builds one engine per
// (Kind, prefix) identity on first use and hands back that same instance on
// every later call, so callers naming the same backend share its contents.
// A Registry is an ordinary value: construct one, pass it to the components
// that need it, and construct another in tests for isolation.
//
// Persistent engines never fail a caller. Write failures are logged and
// dropped; undecodable entries are logged, removed and reported missing.
package storage
