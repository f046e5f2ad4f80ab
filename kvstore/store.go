package kvstore

import (
	"context"
	"time"
)

// Store is a string-only key/value store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - GetItem reports a missing key as ("", false, nil), never as an error.
//   - RemoveItem of a missing key is not an error.
type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// TTLStore is implemented by stores that can expire items on their own.
// A non-positive ttl behaves like SetItem.
type TTLStore interface {
	Store
	SetItemTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// SetWithTTL writes through SetItemTTL when s supports it and ttl > 0, and
// through SetItem otherwise.
func SetWithTTL(ctx context.Context, s Store, key, value string, ttl time.Duration) error {
	if ts, ok := s.(TTLStore); ok && ttl > 0 {
		return ts.SetItemTTL(ctx, key, value, ttl)
	}
	return s.SetItem(ctx, key, value)
}
