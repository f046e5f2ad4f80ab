package kvstore

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/memocache/resilience"
)

// GuardedStore runs every call to an underlying Store through a
// resilience.Guard.
type GuardedStore struct {
	inner Store
	guard *resilience.Guard
}

// Guarded wraps s. A nil guard passes calls straight through.
func Guarded(s Store, guard *resilience.Guard) *GuardedStore {
	return &GuardedStore{inner: s, guard: guard}
}

// Unwrap returns the underlying store.
func (g *GuardedStore) Unwrap() Store {
	return g.inner
}

// commit runs set under mu unless the attempt's context has ended. An
// attempt abandoned by its deadline keeps running after Do moves on, so
// only a live attempt may publish its result.
func commit(ctx context.Context, mu *sync.Mutex, set func()) error {
	mu.Lock()
	defer mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	set()
	return nil
}

// GetItem returns the value stored under key.
func (g *GuardedStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	var (
		mu    sync.Mutex
		value string
		found bool
	)
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		v, ok, err := g.inner.GetItem(ctx, key)
		if err != nil {
			return err
		}
		return commit(ctx, &mu, func() { value, found = v, ok })
	})
	if err != nil {
		return "", false, err
	}
	mu.Lock()
	defer mu.Unlock()
	return value, found, nil
}

// SetItem stores value under key. Quota rejections are returned unchanged
// and do not count against the breaker.
func (g *GuardedStore) SetItem(ctx context.Context, key, value string) error {
	return g.SetItemTTL(ctx, key, value, 0)
}

// SetItemTTL stores value under key with native expiry when the underlying
// store supports it.
func (g *GuardedStore) SetItemTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	var (
		mu       sync.Mutex
		quotaErr error
	)
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		err := SetWithTTL(ctx, g.inner, key, value, ttl)
		if isQuota(err) {
			return commit(ctx, &mu, func() { quotaErr = err })
		}
		return err
	})
	mu.Lock()
	defer mu.Unlock()
	if quotaErr != nil {
		return quotaErr
	}
	return err
}

// RemoveItem deletes key.
func (g *GuardedStore) RemoveItem(ctx context.Context, key string) error {
	return g.guard.Do(ctx, func(ctx context.Context) error {
		return g.inner.RemoveItem(ctx, key)
	})
}

var _ TTLStore = (*GuardedStore)(nil)
