package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueryTimeout bounds each Redis round trip.
const DefaultQueryTimeout = 2 * time.Second

// RedisStore keeps items as plain Redis strings.
// The caller owns the client lifecycle.
type RedisStore struct {
	client  redis.Cmdable
	prefix  string
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key as prefix + ":" + key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithQueryTimeout sets the per-call timeout.
func WithQueryTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.timeout = d }
}

// NewRedis creates a RedisStore over client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, timeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedis parses a redis:// URL and returns a store plus its client, which
// the caller must close.
func DialRedis(url string, opts ...RedisOption) (*RedisStore, *redis.Client, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: parse redis url: %w", err)
	}
	client := redis.NewClient(o)
	return NewRedis(client, opts...), client, nil
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

// GetItem returns the value stored under key.
func (s *RedisStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	v, err := s.client.Get(qctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: redis get: %w", err)
	}
	return v, true, nil
}

// SetItem stores value under key with no native expiry.
func (s *RedisStore) SetItem(ctx context.Context, key, value string) error {
	return s.SetItemTTL(ctx, key, value, 0)
}

// SetItemTTL stores value under key, letting Redis expire it after ttl when
// ttl > 0.
func (s *RedisStore) SetItemTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(qctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("kvstore: redis set: %w", err)
	}
	return nil
}

// RemoveItem deletes key.
func (s *RedisStore) RemoveItem(ctx context.Context, key string) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if err := s.client.Del(qctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("kvstore: redis del: %w", err)
	}
	return nil
}

var _ TTLStore = (*RedisStore)(nil)
