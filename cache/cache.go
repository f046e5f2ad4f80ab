package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/storage"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 2048

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrCyclicInput is returned by keyers for a map or slice that contains itself.
	ErrCyclicInput = errors.New("cache: input contains a cycle")
)

// Options selects where and how long an entry is kept.
type Options struct {
	// TTL is how long a written entry stays fresh. Zero applies the cache
	// policy default; negative never expires. Ignored by reads.
	TTL time.Duration

	// Backend selects the storage kind. Default: storage.KindMemory.
	Backend storage.Kind

	// Prefix namespaces keys within the backend.
	Prefix string
}

func (o Options) meta() observe.CacheMeta {
	backend := o.Backend
	if backend == "" {
		backend = storage.KindMemory
	}
	return observe.CacheMeta{Component: "facade", Backend: string(backend), Prefix: o.Prefix}
}

// Cache is the has/get/set/delete facade over a storage.Registry.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: no method fails the caller. Invalid keys and unknown backends
//     read as misses and make writes no-ops; both are logged.
type Cache struct {
	reg    *storage.Registry
	policy Policy
	now    func() time.Time
	tel    observe.Telemetry
}

// Option configures a Cache.
type Option func(*Cache)

// WithPolicy sets the TTL policy. Default: DefaultPolicy().
func WithPolicy(p Policy) Option {
	return func(c *Cache) { c.policy = p }
}

// WithClock sets the clock used for expiry. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTelemetry sets the telemetry used for lookup metrics and logs.
func WithTelemetry(t observe.Telemetry) Option {
	return func(c *Cache) { c.tel = t }
}

// New creates a Cache over reg. A nil reg gets a private registry.
func New(reg *storage.Registry, opts ...Option) *Cache {
	if reg == nil {
		reg = storage.NewRegistry()
	}
	c := &Cache{
		reg:    reg,
		policy: DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tel = c.tel.OrNop()
	c.tel.Logger = c.tel.Logger.WithCache(observe.CacheMeta{Component: "facade"})
	return c
}

// Policy returns the TTL policy applied to writes.
func (c *Cache) Policy() Policy {
	return c.policy
}

// Registry returns the registry engines are resolved from.
func (c *Cache) Registry() *storage.Registry {
	return c.reg
}

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time {
	return c.now()
}

func (c *Cache) engine(ctx context.Context, key string, opts Options) (storage.Engine, bool) {
	if err := ValidateKey(key); err != nil {
		c.tel.Logger.Debug(ctx, "rejecting cache key", observe.F("error", err), observe.F("key_length", len(key)))
		return nil, false
	}
	e, err := c.reg.Resolve(opts.Backend, opts.Prefix)
	if err != nil {
		c.tel.Logger.Warn(ctx, "cannot resolve storage engine", observe.F("error", err))
		return nil, false
	}
	return e, true
}

// Has reports whether a fresh entry exists for key.
func (c *Cache) Has(ctx context.Context, key string, opts Options) bool {
	engine, ok := c.engine(ctx, key, opts)
	if !ok {
		return false
	}
	_, hit := c.lookup(ctx, engine, key)
	c.tel.Metrics.RecordLookup(ctx, opts.meta(), hit)
	return hit
}

// Get returns the value of the fresh entry for key.
func (c *Cache) Get(ctx context.Context, key string, opts Options) (any, bool) {
	engine, ok := c.engine(ctx, key, opts)
	if !ok {
		return nil, false
	}
	e, hit := c.lookup(ctx, engine, key)
	c.tel.Metrics.RecordLookup(ctx, opts.meta(), hit)
	if !hit {
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key for the TTL selected by opts and the policy.
func (c *Cache) Set(ctx context.Context, key string, value any, opts Options) {
	engine, ok := c.engine(ctx, key, opts)
	if !ok {
		return
	}
	ttl := c.policy.EffectiveTTL(opts.TTL)
	engine.Set(ctx, key, NewEntry(value, ttl, c.now()), storage.WithTTLHint(ttl))
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string, opts Options) {
	if engine, ok := c.engine(ctx, key, opts); ok {
		engine.Delete(ctx, key)
	}
}

// GetAs returns the fresh value for key as a T. Values decoded generically by
// a persistent engine are converted with that engine's serializer; a value
// that cannot be converted reads as a miss.
func GetAs[T any](ctx context.Context, c *Cache, key string, opts Options) (T, bool) {
	var zero T

	v, ok := c.Get(ctx, key, opts)
	if !ok {
		return zero, false
	}
	if typed, ok := v.(T); ok {
		return typed, true
	}

	engine, ok := c.engine(ctx, key, opts)
	if !ok {
		return zero, false
	}
	var out T
	if err := storage.Convert(engine, v, &out); err != nil {
		c.tel.Logger.Warn(ctx, "cached value has unexpected type",
			observe.F("want", fmt.Sprintf("%T", zero)),
			observe.F("error", err),
		)
		return zero, false
	}
	return out, true
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
