package memo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/storage"
)

// Config configures a memoized function.
type Config struct {
	// Name labels the wrapper in keys, logs and metrics. Default: "memo".
	Name string

	// TTL is how long a result stays cached. Non-positive never expires.
	TTL time.Duration

	// MaxItems bounds the number of cached results. Non-positive is unbounded.
	MaxItems int

	// Backend and Prefix select the storage engine for results.
	Backend storage.Kind
	Prefix  string

	// Keyer derives keys from arguments. Default: cache.NewDefaultKeyer().
	Keyer cache.Keyer

	// Telemetry instruments hits, computations and evictions.
	Telemetry observe.Telemetry
}

var instances atomic.Uint64

type slot struct {
	seq       uint64
	expiresAt time.Time
}

func (s slot) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// core is the state shared by every wrapper shape: the facade, the key
// scope and the bounded record of stored keys.
type core struct {
	c     *cache.Cache
	cfg   Config
	scope string
	opts  cache.Options
	meta  observe.CacheMeta
	tel   observe.Telemetry
	log   observe.Logger

	mu    sync.Mutex
	seq   uint64
	gen   uint64
	slots map[string]slot
}

func newCore(c *cache.Cache, cfg Config) *core {
	if c == nil {
		c = cache.New(nil)
	}
	if cfg.Name == "" {
		cfg.Name = "memo"
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.MaxItems < 0 {
		cfg.MaxItems = 0
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = -1
	}

	backend := cfg.Backend
	if backend == "" {
		backend = storage.KindMemory
	}

	tel := cfg.Telemetry.OrNop()
	meta := observe.CacheMeta{
		Component: "memo",
		Name:      cfg.Name,
		Backend:   string(backend),
		Prefix:    cfg.Prefix,
	}
	return &core{
		c:     c,
		cfg:   cfg,
		scope: fmt.Sprintf("%s#%d", cfg.Name, instances.Add(1)),
		opts:  cache.Options{TTL: ttl, Backend: backend, Prefix: cfg.Prefix},
		meta:  meta,
		tel:   tel,
		log:   tel.Logger.WithCache(meta),
		slots: make(map[string]slot),
	}
}

// key derives the cache key for arg. ok is false when arg cannot be keyed,
// in which case the caller computes without caching.
func (m *core) key(ctx context.Context, arg any) (string, bool) {
	k, err := m.cfg.Keyer.Key(m.scope, arg)
	if err != nil {
		m.log.Warn(ctx, "argument cannot be keyed; calling through", observe.F("error", err))
		return "", false
	}
	return k, true
}

// generation identifies the record contents; ClearCache starts a new one.
func (m *core) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// load returns the cached result for key as an R.
func load[R any](ctx context.Context, m *core, key string) (R, bool) {
	gen := m.generation()
	v, ok := cache.GetAs[R](ctx, m.c, key, m.opts)
	if !ok {
		m.forgetExpired(key)
		m.log.Debug(ctx, "memo miss")
		return v, false
	}
	m.adopt(ctx, key, gen)
	m.log.Debug(ctx, "memo hit")
	return v, true
}

// compute runs fn through the telemetry wrapper.
func (m *core) compute(ctx context.Context, fn func(context.Context) error) error {
	return m.tel.Wrap(func(ctx context.Context, _ observe.CacheMeta) error {
		return fn(ctx)
	})(ctx, m.meta)
}

// store writes value under key and records it, unless the record was
// cleared since gen was read.
func (m *core) store(ctx context.Context, key string, value any, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		m.log.Debug(ctx, "dropping result computed before ClearCache")
		return
	}
	m.c.Set(ctx, key, value, m.opts)
	m.insertLocked(ctx, key)
}

// adopt records a key found in the cache but not in the record, such as an
// entry a previous process left in a persistent backend.
func (m *core) adopt(ctx context.Context, key string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[key]; !ok && gen == m.gen {
		m.insertLocked(ctx, key)
	}
}

// forgetExpired drops the slot for key once it has expired.
func (m *core) forgetExpired(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[key]; ok && s.expired(m.c.Now()) {
		delete(m.slots, key)
	}
}

func (m *core) insertLocked(ctx context.Context, key string) {
	now := m.c.Now()
	delete(m.slots, key)

	if m.cfg.MaxItems > 0 && len(m.slots) >= m.cfg.MaxItems {
		m.evictLocked(ctx, now)
	}

	m.seq++
	s := slot{seq: m.seq}
	if ttl := m.c.Policy().EffectiveTTL(m.opts.TTL); ttl > 0 {
		s.expiresAt = now.Add(ttl)
	}
	m.slots[key] = s
}

// evictLocked makes room for one key: expired slots go first, then the
// oldest surviving one.
func (m *core) evictLocked(ctx context.Context, now time.Time) {
	evicted := 0
	for k, s := range m.slots {
		if s.expired(now) {
			m.c.Delete(ctx, k, m.opts)
			delete(m.slots, k)
			evicted++
		}
	}

	if len(m.slots) >= m.cfg.MaxItems {
		var (
			oldest string
			seq    uint64
		)
		for k, s := range m.slots {
			if oldest == "" || s.seq < seq {
				oldest, seq = k, s.seq
			}
		}
		m.c.Delete(ctx, oldest, m.opts)
		delete(m.slots, oldest)
		evicted++
	}

	m.tel.Metrics.RecordEviction(ctx, m.meta, evicted)
}

// ClearCache removes every result this wrapper stored. Results of
// computations still in flight are not stored.
func (m *core) ClearCache(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.slots {
		m.c.Delete(ctx, k, m.opts)
	}
	m.slots = make(map[string]slot)
	m.gen++
	m.log.Debug(ctx, "memo cache cleared")
}

// Len returns the number of results recorded, including expired ones not
// yet dropped.
func (m *core) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// Scope returns the key scope unique to this wrapper.
func (m *core) Scope() string {
	return m.scope
}
