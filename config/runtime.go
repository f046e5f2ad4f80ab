package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/health"
	"github.com/jonwraymond/memocache/kvstore"
	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/resilience"
	"github.com/jonwraymond/memocache/storage"
)

// Runtime holds the components built from a Config.
type Runtime struct {
	Config    Config
	Observer  observe.Observer
	Telemetry observe.Telemetry
	Registry  *storage.Registry
	Cache     *cache.Cache
	Keyer     cache.Keyer

	// Breakers guarding each configured sqlite or redis store, by kind.
	Breakers map[storage.Kind]*resilience.Breaker

	stores map[storage.Kind]kvstore.Store

	closers []func() error
}

// Open validates cfg and builds its runtime. Close releases it.
func Open(ctx context.Context, cfg Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, err
	}
	tel, err := observe.FromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	rt := &Runtime{
		Config:    cfg,
		Observer:  obs,
		Telemetry: tel,
		Breakers:  make(map[storage.Kind]*resilience.Breaker),
		stores:    make(map[storage.Kind]kvstore.Store),
	}

	ser, _ := storage.SerializerByName(cfg.Storage.Serializer)
	quota, _ := cfg.Storage.QuotaBytes()
	rt.Keyer, _ = cache.KeyerByName(cfg.Storage.Keyer)

	opts := []storage.RegistryOption{
		storage.WithSerializer(ser),
		storage.WithSessionQuota(quota),
		storage.WithTelemetry(tel),
	}
	for kind, sc := range map[storage.Kind]StoreConfig{
		storage.KindLocal:   cfg.Storage.Local,
		storage.KindSession: cfg.Storage.Session,
	} {
		store, err := rt.openStore(ctx, kind, sc)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("config: open %s store: %w", kind, err)
		}
		if store != nil {
			opts = append(opts, storage.WithStore(kind, store))
		}
	}

	rt.Registry = storage.NewRegistry(opts...)
	rt.Cache = cache.New(rt.Registry,
		cache.WithPolicy(cache.BoundedPolicy(cfg.Storage.DefaultTTL, cfg.Storage.MaxTTL)),
		cache.WithTelemetry(tel),
	)
	return rt, nil
}

// openStore returns the guarded store for sc, or nil when the registry's
// own session store should be used.
func (rt *Runtime) openStore(ctx context.Context, kind storage.Kind, sc StoreConfig) (kvstore.Store, error) {
	var store kvstore.Store
	switch sc.Driver {
	case DriverSQLite:
		s, err := kvstore.OpenSQLite(ctx, sc.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, s.Close)
		store = s
	case DriverRedis:
		s, client, err := kvstore.DialRedis(sc.URL,
			kvstore.WithKeyPrefix(sc.Prefix),
			kvstore.WithQueryTimeout(rt.Config.Storage.Guard.Timeout))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		store = s
	default:
		return nil, nil
	}

	log := rt.Telemetry.Logger.WithCache(observe.CacheMeta{Component: "storage", Backend: string(kind)})
	g := rt.Config.Storage.Guard
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Threshold: g.Threshold,
		Cooldown:  g.Cooldown,
		OnStateChange: func(from, to resilience.State) {
			log.Warn(context.Background(), "store breaker changed state",
				observe.F("from", from.String()), observe.F("to", to.String()))
		},
	})
	rt.Breakers[kind] = breaker
	rt.stores[kind] = store

	guard := resilience.NewGuard(
		resilience.WithBreaker(breaker),
		resilience.WithBackoff(resilience.Backoff{Attempts: g.Attempts}),
		resilience.WithDeadline(g.Timeout),
	)
	return kvstore.Guarded(store, guard), nil
}

// Health returns an aggregator probing every backend through the facade,
// plus each configured sqlite or redis store and its breaker. Store probes
// bypass the breaker so an open breaker does not hide a recovered store.
func (rt *Runtime) Health(timeout time.Duration) *health.Aggregator {
	agg := health.NewAggregator(timeout)
	for _, kind := range storage.Kinds {
		agg.Register("cache."+string(kind), health.CacheCheck(rt.Cache, cache.Options{Backend: kind}))
	}
	for kind, store := range rt.stores {
		agg.Register("store."+string(kind), health.StoreCheck(store))
		agg.Register("breaker."+string(kind), health.BreakerCheck(rt.Breakers[kind]))
	}
	return agg
}

// Close releases stores and flushes telemetry.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	if rt.Observer != nil {
		errs = append(errs, rt.Observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
