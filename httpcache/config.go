package httpcache

import (
	"context"
	"net/http"
	"time"

	"github.com/jonwraymond/memocache/storage"
)

// KeyFunc derives a cache key from a request.
type KeyFunc func(*http.Request) string

// Config controls caching for a request.
type Config struct {
	// Enabled turns caching on for the request.
	Enabled bool

	// Key is a literal cache key. It takes precedence over KeyFunc.
	Key string

	// KeyFunc derives the key from the request. Default: the full URL.
	KeyFunc KeyFunc

	// TTL is how long a response stays cached. Zero uses the cache policy.
	TTL time.Duration

	// Backend and Prefix select the storage engine.
	Backend storage.Kind
	Prefix  string
}

// merge overlays the set fields of o onto c.
func (c Config) merge(o Config) Config {
	c.Enabled = o.Enabled
	if o.Key != "" {
		c.Key = o.Key
	}
	if o.KeyFunc != nil {
		c.KeyFunc = o.KeyFunc
	}
	if o.TTL != 0 {
		c.TTL = o.TTL
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.Prefix != "" {
		c.Prefix = o.Prefix
	}
	return c
}

// key returns the effective cache key for req.
func (c Config) key(req *http.Request) string {
	switch {
	case c.Key != "":
		return c.Key
	case c.KeyFunc != nil:
		return c.KeyFunc(req)
	default:
		return req.URL.String()
	}
}

// Option adjusts the per-request Config.
type Option func(*Config)

// Key sets a literal cache key.
func Key(key string) Option {
	return func(c *Config) { c.Key = key }
}

// KeyWith derives the cache key with fn.
func KeyWith(fn KeyFunc) Option {
	return func(c *Config) { c.KeyFunc = fn }
}

// TTL sets how long the response stays cached.
func TTL(d time.Duration) Option {
	return func(c *Config) { c.TTL = d }
}

// Backend selects the storage engine kind and prefix.
func Backend(kind storage.Kind, prefix string) Option {
	return func(c *Config) {
		c.Backend = kind
		c.Prefix = prefix
	}
}

// Disabled turns caching off for the request, overriding transport defaults.
func Disabled() Option {
	return func(c *Config) { c.Enabled = false }
}

type contextKey struct{}

// WithCache returns a context that enables caching for requests made with
// it. Options are applied after Enabled is set to true.
func WithCache(ctx context.Context, opts ...Option) context.Context {
	cfg := Config{Enabled: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return context.WithValue(ctx, contextKey{}, cfg)
}

// ConfigFromContext returns the per-request configuration, if any.
func ConfigFromContext(ctx context.Context) (Config, bool) {
	cfg, ok := ctx.Value(contextKey{}).(Config)
	return cfg, ok
}
