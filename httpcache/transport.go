package httpcache

import (
	"bytes"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/storage"
)

// Transport is an http.RoundTripper that serves repeated requests from a
// cache facade.
//
// Contract:
//   - Concurrency: safe for concurrent use if the wrapped transport is.
//   - Errors: transport errors and non-2xx responses pass through uncached.
//     A failure reading a 2xx body is reported when the caller reads the
//     returned body.
type Transport struct {
	c        *cache.Cache
	next     http.RoundTripper
	defaults Config
	name     string
	tel      observe.Telemetry
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithDefaults sets the configuration used for requests without a WithCache
// context, and the base that per-request options are merged over. Set
// Enabled to cache every request.
func WithDefaults(cfg Config) TransportOption {
	return func(t *Transport) { t.defaults = cfg }
}

// WithName labels the transport in logs, spans and metrics.
func WithName(name string) TransportOption {
	return func(t *Transport) { t.name = name }
}

// WithTelemetry instruments the transport.
func WithTelemetry(tel observe.Telemetry) TransportOption {
	return func(t *Transport) { t.tel = tel }
}

// NewTransport wraps next, or http.DefaultTransport when next is nil.
func NewTransport(c *cache.Cache, next http.RoundTripper, opts ...TransportOption) *Transport {
	if c == nil {
		c = cache.New(nil)
	}
	if next == nil {
		next = http.DefaultTransport
	}
	t := &Transport{c: c, next: next}
	for _, opt := range opts {
		opt(t)
	}
	t.tel = t.tel.OrNop()
	return t
}

// config resolves the effective configuration for req.
func (t *Transport) config(req *http.Request) Config {
	if cfg, ok := ConfigFromContext(req.Context()); ok {
		return t.defaults.merge(cfg)
	}
	return t.defaults
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	cfg := t.config(req)
	if !cfg.Enabled {
		return t.next.RoundTrip(req)
	}

	key := cfg.key(req)
	opts := cache.Options{TTL: cfg.TTL, Backend: cfg.Backend, Prefix: cfg.Prefix}
	backend := cfg.Backend
	if backend == "" {
		backend = storage.KindMemory
	}
	meta := observe.CacheMeta{Component: "http", Name: t.name, Backend: string(backend), Prefix: cfg.Prefix}
	log := t.tel.Logger.WithCache(meta)

	ctx, span := t.tel.Tracer.StartSpan(req.Context(), meta,
		attribute.String("http.request.method", req.Method))

	if stored, ok := cache.GetAs[Response](ctx, t.c, key, opts); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		t.tel.Tracer.EndSpan(span, nil)
		log.Debug(ctx, "serving cached response", observe.F("key", key))
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return stored.HTTP(req), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		t.tel.Tracer.EndSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if !successful(resp.StatusCode) {
		t.tel.Tracer.EndSpan(span, nil)
		return resp, nil
	}

	body, err := readBody(resp)
	if err != nil {
		log.Warn(ctx, "response body read failed; not caching",
			observe.F("key", key), observe.F("error", err))
		resp.Body = &brokenBody{r: bytes.NewReader(body), err: err}
		t.tel.Tracer.EndSpan(span, err)
		return resp, nil
	}

	t.c.Set(ctx, key, snapshot(resp, body), opts)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	t.tel.Tracer.EndSpan(span, nil)
	return resp, nil
}
