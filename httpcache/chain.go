package httpcache

import (
	"net/http"

	"github.com/jonwraymond/memocache/cache"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Interceptor wraps a RoundTripper with extra behaviour.
type Interceptor func(http.RoundTripper) http.RoundTripper

// Middleware returns an Interceptor that caches responses in c.
func Middleware(c *cache.Cache, opts ...TransportOption) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewTransport(c, next, opts...)
	}
}

// Chain wraps base with interceptors. The first interceptor sees each
// request first and can short-circuit the rest.
func Chain(base http.RoundTripper, interceptors ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		rt = interceptors[i](rt)
	}
	return rt
}
