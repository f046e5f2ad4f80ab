package httpcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingServer answers every request with the request path and counts
// the requests it receives.
func countingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Hit", fmt.Sprint(n))
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"path":%q}`, r.URL.RequestURI())
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func get(t *testing.T, ctx context.Context, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do(%s) error = %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(body)
}

func TestTransport_ShortCircuitsRepeatedRequests(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	client := &http.Client{Transport: NewTransport(cache.New(nil), nil)}
	ctx := WithCache(context.Background())

	first, body1 := get(t, ctx, client, srv.URL+"/todos")
	second, body2 := get(t, ctx, client, srv.URL+"/todos")

	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if body1 != body2 {
		t.Errorf("bodies differ: %q vs %q", body1, body2)
	}
	if second.StatusCode != first.StatusCode {
		t.Errorf("status = %d, want %d", second.StatusCode, first.StatusCode)
	}
	if second.Header.Get("X-Hit") != "1" || second.Header.Get("Content-Type") != "application/json" {
		t.Errorf("cached headers = %v", second.Header)
	}
	if second.ContentLength != int64(len(body1)) {
		t.Errorf("ContentLength = %d, want %d", second.ContentLength, len(body1))
	}
}

func TestTransport_RequestsWithoutCacheContextPassThrough(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	client := &http.Client{Transport: NewTransport(cache.New(nil), nil)}

	get(t, context.Background(), client, srv.URL+"/todos")
	get(t, context.Background(), client, srv.URL+"/todos")

	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestTransport_DefaultsEnableCaching(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	client := &http.Client{Transport: NewTransport(cache.New(nil), nil, WithDefaults(Config{Enabled: true}))}
	ctx := context.Background()

	get(t, ctx, client, srv.URL+"/a")
	get(t, ctx, client, srv.URL+"/a")
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}

	off := WithCache(ctx, Disabled())
	get(t, off, client, srv.URL+"/a")
	if hits.Load() != 2 {
		t.Errorf("Disabled() should bypass the cache; hits = %d", hits.Load())
	}
}

// closeTracker records whether the request body was closed.
type closeTracker struct {
	io.Reader
	closed atomic.Bool
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	return nil
}

func TestTransport_HitClosesRequestBody(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	rt := NewTransport(cache.New(nil), nil, WithDefaults(Config{Enabled: true}))

	for i := 0; i < 2; i++ {
		body := &closeTracker{Reader: strings.NewReader("q=1")}
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/search", body)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := rt.RoundTrip(req)
		if err != nil {
			t.Fatalf("RoundTrip() error = %v", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if i == 1 && !body.closed.Load() {
			t.Error("cached response returned without closing the request body")
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestTransport_QueryStringIsPartOfDefaultKey(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	client := &http.Client{Transport: NewTransport(cache.New(nil), nil)}
	ctx := WithCache(context.Background())

	_, a := get(t, ctx, client, srv.URL+"/todos?page=1")
	_, b := get(t, ctx, client, srv.URL+"/todos?page=2")

	if hits.Load() != 2 || a == b {
		t.Errorf("hits = %d, bodies %q / %q", hits.Load(), a, b)
	}
}

func TestTransport_ExplicitKeys(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	client := &http.Client{Transport: NewTransport(cache.New(nil), nil)}

	literal := WithCache(context.Background(), Key("todos"))
	get(t, literal, client, srv.URL+"/todos?ts=1")
	get(t, literal, client, srv.URL+"/todos?ts=2")
	if hits.Load() != 1 {
		t.Errorf("literal key: hits = %d, want 1", hits.Load())
	}

	byPath := WithCache(context.Background(), KeyWith(func(r *http.Request) string { return r.URL.Path }))
	get(t, byPath, client, srv.URL+"/users?ts=1")
	get(t, byPath, client, srv.URL+"/users?ts=2")
	if hits.Load() != 2 {
		t.Errorf("key func: hits = %d, want 2", hits.Load())
	}
}

func TestTransport_NonSuccessNotCached(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusNotModified} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			srv, hits := countingServer(t, status)
			client := &http.Client{Transport: NewTransport(cache.New(nil), nil)}
			ctx := WithCache(context.Background())

			first, _ := get(t, ctx, client, srv.URL+"/x")
			get(t, ctx, client, srv.URL+"/x")

			if first.StatusCode != status {
				t.Errorf("status = %d, want %d", first.StatusCode, status)
			}
			if hits.Load() != 2 {
				t.Errorf("server hits = %d, want 2", hits.Load())
			}
		})
	}
}

func TestTransport_TransportErrorsNotCached(t *testing.T) {
	var calls atomic.Int32
	errDown := errors.New("connection refused")
	next := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return nil, errDown
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("ok")),
			Request:    req,
		}, nil
	})
	tr := NewTransport(cache.New(nil), next)
	ctx := WithCache(context.Background())

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test/x", nil)
	if _, err := tr.RoundTrip(req); !errors.Is(err, errDown) {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp, err := tr.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("retry = %v, %v", resp, err)
	}
	tr.RoundTrip(req)
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestTransport_BodyReadErrorSurfacedAndNotCached(t *testing.T) {
	var calls atomic.Int32
	errReset := errors.New("connection reset")
	next := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(&failingReader{data: []byte("partial"), err: errReset}),
			Request:    req,
		}, nil
	})
	tr := NewTransport(cache.New(nil), next)
	req, _ := http.NewRequestWithContext(WithCache(context.Background()), http.MethodGet, "http://example.test/x", nil)

	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if !errors.Is(err, errReset) {
		t.Errorf("body read error = %v, want connection reset", err)
	}
	if string(body) != "partial" {
		t.Errorf("body = %q, want the bytes read before the failure", body)
	}

	tr.RoundTrip(req)
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

// The literal demo: GET /todos cached for five seconds.
func TestScenario_TodosTTL(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	client := &http.Client{Transport: NewTransport(cache.New(nil, cache.WithClock(clock.Now)), nil)}
	ctx := WithCache(context.Background(), TTL(5000*time.Millisecond))

	get(t, ctx, client, srv.URL+"/todos")
	clock.Advance(4 * time.Second)
	get(t, ctx, client, srv.URL+"/todos")
	if hits.Load() != 1 {
		t.Fatalf("two calls within 5s: hits = %d, want 1", hits.Load())
	}

	clock.Advance(time.Second)
	get(t, ctx, client, srv.URL+"/todos")
	if hits.Load() != 2 {
		t.Errorf("call after 5s: hits = %d, want 2", hits.Load())
	}
}

func TestTransport_PersistentBackend(t *testing.T) {
	srv, hits := countingServer(t, http.StatusOK)
	client := &http.Client{Transport: NewTransport(cache.New(storage.NewRegistry()), nil)}
	ctx := WithCache(context.Background(), Backend(storage.KindLocal, "http"))

	_, body1 := get(t, ctx, client, srv.URL+"/todos")
	resp, body2 := get(t, ctx, client, srv.URL+"/todos")

	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if body1 != body2 || resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("decoded response = %q, %v", body2, resp.Header)
	}
}

func TestTransport_SpanRecordsCacheHit(t *testing.T) {
	srv, _ := countingServer(t, http.StatusOK)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tel := observe.Nop()
	tel.Tracer = observe.NewTracer(tp.Tracer("test"))

	client := &http.Client{Transport: NewTransport(cache.New(nil), nil, WithName("todos"), WithTelemetry(tel))}
	ctx := WithCache(context.Background())
	get(t, ctx, client, srv.URL+"/todos")
	get(t, ctx, client, srv.URL+"/todos")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	for i, want := range []bool{false, true} {
		if spans[i].Name() != "cache.http.todos" {
			t.Errorf("span name = %q", spans[i].Name())
		}
		if got := boolAttr(spans[i].Attributes(), "cache.hit"); got != want {
			t.Errorf("span %d cache.hit = %v, want %v", i, got, want)
		}
	}
}

func boolAttr(attrs []attribute.KeyValue, key string) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsBool()
		}
	}
	return false
}

func TestConfig_Merge(t *testing.T) {
	defaults := Config{TTL: time.Minute, Backend: storage.KindSession, Prefix: "d"}
	got := defaults.merge(Config{Enabled: true, TTL: time.Second})

	if !got.Enabled || got.TTL != time.Second || got.Backend != storage.KindSession || got.Prefix != "d" {
		t.Errorf("merge() = %+v", got)
	}
}

func TestConfigFromContext(t *testing.T) {
	if _, ok := ConfigFromContext(context.Background()); ok {
		t.Error("expected no config on a bare context")
	}
	cfg, ok := ConfigFromContext(WithCache(context.Background(), Key("k"), TTL(time.Second)))
	if !ok || !cfg.Enabled || cfg.Key != "k" || cfg.TTL != time.Second {
		t.Errorf("ConfigFromContext() = %+v, %v", cfg, ok)
	}
}
