package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/memocache/kvstore"
	"github.com/jonwraymond/memocache/observe"
)

func testTelemetry(buf *bytes.Buffer) observe.Telemetry {
	tel := observe.Nop()
	tel.Logger = observe.NewLoggerWithWriter("debug", buf)
	return tel
}

func TestPersistentEngine_PrefixedKeys(t *testing.T) {
	store := kvstore.NewSessionStore(0)
	e := NewPersistentEngine(store, WithPrefix("todos"))
	ctx := context.Background()

	e.Set(ctx, "k", map[string]any{"a": 1})

	raw, ok, _ := store.GetItem(ctx, "todos:k")
	if !ok {
		t.Fatal("expected value under prefixed key")
	}
	if raw != `{"a":1}` {
		t.Errorf("stored %q, want JSON text", raw)
	}
	if _, ok, _ := store.GetItem(ctx, "k"); ok {
		t.Error("unprefixed key must not be written")
	}
	if e.Prefix() != "todos" {
		t.Errorf("Prefix() = %q", e.Prefix())
	}
}

func TestPersistentEngine_NoPrefix(t *testing.T) {
	store := kvstore.NewSessionStore(0)
	e := NewPersistentEngine(store)
	e.Set(context.Background(), "k", "v")

	if _, ok, _ := store.GetItem(context.Background(), "k"); !ok {
		t.Error("expected value under bare key")
	}
}

func TestPersistentEngine_RoundTrip(t *testing.T) {
	for _, ser := range []Serializer{JSONSerializer{}, MsgpackSerializer{}} {
		t.Run(ser.Name(), func(t *testing.T) {
			e := NewPersistentEngine(kvstore.NewSessionStore(0), WithEngineSerializer(ser))
			ctx := context.Background()

			e.Set(ctx, "k", map[string]any{"name": "Angular", "tags": []any{"a", "b"}})

			if !e.Has(ctx, "k") {
				t.Fatal("Has() = false after Set")
			}
			got, ok := e.Get(ctx, "k")
			if !ok {
				t.Fatal("Get() missed")
			}
			m, ok := got.(map[string]any)
			if !ok {
				t.Fatalf("Get() = %T, want map[string]any", got)
			}
			if m["name"] != "Angular" {
				t.Errorf("name = %v", m["name"])
			}
			if tags, ok := m["tags"].([]any); !ok || len(tags) != 2 {
				t.Errorf("tags = %#v", m["tags"])
			}

			e.Delete(ctx, "k")
			if e.Has(ctx, "k") {
				t.Error("Has() = true after Delete")
			}
		})
	}
}

func TestPersistentEngine_CorruptEntryIsMissAndRemoved(t *testing.T) {
	var buf bytes.Buffer
	store := kvstore.NewSessionStore(0)
	e := NewPersistentEngine(store, WithPrefix("p"), WithEngineTelemetry(testTelemetry(&buf)))
	ctx := context.Background()

	if err := store.SetItem(ctx, "p:k", "{not json"); err != nil {
		t.Fatal(err)
	}

	if _, ok := e.Get(ctx, "k"); ok {
		t.Fatal("corrupt entry must read as a miss")
	}
	if _, ok, _ := store.GetItem(ctx, "p:k"); ok {
		t.Error("corrupt entry must be removed")
	}
	if !strings.Contains(buf.String(), "discarding undecodable entry") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestPersistentEngine_QuotaExceededIsDropped(t *testing.T) {
	var buf bytes.Buffer
	store := kvstore.NewSessionStore(16)
	e := NewPersistentEngine(store, WithEngineTelemetry(testTelemetry(&buf)))
	ctx := context.Background()

	e.Set(ctx, "k", strings.Repeat("x", 64))

	if e.Has(ctx, "k") {
		t.Error("over-quota write must be a no-op")
	}
	if !strings.Contains(buf.String(), "storage write dropped") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "xxxxxxxx") {
		t.Error("the value must not be logged")
	}
}

func TestPersistentEngine_UnencodableValueIsDropped(t *testing.T) {
	var buf bytes.Buffer
	e := NewPersistentEngine(kvstore.NewSessionStore(0), WithEngineTelemetry(testTelemetry(&buf)))
	ctx := context.Background()

	e.Set(ctx, "k", func() {})

	if e.Has(ctx, "k") {
		t.Error("unencodable value must not be stored")
	}
	if !strings.Contains(buf.String(), "func()") {
		t.Errorf("expected the value type in the log, got %q", buf.String())
	}
}

type failingStore struct{}

var errStore = errors.New("store unavailable")

func (failingStore) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errStore
}
func (failingStore) SetItem(context.Context, string, string) error { return errStore }
func (failingStore) RemoveItem(context.Context, string) error      { return errStore }

func TestPersistentEngine_StoreErrorsNeverSurface(t *testing.T) {
	var buf bytes.Buffer
	e := NewPersistentEngine(failingStore{}, WithEngineTelemetry(testTelemetry(&buf)))
	ctx := context.Background()

	e.Set(ctx, "k", "v")
	if e.Has(ctx, "k") {
		t.Error("Has() = true with a failing store")
	}
	if _, ok := e.Get(ctx, "k"); ok {
		t.Error("Get() hit with a failing store")
	}
	e.Delete(ctx, "k")

	if strings.Count(buf.String(), "store unavailable") != 4 {
		t.Errorf("expected 4 logged failures, got %q", buf.String())
	}
}

type ttlRecorder struct {
	*kvstore.SessionStore
	ttl time.Duration
}

func (r *ttlRecorder) SetItemTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	r.ttl = ttl
	return r.SetItem(ctx, key, value)
}

func TestPersistentEngine_TTLHint(t *testing.T) {
	store := &ttlRecorder{SessionStore: kvstore.NewSessionStore(0)}
	e := NewPersistentEngine(store)

	e.Set(context.Background(), "k", "v", WithTTLHint(5*time.Second))

	if store.ttl != 5*time.Second {
		t.Errorf("TTL hint = %v, want 5s", store.ttl)
	}
}

func TestConvert(t *testing.T) {
	type todo struct {
		ID    int    `json:"id" msgpack:"id"`
		Title string `json:"title" msgpack:"title"`
	}

	for _, ser := range []Serializer{JSONSerializer{}, MsgpackSerializer{}} {
		t.Run(ser.Name(), func(t *testing.T) {
			e := NewPersistentEngine(kvstore.NewSessionStore(0), WithEngineSerializer(ser))
			ctx := context.Background()
			e.Set(ctx, "k", todo{ID: 7, Title: "write tests"})

			raw, _ := e.Get(ctx, "k")
			var got todo
			if err := Convert(e, raw, &got); err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if got.ID != 7 || got.Title != "write tests" {
				t.Errorf("Convert() = %+v", got)
			}
		})
	}

	var n int
	if err := Convert(NewMemoryEngine(), 3.0, &n); err != nil || n != 3 {
		t.Errorf("Convert() via JSON fallback = %d, %v", n, err)
	}
	if err := Convert(NewMemoryEngine(), "text", &n); err == nil {
		t.Error("Convert() of incompatible value should fail")
	}
}

func TestSerializerByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "json", false},
		{"json", "json", false},
		{"msgpack", "msgpack", false},
		{"gob", "", true},
	}
	for _, tt := range tests {
		s, err := SerializerByName(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownSerializer) {
				t.Errorf("SerializerByName(%q) error = %v, want ErrUnknownSerializer", tt.name, err)
			}
			continue
		}
		if err != nil || s.Name() != tt.want {
			t.Errorf("SerializerByName(%q) = %v, %v", tt.name, s, err)
		}
	}
}
