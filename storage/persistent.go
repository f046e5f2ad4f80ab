package storage

import (
	"context"
	"fmt"

	"github.com/jonwraymond/memocache/kvstore"
	"github.com/jonwraymond/memocache/observe"
)

// PersistentEngine encodes values into a string store.
type PersistentEngine struct {
	store  kvstore.Store
	ser    Serializer
	prefix string
	meta   observe.CacheMeta
	tel    observe.Telemetry
}

// PersistentOption configures a PersistentEngine.
type PersistentOption func(*PersistentEngine)

// WithPrefix namespaces every key as prefix + ":" + key.
func WithPrefix(prefix string) PersistentOption {
	return func(e *PersistentEngine) { e.prefix = prefix }
}

// WithEngineSerializer sets the serializer. Default: JSONSerializer.
func WithEngineSerializer(s Serializer) PersistentOption {
	return func(e *PersistentEngine) { e.ser = s }
}

// WithEngineTelemetry sets the telemetry used to report dropped writes and
// corrupt entries.
func WithEngineTelemetry(t observe.Telemetry) PersistentOption {
	return func(e *PersistentEngine) { e.tel = t }
}

// WithBackendName labels the engine in logs and metrics.
func WithBackendName(name string) PersistentOption {
	return func(e *PersistentEngine) { e.meta.Backend = name }
}

// NewPersistentEngine creates an engine over store.
func NewPersistentEngine(store kvstore.Store, opts ...PersistentOption) *PersistentEngine {
	e := &PersistentEngine{
		store: store,
		ser:   JSONSerializer{},
		meta:  observe.CacheMeta{Component: "storage", Backend: "persistent"},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.meta.Prefix = e.prefix
	e.tel = e.tel.OrNop()
	return e
}

// Serializer returns the engine's serializer.
func (e *PersistentEngine) Serializer() Serializer {
	return e.ser
}

// Prefix returns the engine's key prefix.
func (e *PersistentEngine) Prefix() string {
	return e.prefix
}

func (e *PersistentEngine) key(k string) string {
	if e.prefix == "" {
		return k
	}
	return e.prefix + ":" + k
}

func (e *PersistentEngine) logger() observe.Logger {
	return e.tel.Logger.WithCache(e.meta)
}

// Has reports whether key is present in the store. It does not decode.
func (e *PersistentEngine) Has(ctx context.Context, key string) bool {
	_, ok, err := e.store.GetItem(ctx, e.key(key))
	if err != nil {
		e.logger().Warn(ctx, "storage read failed", observe.F("key", key), observe.F("error", err))
		return false
	}
	return ok
}

// Get decodes and returns the value stored under key. Entries that fail to
// decode are removed and reported missing.
func (e *PersistentEngine) Get(ctx context.Context, key string) (any, bool) {
	raw, ok, err := e.store.GetItem(ctx, e.key(key))
	if err != nil {
		e.logger().Warn(ctx, "storage read failed", observe.F("key", key), observe.F("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var v any
	if err := e.ser.Unmarshal([]byte(raw), &v); err != nil {
		e.logger().Warn(ctx, "discarding undecodable entry",
			observe.F("key", key),
			observe.F("serializer", e.ser.Name()),
			observe.F("error", err),
		)
		e.Delete(ctx, key)
		return nil, false
	}
	return v, true
}

// Set encodes value and writes it. Encoding and store failures, including
// quota exhaustion, are logged and dropped.
func (e *PersistentEngine) Set(ctx context.Context, key string, value any, opts ...SetOption) {
	o := applySetOptions(opts)

	data, err := e.ser.Marshal(value)
	if err == nil {
		err = kvstore.SetWithTTL(ctx, e.store, e.key(key), string(data), o.TTLHint)
	}
	e.tel.Metrics.RecordStore(ctx, e.meta, err)
	if err != nil {
		e.logger().Warn(ctx, "storage write dropped",
			observe.F("key", key),
			observe.F("value_type", fmt.Sprintf("%T", value)),
			observe.F("error", err),
		)
	}
}

// Delete removes key from the store.
func (e *PersistentEngine) Delete(ctx context.Context, key string) {
	if err := e.store.RemoveItem(ctx, e.key(key)); err != nil {
		e.logger().Warn(ctx, "storage delete failed", observe.F("key", key), observe.F("error", err))
	}
}

var _ Engine = (*PersistentEngine)(nil)
