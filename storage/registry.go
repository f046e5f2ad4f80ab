package storage

import (
	"fmt"
	"sync"

	"github.com/jonwraymond/memocache/kvstore"
	"github.com/jonwraymond/memocache/observe"
)

type identity struct {
	kind   Kind
	prefix string
}

// Registry builds and memoizes one Engine per (Kind, prefix).
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Identity: Resolve with equal arguments returns the same Engine value.
type Registry struct {
	mu      sync.Mutex
	engines map[identity]Engine
	stores  map[Kind]kvstore.Store
	ser     Serializer
	quota   int
	tel     observe.Telemetry
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStore sets the string store backing a persistent kind.
func WithStore(kind Kind, store kvstore.Store) RegistryOption {
	return func(r *Registry) { r.stores[kind] = store }
}

// WithSerializer sets the serializer for persistent engines.
func WithSerializer(s Serializer) RegistryOption {
	return func(r *Registry) { r.ser = s }
}

// WithSessionQuota sets the byte quota of session stores the registry
// creates for persistent kinds without an explicit store.
func WithSessionQuota(bytes int) RegistryOption {
	return func(r *Registry) { r.quota = bytes }
}

// WithTelemetry sets the telemetry handed to persistent engines.
func WithTelemetry(t observe.Telemetry) RegistryOption {
	return func(r *Registry) { r.tel = t }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		engines: make(map[identity]Engine),
		stores:  make(map[Kind]kvstore.Store),
		ser:     JSONSerializer{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tel = r.tel.OrNop()
	return r
}

// Resolve returns the engine for (kind, prefix), creating it on first use.
// An empty kind selects KindMemory.
func (r *Registry) Resolve(kind Kind, prefix string) (Engine, error) {
	if kind == "" {
		kind = KindMemory
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}

	id := identity{kind: kind, prefix: prefix}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[id]; ok {
		return e, nil
	}

	var e Engine
	if kind == KindMemory {
		e = NewMemoryEngine()
	} else {
		e = NewPersistentEngine(r.storeLocked(kind),
			WithPrefix(prefix),
			WithEngineSerializer(r.ser),
			WithEngineTelemetry(r.tel),
			WithBackendName(string(kind)),
		)
	}
	r.engines[id] = e
	return e, nil
}

// MustResolve is like Resolve but panics on an unknown kind.
func (r *Registry) MustResolve(kind Kind, prefix string) Engine {
	e, err := r.Resolve(kind, prefix)
	if err != nil {
		panic(err)
	}
	return e
}

// Len returns the number of engines built so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// storeLocked returns the store for a persistent kind, creating a session
// store the first time a kind without an explicit store is used.
func (r *Registry) storeLocked(kind Kind) kvstore.Store {
	s, ok := r.stores[kind]
	if !ok {
		s = kvstore.NewSessionStore(r.quota)
		r.stores[kind] = s
	}
	return s
}
