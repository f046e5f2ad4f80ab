package storage

import (
	"context"
	"sync"
)

// MemoryEngine keeps values in an in-process map. Values are stored as
// given, without copying or encoding.
type MemoryEngine struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewMemoryEngine creates an empty MemoryEngine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{entries: make(map[string]any)}
}

// Has reports whether key is present.
func (e *MemoryEngine) Has(_ context.Context, key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.entries[key]
	return ok
}

// Get returns the value stored under key.
func (e *MemoryEngine) Get(_ context.Context, key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.entries[key]
	return v, ok
}

// Set stores value under key. Set options are ignored.
func (e *MemoryEngine) Set(_ context.Context, key string, value any, _ ...SetOption) {
	e.mu.Lock()
	e.entries[key] = value
	e.mu.Unlock()
}

// Delete removes key.
func (e *MemoryEngine) Delete(_ context.Context, key string) {
	e.mu.Lock()
	delete(e.entries, key)
	e.mu.Unlock()
}

// Len returns the number of stored values.
func (e *MemoryEngine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

var _ Engine = (*MemoryEngine)(nil)
