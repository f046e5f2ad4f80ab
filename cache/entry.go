package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/storage"
)

// Entry is a cached value with an optional absolute expiry.
// A nil ExpiresAt never expires.
type Entry struct {
	Value     any        `json:"value" msgpack:"value"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" msgpack:"expiresAt,omitempty"`
}

// NewEntry wraps value, expiring it ttl after now when ttl > 0.
func NewEntry(value any, ttl time.Duration, now time.Time) Entry {
	e := Entry{Value: value}
	if ttl > 0 {
		at := now.Add(ttl)
		e.ExpiresAt = &at
	}
	return e
}

// Fresh reports whether the entry is visible at now.
func (e Entry) Fresh(now time.Time) bool {
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

// decodeEntry recovers an Entry from whatever the engine returned: the Entry
// itself for memory engines, or a generically decoded map for persistent
// ones.
func decodeEntry(engine storage.Engine, raw any) (Entry, bool) {
	switch v := raw.(type) {
	case Entry:
		return v, true
	case *Entry:
		if v == nil {
			return Entry{}, false
		}
		return *v, true
	case map[string]any:
		if _, ok := v["value"]; !ok {
			return Entry{}, false
		}
		var e Entry
		if err := storage.Convert(engine, v, &e); err != nil {
			return Entry{}, false
		}
		return e, true
	default:
		return Entry{}, false
	}
}

// lookup reads key from engine and applies the freshness check, deleting
// expired and undecodable entries.
func (c *Cache) lookup(ctx context.Context, engine storage.Engine, key string) (Entry, bool) {
	raw, ok := engine.Get(ctx, key)
	if !ok {
		return Entry{}, false
	}

	e, ok := decodeEntry(engine, raw)
	if !ok {
		c.tel.Logger.Warn(ctx, "discarding malformed cache entry", observe.F("key", key))
		engine.Delete(ctx, key)
		return Entry{}, false
	}
	if !e.Fresh(c.now()) {
		engine.Delete(ctx, key)
		return Entry{}, false
	}
	return e, true
}
