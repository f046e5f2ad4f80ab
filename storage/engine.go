package storage

import (
	"context"
	"time"
)

// Kind names a storage medium.
type Kind string

const (
	// KindMemory keeps values in process memory.
	KindMemory Kind = "memory"
	// KindLocal keeps values in a long-lived persistent store.
	KindLocal Kind = "local-persistent"
	// KindSession keeps values in a persistent store scoped to the session.
	KindSession Kind = "session-persistent"
)

// Kinds lists every supported Kind.
var Kinds = []Kind{KindMemory, KindLocal, KindSession}

// Valid reports whether k is a supported Kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMemory, KindLocal, KindSession:
		return true
	default:
		return false
	}
}

// Persistent reports whether values of this kind outlive the process.
func (k Kind) Persistent() bool {
	return k == KindLocal || k == KindSession
}

// Engine is a key/value medium.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: no method fails the caller; backend failures read as misses and
//     writes become no-ops.
//   - Delete of a missing key is a no-op.
type Engine interface {
	Has(ctx context.Context, key string) bool
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, opts ...SetOption)
	Delete(ctx context.Context, key string)
}

// SetOptions carries optional hints for Set.
type SetOptions struct {
	// TTLHint lets stores with native expiry reclaim the value after this
	// long. Expiry is still enforced by the caller.
	TTLHint time.Duration
}

// SetOption configures a Set call.
type SetOption func(*SetOptions)

// WithTTLHint sets SetOptions.TTLHint.
func WithTTLHint(ttl time.Duration) SetOption {
	return func(o *SetOptions) { o.TTLHint = ttl }
}

func applySetOptions(opts []SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
