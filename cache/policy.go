package cache

import "time"

// Policy normalizes the TTL of every write.
type Policy struct {
	// DefaultTTL is used when a write names no TTL.
	// If zero, such entries never expire.
	DefaultTTL time.Duration

	// MaxTTL clamps positive TTLs. If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns a policy under which entries without a TTL never
// expire and TTLs are not clamped.
func DefaultPolicy() Policy {
	return Policy{}
}

// BoundedPolicy returns a policy with the given default, clamped to max.
func BoundedPolicy(defaultTTL, maxTTL time.Duration) Policy {
	return Policy{DefaultTTL: defaultTTL, MaxTTL: maxTTL}
}

// EffectiveTTL returns the TTL to apply for a requested override.
// A negative override means "never expire" and bypasses DefaultTTL; zero
// selects DefaultTTL. The result is 0 when the entry should never expire.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	switch {
	case ttl < 0:
		return 0
	case ttl == 0:
		ttl = p.DefaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
