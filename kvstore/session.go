package kvstore

import (
	"context"
	"fmt"
	"sync"
)

// DefaultSessionQuota is the byte quota used when none is given.
const DefaultSessionQuota = 5 << 20

// SessionStore is an in-process Store whose contents live as long as the
// process. Keys and values count against a byte quota.
type SessionStore struct {
	mu    sync.RWMutex
	items map[string]string
	used  int
	quota int
}

// NewSessionStore creates a SessionStore. A non-positive quota selects
// DefaultSessionQuota.
func NewSessionStore(quota int) *SessionStore {
	if quota <= 0 {
		quota = DefaultSessionQuota
	}
	return &SessionStore{
		items: make(map[string]string),
		quota: quota,
	}
}

// GetItem returns the value stored under key.
func (s *SessionStore) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

// SetItem stores value under key, replacing any previous value. The write is
// rejected with ErrQuotaExceeded, leaving the old value in place, when it
// would take the store over quota.
func (s *SessionStore) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used + len(key) + len(value)
	if old, ok := s.items[key]; ok {
		used -= len(key) + len(old)
	}
	if used > s.quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, used, s.quota)
	}

	s.items[key] = value
	s.used = used
	return nil
}

// RemoveItem deletes key.
func (s *SessionStore) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.items[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.items, key)
	}
	return nil
}

// Len returns the number of stored items.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Used returns the number of quota bytes in use.
func (s *SessionStore) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

var _ Store = (*SessionStore)(nil)
