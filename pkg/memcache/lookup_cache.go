// pkg/memcache/lookup_cache.go
package mem

import (
	"sync"
	"time"
)

// LookupStore caches display-name lookups (account, restaurant) used when
// enriching outbound notifications, so a burst of events does not hammer the
// database for the same row.
type LookupStore interface {
	// GetOrFetch returns the cached value for key if present and fresh,
	// otherwise calls fetch, stores the result for ttl and returns it.
	// A fetch error is returned as-is and nothing is cached.
	GetOrFetch(key string, ttl time.Duration, fetch func() (string, error)) (string, error)

	Peek(key string) (string, bool)

	// Clear drops every cached entry. Call on principal change.
	Clear()
}

type entry struct {
	value     string
	expiresAt time.Time
}

type LookupCache struct {
	mu   sync.RWMutex
	data map[string]entry
}

func NewLookupCache() *LookupCache {
	return &LookupCache{
		data: make(map[string]entry),
	}
}

func (s *LookupCache) GetOrFetch(key string, ttl time.Duration, fetch func() (string, error)) (string, error) {
	if v, ok := s.Peek(key); ok {
		return v, nil
	}

	v, err := fetch()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{
		value:     v,
		expiresAt: time.Now().Add(ttl),
	}
	return v, nil
}

func (s *LookupCache) Peek(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (s *LookupCache) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]entry)
}
