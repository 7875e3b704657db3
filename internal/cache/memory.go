package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process cache backend: a mutex-guarded map with lazy
// expiry on read and an optional periodic sweep to bound memory.
type MemoryStore struct {
	ttl     time.Duration
	entries map[Key]entry
	mu      sync.RWMutex

	now func() time.Time // swapped in tests
}

func NewMemoryStore(ttl, sweep time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:     ttl,
		entries: make(map[Key]entry),
		now:     time.Now,
	}
	if sweep > 0 {
		go s.janitor(sweep)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key Key) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.now().Sub(e.capturedAt) >= s.ttl {
		missTotal.WithLabelValues(key.Kind).Inc()
		return nil, false
	}
	hitTotal.WithLabelValues(key.Kind).Inc()
	return e.payload, true
}

func (s *MemoryStore) Set(_ context.Context, key Key, payload []byte) {
	s.mu.Lock()
	s.entries[key] = entry{capturedAt: s.now(), payload: payload}
	s.mu.Unlock()
}

func (s *MemoryStore) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for range t.C {
		cutoff := s.now().Add(-s.ttl)
		s.mu.Lock()
		for k, e := range s.entries {
			if e.capturedAt.Before(cutoff) {
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
}
