package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/quotagate/quotagate/internal/clock"
)

// MemoryStore is an in-memory Store backed by a map.
// It uses a Clock for expiration checks, so tests can expire entries
// by advancing a VirtualClock. Thread-safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memItem
	clock clock.Clock
}

type memItem struct {
	value     []byte
	expiresAt time.Time // zero value means no expiration
}

// NewMemoryStore creates a new in-memory store using the given clock.
func NewMemoryStore(c clock.Clock) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memItem),
		clock: c,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	if s.expired(item) {
		return nil, nil
	}
	// Return a copy to prevent mutation.
	val := make([]byte, len(item.value))
	copy(val, item.value)
	return val, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := memItem{
		value: make([]byte, len(value)),
	}
	copy(item.value, value)

	if ttl > 0 {
		item.expiresAt = s.clock.Now().Add(ttl)
	}
	s.items[key] = item
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, item := range s.items {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if s.expired(item) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MemoryStore) expired(item memItem) bool {
	return !item.expiresAt.IsZero() && !s.clock.Now().Before(item.expiresAt)
}

// Cleanup removes all expired items. Call periodically for long-running sessions.
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for key, item := range s.items {
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(s.items, key)
		}
	}
}

// Len returns the number of items (including expired ones not yet cleaned up).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
