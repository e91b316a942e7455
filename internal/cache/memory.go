package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

// MemoryStore is an in-memory Store for tests and per-job isolation.
// Last write wins; no persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
	nowFunc func() time.Time
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]model.CacheEntry),
		nowFunc: time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, domain string) (*model.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[domain]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *MemoryStore) Set(_ context.Context, entry model.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Domain] = entry
	return nil
}

func (m *MemoryStore) Purge(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.nowFunc().Add(-olderThan)
	n := 0
	for domain, entry := range m.entries {
		if entry.CachedAt.Before(cutoff) {
			delete(m.entries, domain)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) TierCounts(_ context.Context) (map[Freshness]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Freshness]int)
	now := m.nowFunc()
	for _, entry := range m.entries {
		counts[TierFor(now.Sub(entry.CachedAt))]++
	}
	return counts, nil
}

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
