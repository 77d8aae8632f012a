package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often the memory store scans for dead windows.
const sweepEvery = 512

// MemoryStore is the in-process counter table. A single mutex guards
// the map; the window rollover check and the increment happen under
// the same lock, which is what makes boundary rollover atomic.
// Suitable for a single gateway instance; multi-instance deployments
// should inject RedisStore instead (per-process counters under-count
// the true global rate).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	ops     int
	now     func() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore creates an empty counter table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Incr implements Store.
func (m *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(window)}
		m.entries[key] = e
	} else {
		e.count++
	}

	m.ops++
	if m.ops >= sweepEvery {
		m.ops = 0
		m.sweepLocked(now)
	}

	return e.count, e.resetAt, nil
}

// Len returns the number of live keys. For tests and metrics.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, k)
		}
	}
}
