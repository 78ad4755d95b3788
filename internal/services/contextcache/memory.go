package contextcache

import (
	"context"
	"sync"
	"time"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/metrics"
)

type entry struct {
	bundle   *analysis.Bundle
	storedAt time.Time
}

// Memory is an in-process cache. A zero ttl keeps entries forever and a
// zero maxEntries leaves the cache unbounded; when full, the entry stored
// longest ago is evicted.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

var _ Cache = (*Memory)(nil)

func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) expired(e entry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.storedAt) >= m.ttl
}

// Get returns a deep copy of the cached bundle
func (m *Memory) Get(_ context.Context, symbol string) (*analysis.Bundle, bool) {
	m.mu.RLock()
	e, ok := m.entries[symbol]
	m.mu.RUnlock()

	if !ok || m.expired(e, m.now()) {
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	metrics.RecordCacheLookup(true)
	return e.bundle.Clone(), true
}

func (m *Memory) Put(_ context.Context, bundle *analysis.Bundle) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[bundle.Symbol]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[bundle.Symbol] = entry{bundle: bundle.Clone(), storedAt: now}
	return nil
}

func (m *Memory) evictOldestLocked() {
	var (
		oldest   string
		oldestAt time.Time
		found    bool
	)
	for symbol, e := range m.entries {
		if !found || e.storedAt.Before(oldestAt) {
			oldest, oldestAt, found = symbol, e.storedAt, true
		}
	}
	if found {
		delete(m.entries, oldest)
		metrics.RecordCacheEvictions(1)
	}
}

func (m *Memory) Contains(_ context.Context, symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[symbol]
	return ok && !m.expired(e, m.now())
}

func (m *Memory) Delete(_ context.Context, symbol string) error {
	m.mu.Lock()
	delete(m.entries, symbol)
	m.mu.Unlock()
	return nil
}

// Len counts entries, including expired ones not yet pruned
func (m *Memory) Len(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Prune removes expired entries and returns how many were removed
func (m *Memory) Prune() int {
	if m.ttl <= 0 {
		return 0
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for symbol, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, symbol)
			removed++
		}
	}
	metrics.RecordCacheEvictions(removed)
	return removed
}
