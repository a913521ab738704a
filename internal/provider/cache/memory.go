package cache

import (
	"context"
	"sync"
	"time"

	"pricefeed/internal/provider"
)

type entry struct {
	expiresAt time.Time
	quote     provider.Quote
}

// MemoryStore is a process-local Store. MaxItems <= 0 means unbounded.
type MemoryStore struct {
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

func NewMemoryStore(maxItems int) *MemoryStore {
	return &MemoryStore{MaxItems: maxItems, items: make(map[string]entry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, symbol string) (provider.Quote, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[symbol]
	if !ok || !m.now().Before(e.expiresAt) {
		return provider.Quote{}, false, nil
	}
	return e.quote, true, nil
}

func (m *MemoryStore) Set(_ context.Context, q provider.Quote, ttl time.Duration) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[q.Symbol] = entry{expiresAt: now.Add(ttl), quote: q}

	if m.MaxItems <= 0 || len(m.items) <= m.MaxItems {
		return nil
	}
	// expired first, then arbitrary
	for k, v := range m.items {
		if !now.Before(v.expiresAt) {
			delete(m.items, k)
		}
	}
	for k := range m.items {
		if len(m.items) <= m.MaxItems {
			break
		}
		if k != q.Symbol {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
