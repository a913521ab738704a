package ratelimit

import (
	"context"
	"sync"
	"time"

	"pricefeed/internal/provider"
)

// MinInterval wraps a provider and spaces upstream calls at least Interval
// apart. Waiting callers give up when their context ends.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	if m.Interval <= 0 {
		return m.P.Fetch(ctx, symbols)
	}

	// a slot is claimed only by a caller that is about to call upstream, so
	// callers that give up while waiting leave the schedule untouched
	for {
		m.mu.Lock()
		now := time.Now()
		if !now.Before(m.next) {
			m.next = now.Add(m.Interval)
			m.mu.Unlock()
			return m.P.Fetch(ctx, symbols)
		}
		wait := m.next.Sub(now)
		m.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
