// Package ratelimit gates upstream quote calls so the service stays inside the
// API plan's request budget.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"pricefeed/internal/provider"
)

// TokenBucket refills at rate tokens per second up to capacity.
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
	now    func() time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 1e-7
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
		now:      time.Now,
	}
}

// PerMinute builds a bucket for a requests-per-minute plan limit with a burst
// of one.
func PerMinute(rpm int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60, 1)
}

// reserve takes a token if one is available, otherwise it reports how long
// until one will be.
func (tb *TokenBucket) reserve() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.rate)
		tb.last = now
	}
	if tb.tokens >= 1 {
		tb.tokens--
		return 0
	}
	wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
	return max(wait, time.Millisecond)
}

// Wait blocks until a token is taken or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait := tb.reserve()
		if wait == 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TokenBucketProvider wraps a Provider and gates calls using a token bucket.
type TokenBucketProvider struct {
	P  provider.Provider
	TB *TokenBucket
}

func (t *TokenBucketProvider) Name() string { return t.P.Name() }

func (t *TokenBucketProvider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	if t.TB != nil {
		if err := t.TB.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.P.Fetch(ctx, symbols)
}
