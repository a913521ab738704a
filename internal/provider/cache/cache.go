// Package cache decorates a provider.Provider with per-symbol quote caching.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pricefeed/internal/provider"
)

// Store keeps quotes per symbol until their TTL runs out.
type Store interface {
	Get(ctx context.Context, symbol string) (provider.Quote, bool, error)
	Set(ctx context.Context, q provider.Quote, ttl time.Duration) error
}

// DefaultTimeout bounds a shared upstream fetch when Timeout is unset.
const DefaultTimeout = 10 * time.Second

// Provider caches results per symbol for a TTL.
// It requests only missing symbols from the underlying provider and
// combines cached + fresh results. Concurrent fetches of the same missing
// set share one upstream call, which is detached from any single caller's
// cancellation and bounded by Timeout instead.
type Provider struct {
	P        provider.Provider
	TTL      time.Duration
	MaxItems int
	Timeout  time.Duration
	// Store defaults to an in-memory store bounded by MaxItems.
	Store Store
	Log   *zap.Logger

	once  sync.Once
	group singleflight.Group
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) init() {
	c.once.Do(func() {
		if c.Store == nil {
			c.Store = NewMemoryStore(c.MaxItems)
		}
		if c.Log == nil {
			c.Log = zap.NewNop()
		}
		if c.Timeout <= 0 {
			c.Timeout = DefaultTimeout
		}
	})
}

// Fetch returns quotes for requested symbols using cache when valid. When
// the upstream call fails but some symbols are cached, the error is a
// *provider.PartialError carrying them.
func (c *Provider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	if c.TTL <= 0 {
		return c.P.Fetch(ctx, symbols)
	}
	c.init()

	cached := make(map[string]provider.Quote, len(symbols))
	missing := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		q, ok, err := c.Store.Get(ctx, s)
		if err != nil {
			c.Log.Warn("quote cache read failed", zap.String("symbol", s), zap.Error(err))
		}
		if ok {
			cached[s] = q
			continue
		}
		missing = append(missing, s)
	}

	if len(missing) == 0 {
		return merge(symbols, cached, nil), nil
	}

	fresh, err := c.fetchShared(ctx, missing)
	if err != nil {
		if len(cached) > 0 {
			return nil, &provider.PartialError{Quotes: merge(symbols, cached, nil), Err: err}
		}
		return nil, err
	}
	return merge(symbols, cached, fresh), nil
}

// fetchShared joins or starts the upstream call for missing and waits for it
// or for ctx, whichever ends first.
func (c *Provider) fetchShared(ctx context.Context, missing []string) ([]provider.Quote, error) {
	ch := c.group.DoChan(strings.Join(missing, ","), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.Timeout)
		defer cancel()

		fresh, err := c.P.Fetch(fctx, missing)
		if err != nil {
			return nil, err
		}
		for _, q := range fresh {
			if err := c.Store.Set(fctx, q, c.TTL); err != nil {
				c.Log.Warn("quote cache write failed", zap.String("symbol", q.Symbol), zap.Error(err))
			}
		}
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]provider.Quote), nil
	}
}

// merge orders cached and fresh quotes by request order.
func merge(symbols []string, cached map[string]provider.Quote, fresh []provider.Quote) []provider.Quote {
	bySymbol := make(map[string]provider.Quote, len(fresh))
	for _, q := range fresh {
		bySymbol[q.Symbol] = q
	}
	out := make([]provider.Quote, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if q, ok := bySymbol[s]; ok {
			out = append(out, q)
		} else if q, ok := cached[s]; ok {
			out = append(out, q)
		}
	}
	return out
}
