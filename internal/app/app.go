// Package app assembles the feed and its collaborators from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"pricefeed/internal/coinmarketcap"
	"pricefeed/internal/config"
	"pricefeed/internal/fallback"
	"pricefeed/internal/feed"
	"pricefeed/internal/httpx"
	"pricefeed/internal/provider"
	"pricefeed/internal/provider/cache"
	"pricefeed/internal/provider/cmc"
	"pricefeed/internal/provider/ratelimit"
)

// Metrics is what the app reports to; *metrics.Metrics implements it.
type Metrics interface {
	feed.Recorder
	RecordFallbackReload(err error)
}

type App struct {
	Feed     *feed.Feed
	Fallback *fallback.Source

	cfg   config.Config
	log   *zap.Logger
	m     Metrics
	redis *redis.Client
}

// New wires the provider chain: CoinMarketCap adapter, then rate limiting,
// then the optional cache. m may be nil.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, m Metrics) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, log: log, m: m}

	a.Fallback = fallback.NewSource(nil)
	if cfg.Fallback.File != "" {
		t, err := fallback.Load(cfg.Fallback.File)
		if err != nil {
			return nil, err
		}
		a.Fallback.Store(t)
		log.Info("fallback table loaded", zap.String("path", cfg.Fallback.File), zap.Int("quotes", len(t)))
	}

	httpClient := httpx.New(time.Duration(cfg.CoinMarketCap.TimeoutSec) * time.Second)
	client, err := coinmarketcap.New(cfg.CoinMarketCap.APIKey,
		coinmarketcap.WithBaseURL(cfg.CoinMarketCap.BaseURL),
		coinmarketcap.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("coinmarketcap client: %w", err)
	}

	var p provider.Provider = cmc.New(cmc.Config{Convert: cfg.CoinMarketCap.Convert}, client)
	// Prefer token bucket if RPM is set, otherwise use min-interval
	if rpm := cfg.CoinMarketCap.MaxRequestsPerMinute; rpm > 0 {
		p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.PerMinute(rpm)}
	} else if sec := cfg.CoinMarketCap.MinRequestIntervalSec; sec > 0 {
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(sec) * time.Second}
	}
	if cfg.Cache.TTLSeconds > 0 {
		p = &cache.Provider{
			P:        p,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
			MaxItems: cfg.Cache.MaxItems,
			Timeout:  time.Duration(cfg.CoinMarketCap.TimeoutSec) * time.Second,
			Store:    a.cacheStore(ctx),
			Log:      log.Named("cache"),
		}
	}

	opts := []feed.Option{
		feed.WithMarket(client),
		feed.WithFallback(a.Fallback),
		feed.WithLogger(log.Named("feed")),
	}
	if m != nil {
		opts = append(opts, feed.WithRecorder(m))
	}
	a.Feed = feed.New(feed.Config{
		APIKey:       cfg.CoinMarketCap.APIKey,
		Convert:      cfg.CoinMarketCap.Convert,
		Symbols:      cfg.Feed.Symbols,
		FallbackMode: feed.FallbackMode(cfg.Feed.FallbackMode),
	}, p, opts...)

	if !cfg.ProductionReady() {
		log.Warn("COINMARKETCAP_API_KEY not set; serving fallback prices")
	}
	return a, nil
}

// cacheStore returns a Redis store when one is configured and reachable,
// else nil so the cache keeps quotes in memory.
func (a *App) cacheStore(ctx context.Context) cache.Store {
	if a.cfg.Cache.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.cfg.Cache.RedisAddr, DB: a.cfg.Cache.RedisDB})
	store := cache.NewRedisStore(client, a.cfg.Cache.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		a.log.Warn("redis unavailable, caching in memory", zap.String("addr", a.cfg.Cache.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	a.redis = client
	return store
}

// Watcher returns the fallback file watcher, or nil when watching is off.
func (a *App) Watcher() *fallback.Watcher {
	if !a.cfg.Fallback.Watch || a.cfg.Fallback.File == "" {
		return nil
	}
	w := &fallback.Watcher{Path: a.cfg.Fallback.File, Source: a.Fallback, Log: a.log.Named("fallback")}
	if a.m != nil {
		w.OnReload = a.m.RecordFallbackReload
	}
	return w
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
