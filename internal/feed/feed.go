// Package feed produces quote lists for a fixed set of symbols, preferring
// live data and degrading to a static fallback table. Fetch never fails.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"pricefeed/internal/fallback"
	"pricefeed/internal/provider"
)

// DefaultSymbols is the ticker list shown when a caller does not ask for one.
var DefaultSymbols = []string{"BTC", "ETH", "BNB", "SOL", "DOGE", "USDC"}

// FallbackMode decides what a failed fetch returns.
type FallbackMode string

const (
	// FallbackTable serves the fallback table (default).
	FallbackTable FallbackMode = "table"
	// FallbackEmpty serves an empty list.
	FallbackEmpty FallbackMode = "empty"
)

// Source tells where the quotes of a Result came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Config is everything the feed needs from the environment. An empty APIKey
// means no credential: the feed never calls upstream.
type Config struct {
	APIKey       string
	Convert      string
	Symbols      []string
	FallbackMode FallbackMode
}

func (c Config) HasCredential() bool { return c.APIKey != "" }

// Recorder receives fetch outcomes; *metrics.Metrics implements it.
type Recorder interface {
	RecordFetch(source string)
	RecordFetchError(kind string)
	ObserveUpstream(d time.Duration)
}

// Result is the outcome of Fetch. Err is nil for live data.
type Result struct {
	Quotes    []provider.Quote
	Source    Source
	Err       *Error
	FetchedAt time.Time
}

func (r Result) Live() bool { return r.Source == SourceLive }

type Feed struct {
	cfg      Config
	provider provider.Provider
	market   MarketClient
	fallback *fallback.Source
	log      *zap.Logger
	rec      Recorder
}

type Option func(*Feed)

// WithMarket enables Top and Status.
func WithMarket(m MarketClient) Option { return func(f *Feed) { f.market = m } }

func WithFallback(s *fallback.Source) Option { return func(f *Feed) { f.fallback = s } }

func WithLogger(l *zap.Logger) Option { return func(f *Feed) { f.log = l } }

func WithRecorder(r Recorder) Option { return func(f *Feed) { f.rec = r } }

func New(cfg Config, p provider.Provider, opts ...Option) *Feed {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = DefaultSymbols
	}
	if cfg.FallbackMode == "" {
		cfg.FallbackMode = FallbackTable
	}
	if cfg.Convert == "" {
		cfg.Convert = "USD"
	}
	f := &Feed{cfg: cfg, provider: p}
	for _, opt := range opts {
		opt(f)
	}
	if f.fallback == nil {
		f.fallback = fallback.NewSource(nil)
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	if f.rec == nil {
		f.rec = nopRecorder{}
	}
	return f
}

func (f *Feed) Config() Config { return f.cfg }

// FallbackTable is the table currently served on failure.
func (f *Feed) FallbackTable() fallback.Table { return f.fallback.Table() }

// Fetch returns quotes for symbols in request order, or for the configured
// symbols when none are given. Failures are logged, counted and replaced by
// fallback data; see Result.Err for the cause.
func (f *Feed) Fetch(ctx context.Context, symbols []string) Result {
	symbols = f.normalize(symbols)
	now := time.Now().UTC()

	if !f.cfg.HasCredential() || f.provider == nil {
		f.log.Debug("no market data credential, serving fallback")
		return f.degrade(symbols, nil, &Error{Kind: KindNoCredential}, now)
	}

	start := time.Now()
	qs, err := f.provider.Fetch(ctx, symbols)
	f.rec.ObserveUpstream(time.Since(start))
	if err != nil {
		fe := Classify(err)
		// cached quotes that survived the failure are kept
		var served []provider.Quote
		var partial *provider.PartialError
		if errors.As(err, &partial) {
			served = restrict(partial.Quotes, symbols)
		}
		f.log.Warn("live quotes unavailable, serving fallback",
			zap.String("provider", f.provider.Name()),
			zap.String("kind", fe.Kind.String()),
			zap.Int("status", fe.Code),
			zap.Strings("symbols", symbols),
			zap.Int("cached", len(served)),
			zap.Error(err),
		)
		return f.degrade(symbols, served, fe, now)
	}

	f.rec.RecordFetch(string(SourceLive))
	return Result{Quotes: restrict(qs, symbols), Source: SourceLive, FetchedAt: now}
}

// degrade builds the result of a failed fetch. served holds quotes that are
// still usable, in request order; the fallback table fills the gaps unless
// the mode is empty.
func (f *Feed) degrade(symbols []string, served []provider.Quote, fe *Error, now time.Time) Result {
	f.rec.RecordFetchError(fe.Kind.String())
	if f.cfg.FallbackMode == FallbackEmpty {
		f.rec.RecordFetch(string(SourceNone))
		return Result{Quotes: append([]provider.Quote{}, served...), Source: SourceNone, Err: fe, FetchedAt: now}
	}
	f.rec.RecordFetch(string(SourceFallback))
	quotes := f.fallback.Select(symbols)
	if len(served) > 0 {
		quotes = overlay(symbols, served, quotes)
	}
	return Result{Quotes: quotes, Source: SourceFallback, Err: fe, FetchedAt: now}
}

// overlay picks, per symbol in order, the served quote or else the fallback one.
func overlay(symbols []string, served, fb []provider.Quote) []provider.Quote {
	bySymbol := make(map[string]provider.Quote, len(symbols))
	for _, q := range fb {
		bySymbol[q.Symbol] = q
	}
	for _, q := range served {
		bySymbol[q.Symbol] = q
	}
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := bySymbol[s]; ok {
			out = append(out, q)
		}
	}
	return out
}

// normalize upper-cases, trims and de-duplicates symbols keeping first
// positions.
func (f *Feed) normalize(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return append(out, f.cfg.Symbols...)
	}
	return out
}

// restrict keeps one quote per requested symbol, in request order, dropping
// anything unrequested or priced below zero.
func restrict(qs []provider.Quote, symbols []string) []provider.Quote {
	bySymbol := make(map[string]provider.Quote, len(qs))
	for _, q := range qs {
		sym := strings.ToUpper(q.Symbol)
		if _, dup := bySymbol[sym]; dup || q.Price.IsNegative() {
			continue
		}
		q.Symbol = sym
		bySymbol[sym] = q
	}
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := bySymbol[s]; ok {
			out = append(out, q)
		}
	}
	return out
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(string)            {}
func (nopRecorder) RecordFetchError(string)       {}
func (nopRecorder) ObserveUpstream(time.Duration) {}
