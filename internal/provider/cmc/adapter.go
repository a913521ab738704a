package cmc

import (
	"context"
	"strings"

	"pricefeed/internal/coinmarketcap"
	"pricefeed/internal/provider"
)

const (
	// PricePlaces is the rounding precision of live prices.
	PricePlaces = 6
	// ChangePlaces is the rounding precision of the 24h change percentage.
	ChangePlaces = 2
)

// QuotesClient is the part of the CoinMarketCap client the adapter needs.
type QuotesClient interface {
	QuotesLatest(ctx context.Context, symbols []string, convert string) (map[string]coinmarketcap.CoinQuote, error)
}

type Config struct {
	Name    string // display name, default: CoinMarketCap
	Convert string // target fiat, default: USD
}

// Adapter turns CoinMarketCap quotes into provider quotes.
type Adapter struct {
	cfg    Config
	client QuotesClient
}

func New(cfg Config, client QuotesClient) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "CoinMarketCap"
	}
	if cfg.Convert == "" {
		cfg.Convert = "USD"
	}
	cfg.Convert = strings.ToUpper(cfg.Convert)
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Fetch issues one quotes request for all symbols. The result follows the
// request order; symbols missing upstream are skipped.
func (a *Adapter) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	coins, err := a.client.QuotesLatest(ctx, symbols, a.cfg.Convert)
	if err != nil {
		return nil, err
	}

	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		coin, ok := coins[strings.ToUpper(s)]
		if !ok {
			continue
		}
		if q, ok := a.quote(s, coin); ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (a *Adapter) quote(symbol string, coin coinmarketcap.CoinQuote) (provider.Quote, bool) {
	entry := coin.In(a.cfg.Convert)
	if entry == nil || !entry.Price.Valid || entry.Price.Decimal.IsNegative() {
		return provider.Quote{}, false
	}
	q := provider.Quote{
		Symbol:    strings.ToUpper(symbol),
		Name:      coin.Name,
		Price:     entry.Price.Decimal.Round(PricePlaces),
		Change24h: entry.PercentChange24h.Decimal.Round(ChangePlaces),
	}
	if entry.MarketCap.Valid {
		v := entry.MarketCap.Decimal
		q.MarketCap = &v
	}
	if entry.Volume24h.Valid {
		v := entry.Volume24h.Decimal
		q.Volume24h = &v
	}
	switch {
	case entry.LastUpdated != nil:
		ts := entry.LastUpdated.UTC()
		q.LastUpdated = &ts
	case coin.LastUpdated != nil:
		ts := coin.LastUpdated.UTC()
		q.LastUpdated = &ts
	}
	return q, true
}
