package feed

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricefeed/internal/coinmarketcap"
)

const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

// MarketClient is the part of the CoinMarketCap API used beyond quotes.
type MarketClient interface {
	ListingsLatest(ctx context.Context, start, limit int, convert string) ([]coinmarketcap.CoinQuote, error)
	KeyInfo(ctx context.Context) (coinmarketcap.KeyInfo, error)
}

// Listing is one row of the market-cap ranking.
type Listing struct {
	Rank      int
	Symbol    string
	Name      string
	Price     decimal.Decimal
	Change24h decimal.Decimal
	Change7d  decimal.Decimal
	MarketCap *decimal.Decimal
	Volume24h *decimal.Decimal
}

type KeyState string

const (
	KeyActive        KeyState = "active"
	KeyError         KeyState = "error"
	KeyNotConfigured KeyState = "not_configured"
)

// KeyStatus describes the upstream credential.
type KeyStatus struct {
	Status      KeyState
	Plan        string
	CreditsUsed int
	CreditsLeft int
	Message     string
}

var errNoMarket = errors.New("market client not configured")

// Top returns the limit highest ranked coins. limit <= 0 means
// DefaultTopLimit; values above MaxTopLimit are clamped. On failure the list
// is empty and the error is classified.
func (f *Feed) Top(ctx context.Context, limit int) ([]Listing, error) {
	switch {
	case limit <= 0:
		limit = DefaultTopLimit
	case limit > MaxTopLimit:
		limit = MaxTopLimit
	}
	if !f.cfg.HasCredential() {
		return []Listing{}, &Error{Kind: KindNoCredential}
	}
	if f.market == nil {
		return []Listing{}, Classify(errNoMarket)
	}

	coins, err := f.market.ListingsLatest(ctx, 1, limit, f.cfg.Convert)
	if err != nil {
		fe := Classify(err)
		f.rec.RecordFetchError(fe.Kind.String())
		f.log.Warn("listings unavailable", zap.String("kind", fe.Kind.String()), zap.Error(err))
		return []Listing{}, fe
	}

	out := make([]Listing, 0, len(coins))
	for _, c := range coins {
		e := c.In(f.cfg.Convert)
		if e == nil || !e.Price.Valid {
			continue
		}
		l := Listing{
			Rank:      c.CMCRank,
			Symbol:    c.Symbol,
			Name:      c.Name,
			Price:     e.Price.Decimal.Round(6),
			Change24h: e.PercentChange24h.Decimal.Round(2),
			Change7d:  e.PercentChange7d.Round(2),
		}
		if e.MarketCap.Valid {
			v := e.MarketCap.Decimal
			l.MarketCap = &v
		}
		if e.Volume24h.Valid {
			v := e.Volume24h.Decimal
			l.Volume24h = &v
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Status reports plan and credit usage of the configured key. It never fails;
// problems end up in Message.
func (f *Feed) Status(ctx context.Context) KeyStatus {
	if !f.cfg.HasCredential() {
		return KeyStatus{Status: KeyNotConfigured, Message: "COINMARKETCAP_API_KEY is not set"}
	}
	if f.market == nil {
		return KeyStatus{Status: KeyError, Message: errNoMarket.Error()}
	}
	info, err := f.market.KeyInfo(ctx)
	if err != nil {
		f.log.Warn("key info unavailable", zap.Error(err))
		return KeyStatus{Status: KeyError, Message: err.Error()}
	}
	return KeyStatus{
		Status:      KeyActive,
		Plan:        info.Plan.Name,
		CreditsUsed: info.Usage.CurrentMonth.CreditsUsed,
		CreditsLeft: info.Usage.CurrentMonth.CreditsLeft,
	}
}
