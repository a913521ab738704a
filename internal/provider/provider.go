package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized shape returned by all providers.
// MarketCap, Volume24h and LastUpdated are only set for live data.
type Quote struct {
	Symbol      string
	Name        string
	Price       decimal.Decimal
	Change24h   decimal.Decimal
	MarketCap   *decimal.Decimal
	Volume24h   *decimal.Decimal
	LastUpdated *time.Time
}

// Live reports whether the quote carries market data from an upstream API.
func (q Quote) Live() bool {
	return q.LastUpdated != nil || q.MarketCap != nil || q.Volume24h != nil
}

type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) ([]Quote, error)
}

// PartialError is returned when the upstream call failed but some of the
// requested symbols could still be served, e.g. from a cache. Quotes holds
// those, in request order.
type PartialError struct {
	Quotes []Quote
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial quotes (%d served): %v", len(e.Quotes), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
