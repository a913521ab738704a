package cmc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricefeed/internal/coinmarketcap"
)

type fakeClient struct {
	coins   map[string]coinmarketcap.CoinQuote
	err     error
	convert string
	calls   int
}

func (f *fakeClient) QuotesLatest(_ context.Context, _ []string, convert string) (map[string]coinmarketcap.CoinQuote, error) {
	f.calls++
	f.convert = convert
	return f.coins, f.err
}

func coin(name, price, change string) coinmarketcap.CoinQuote {
	return coinmarketcap.CoinQuote{
		Name: name,
		Quote: map[string]*coinmarketcap.QuoteEntry{
			"USD": {
				Price:            decimal.NewNullDecimal(decimal.RequireFromString(price)),
				PercentChange24h: decimal.NewNullDecimal(decimal.RequireFromString(change)),
			},
		},
	}
}

func TestFetch_RoundsPriceAndChange(t *testing.T) {
	fc := &fakeClient{coins: map[string]coinmarketcap.CoinQuote{
		"BTC": coin("Bitcoin", "67123.45678951", "2.34567"),
	}}
	a := New(Config{}, fc)

	qs, err := a.Fetch(t.Context(), []string{"BTC"})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.Equal(t, "67123.45679", qs[0].Price.String())
	require.Equal(t, "2.35", qs[0].Change24h.String())
	require.Equal(t, "Bitcoin", qs[0].Name)
	require.Equal(t, "USD", fc.convert)
}

func TestFetch_PreservesOrderAndSkipsMissing(t *testing.T) {
	fc := &fakeClient{coins: map[string]coinmarketcap.CoinQuote{
		"ETH": coin("Ethereum", "3850", "1.8"),
		"BTC": coin("Bitcoin", "67500", "2.3"),
	}}
	a := New(Config{}, fc)

	qs, err := a.Fetch(t.Context(), []string{"ETH", "SOL", "BTC"})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	require.Equal(t, "ETH", qs[0].Symbol)
	require.Equal(t, "BTC", qs[1].Symbol)
}

func TestFetch_CarriesMarketData(t *testing.T) {
	ts := time.Date(2024, 7, 30, 5, 43, 0, 0, time.UTC)
	c := coin("Bitcoin", "67500", "2.3")
	c.Quote["USD"].MarketCap = decimal.NewNullDecimal(decimal.RequireFromString("1320000000000"))
	c.Quote["USD"].Volume24h = decimal.NewNullDecimal(decimal.RequireFromString("35000000000"))
	c.Quote["USD"].LastUpdated = &ts
	a := New(Config{}, &fakeClient{coins: map[string]coinmarketcap.CoinQuote{"BTC": c}})

	qs, err := a.Fetch(t.Context(), []string{"btc"})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	q := qs[0]
	require.Equal(t, "BTC", q.Symbol)
	require.True(t, q.Live())
	require.Equal(t, "1320000000000", q.MarketCap.String())
	require.Equal(t, "35000000000", q.Volume24h.String())
	require.True(t, q.LastUpdated.Equal(ts))
}

func TestFetch_DropsNegativePrice(t *testing.T) {
	a := New(Config{}, &fakeClient{coins: map[string]coinmarketcap.CoinQuote{
		"BAD": coin("Broken", "-1", "0"),
	}})
	qs, err := a.Fetch(t.Context(), []string{"BAD"})
	require.NoError(t, err)
	require.Empty(t, qs)
}

func TestFetch_PropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	a := New(Config{}, &fakeClient{err: boom})
	qs, err := a.Fetch(t.Context(), []string{"BTC"})
	require.ErrorIs(t, err, boom)
	require.Nil(t, qs)
}

func TestNew_Defaults(t *testing.T) {
	a := New(Config{Convert: "eur"}, &fakeClient{})
	require.Equal(t, "CoinMarketCap", a.Name())
	require.Equal(t, "EUR", a.cfg.Convert)
}
