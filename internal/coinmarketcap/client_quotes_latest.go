package coinmarketcap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CoinQuote is one cryptocurrency entry as returned by the quotes and
// listings endpoints.
type CoinQuote struct {
	ID          int                    `json:"id"`
	Name        string                 `json:"name"`
	Symbol      string                 `json:"symbol"`
	Slug        string                 `json:"slug"`
	CMCRank     int                    `json:"cmc_rank"`
	LastUpdated *time.Time             `json:"last_updated"`
	Quote       map[string]*QuoteEntry `json:"quote"`
}

// QuoteEntry is the market data of a coin in one convert currency.
type QuoteEntry struct {
	Price            decimal.NullDecimal `json:"price"`
	Volume24h        decimal.NullDecimal `json:"volume_24h"`
	PercentChange1h  decimal.Decimal     `json:"percent_change_1h"`
	PercentChange24h decimal.NullDecimal `json:"percent_change_24h"`
	PercentChange7d  decimal.Decimal     `json:"percent_change_7d"`
	MarketCap        decimal.NullDecimal `json:"market_cap"`
	LastUpdated      *time.Time          `json:"last_updated"`
}

// In returns the quote entry for currency, or nil.
func (c CoinQuote) In(currency string) *QuoteEntry {
	if c.Quote == nil {
		return nil
	}
	return c.Quote[strings.ToUpper(currency)]
}

// QuotesLatest retrieves the latest quotes for symbols converted to convert.
// Symbols missing from the response are absent from the returned map. A coin
// whose price or 24h change is null fails the whole response with ErrDecode.
func (c *Client) QuotesLatest(ctx context.Context, symbols []string, convert string) (map[string]CoinQuote, error) {
	if len(symbols) == 0 {
		return map[string]CoinQuote{}, nil
	}
	query := url.Values{}
	query.Set("symbol", strings.Join(symbols, ","))
	query.Set("convert", convert)

	var body struct {
		Status status                     `json:"status"`
		Data   map[string]json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, "/v1/cryptocurrency/quotes/latest", query, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: missing data object", ErrDecode)
	}

	out := make(map[string]CoinQuote, len(body.Data))
	for symbol, raw := range body.Data {
		coin, ok, err := decodeCoin(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, symbol, err)
		}
		if !ok {
			continue
		}
		entry := coin.In(convert)
		if entry == nil {
			return nil, fmt.Errorf("%w: %s: no %s quote", ErrDecode, symbol, convert)
		}
		if !entry.Price.Valid || !entry.PercentChange24h.Valid {
			return nil, fmt.Errorf("%w: %s: null price or change", ErrDecode, symbol)
		}
		out[strings.ToUpper(symbol)] = coin
	}
	return out, nil
}

// decodeCoin accepts both the v1 shape (one object per symbol) and the v2
// shape (an array of objects per symbol, first entry wins).
func decodeCoin(raw json.RawMessage) (CoinQuote, bool, error) {
	var coin CoinQuote
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return coin, false, nil
	}
	if trimmed[0] == '[' {
		var list []CoinQuote
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return coin, false, err
		}
		if len(list) == 0 {
			return coin, false, nil
		}
		return list[0], true, nil
	}
	if err := json.Unmarshal(trimmed, &coin); err != nil {
		return coin, false, err
	}
	return coin, true, nil
}
