package coinmarketcap

import (
	"context"
	"net/url"
	"strconv"
)

// ListingsLatest retrieves a page of coins ordered by market cap rank.
func (c *Client) ListingsLatest(ctx context.Context, start, limit int, convert string) ([]CoinQuote, error) {
	if start < 1 {
		start = 1
	}
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("convert", convert)

	var body struct {
		Status status      `json:"status"`
		Data   []CoinQuote `json:"data"`
	}
	if err := c.get(ctx, "/v1/cryptocurrency/listings/latest", query, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return []CoinQuote{}, nil
	}
	return body.Data, nil
}
