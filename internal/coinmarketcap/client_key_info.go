package coinmarketcap

import (
	"context"
	"fmt"
)

// KeyInfo is the subset of /v1/key/info the service reports.
type KeyInfo struct {
	Plan struct {
		Name               string `json:"name"`
		CreditLimitMonthly int    `json:"credit_limit_monthly"`
		RateLimitMinute    int    `json:"rate_limit_minute"`
	} `json:"plan"`
	Usage struct {
		CurrentMonth struct {
			CreditsUsed int `json:"credits_used"`
			CreditsLeft int `json:"credits_left"`
		} `json:"current_month"`
	} `json:"usage"`
}

// KeyInfo retrieves plan and credit usage for the configured key.
func (c *Client) KeyInfo(ctx context.Context) (KeyInfo, error) {
	var body struct {
		Status status   `json:"status"`
		Data   *KeyInfo `json:"data"`
	}
	if err := c.get(ctx, "/v1/key/info", nil, &body); err != nil {
		return KeyInfo{}, err
	}
	if body.Data == nil {
		return KeyInfo{}, fmt.Errorf("%w: missing data object", ErrDecode)
	}
	return *body.Data, nil
}
