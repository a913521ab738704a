package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the CoinMarketCap pro API root.
const DefaultBaseURL = "https://pro-api.coinmarketcap.com"

// APIKeyHeader carries the credential on every request.
const APIKeyHeader = "X-CMC_PRO_API_KEY"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coinmarketcap_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the CoinMarketCap API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains headers sent with each request, including the API key.
	header http.Header
}

// Option is a configuration option for the CoinMarketCap client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// New creates a new CoinMarketCap client. An empty key is accepted so callers
// can probe the client; requests then fail upstream with ErrUnauthorized.
func New(key string, options ...Option) (*Client, error) {
	var client = &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	client.header.Set("Accept", "application/json")
	if key != "" {
		// https://coinmarketcap.com/api/documentation/v1/#section/Authentication
		client.header.Set(APIKeyHeader, key)
	}
	for _, option := range options {
		option(client)
	}
	if client.httpClient == nil {
		return nil, errors.New("coinmarketcap: nil http client")
	}
	return client, nil
}

// status is the envelope every CoinMarketCap response carries.
type status struct {
	ErrorCode    int     `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
	CreditCount  int     `json:"credit_count"`
}

// get performs a GET on path with query and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	q := maps.Clone(query)
	if q == nil {
		q = url.Values{}
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return statusError(res)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return nil
}

// statusError turns a non-200 response into an error, reading the upstream
// error message from the status envelope when one is present.
func statusError(res *http.Response) error {
	var body struct {
		Status status `json:"status"`
	}
	msg := ""
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
	if err := json.Unmarshal(b, &body); err == nil && body.Status.ErrorMessage != nil {
		msg = *body.Status.ErrorMessage
	}

	se := &StatusError{Code: res.StatusCode, Message: msg}
	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		se.kind = ErrUnauthorized
	case http.StatusTooManyRequests:
		se.kind = ErrRateLimited
	}
	return se
}
