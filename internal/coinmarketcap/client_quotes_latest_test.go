package coinmarketcap_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pricefeed/internal/coinmarketcap"
)

var mockQuotesResponse = map[string]any{
	"status": map[string]any{"error_code": 0, "error_message": nil, "credit_count": 1},
	"data": map[string]any{
		"BTC": map[string]any{
			"id":     1,
			"name":   "Bitcoin",
			"symbol": "BTC",
			"quote": map[string]any{
				"USD": map[string]any{
					"price":              67123.456789123,
					"percent_change_24h": 2.34567,
					"market_cap":         1320000000000.5,
					"volume_24h":         35000000000.25,
					"last_updated":       "2024-07-30T05:43:00.000Z",
				},
			},
		},
		"ETH": []any{
			map[string]any{
				"id":     1027,
				"name":   "Ethereum",
				"symbol": "ETH",
				"quote": map[string]any{
					"USD": map[string]any{
						"price":              3850.1,
						"percent_change_24h": -1.25,
						"market_cap":         nil,
						"volume_24h":         nil,
						"last_updated":       "2024-07-30T05:43:00.000Z",
					},
				},
			},
		},
	},
}

func TestQuotesLatest(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "test-key", req.Header.Get(coinmarketcap.APIKeyHeader))
			require.Equal(t, "/v1/cryptocurrency/quotes/latest", req.URL.Path)
			require.Equal(t, "BTC,ETH", req.URL.Query().Get("symbol"))
			require.Equal(t, "USD", req.URL.Query().Get("convert"))
			return jsonResponse(t, http.StatusOK, mockQuotesResponse), nil
		}).
		Times(1)

	// Arrange: setup a new client
	client, err := coinmarketcap.New("test-key", coinmarketcap.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call QuotesLatest
	coins, err := client.QuotesLatest(t.Context(), []string{"BTC", "ETH"}, "USD")
	require.NoError(t, err)

	// Assert: both the object and the array shape decode
	require.Len(t, coins, 2)
	btc := coins["BTC"]
	require.Equal(t, "Bitcoin", btc.Name)
	require.True(t, btc.In("usd").Price.Decimal.Equal(decimal.RequireFromString("67123.456789123")))
	require.True(t, btc.In("USD").MarketCap.Valid)
	require.NotNil(t, btc.In("USD").LastUpdated)

	eth := coins["ETH"]
	require.Equal(t, "Ethereum", eth.Name)
	require.True(t, eth.In("USD").PercentChange24h.Decimal.Equal(decimal.RequireFromString("-1.25")))
	require.False(t, eth.In("USD").MarketCap.Valid)
	require.False(t, eth.In("USD").Volume24h.Valid)
}

func TestQuotesLatest_EmptySymbolsSkipsRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client, err := coinmarketcap.New("test-key", coinmarketcap.WithHTTPClient(httpClient))
	require.NoError(t, err)

	coins, err := client.QuotesLatest(t.Context(), nil, "USD")
	require.NoError(t, err)
	require.Empty(t, coins)
}

func TestQuotesLatest_ErrCreatingRequest(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: no request leaves the client
	httpClient.EXPECT().
		Do(gomock.Any()).
		Times(0)

	// Arrange: setup a client with an unparsable base URL
	client, err := coinmarketcap.New("", coinmarketcap.WithHTTPClient(httpClient), coinmarketcap.WithBaseURL(string([]rune{0x7f})))
	require.NoError(t, err)

	// Act: call QuotesLatest
	coins, err := client.QuotesLatest(t.Context(), []string{"BTC"}, "USD")
	require.Error(t, err)
	require.Nil(t, coins)
}

func TestQuotesLatest_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	transportErr := errors.New("connection refused")
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(nil, transportErr).
		Times(1)

	// Arrange: setup a new client
	client, err := coinmarketcap.New("test-key", coinmarketcap.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: call QuotesLatest
	coins, err := client.QuotesLatest(t.Context(), []string{"BTC"}, "USD")
	require.ErrorIs(t, err, transportErr)
	require.Nil(t, coins)
}

func TestQuotesLatest_StatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		is     error
	}{
		{"unauthorized", http.StatusUnauthorized, coinmarketcap.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, coinmarketcap.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, coinmarketcap.ErrRateLimited},
		{"server error", http.StatusInternalServerError, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				DoAndReturn(func(req *http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: tc.status,
						Body:       io.NopCloser(bytes.NewReader([]byte{})),
					}, nil
				}).
				Times(1)

			client, err := coinmarketcap.New("test-key", coinmarketcap.WithHTTPClient(httpClient))
			require.NoError(t, err)

			coins, err := client.QuotesLatest(t.Context(), []string{"BTC"}, "USD")
			require.Nil(t, coins)

			var se *coinmarketcap.StatusError
			require.ErrorAs(t, err, &se)
			require.Equal(t, tc.status, se.Code)
			if tc.is != nil {
				require.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestQuotesLatest_ErrDecodingResponse(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"invalid json":       "invalid json",
		"missing data":       `{"status":{"error_code":0}}`,
		"wrong type":         `{"data":{"BTC":"nope"}}`,
		"missing quote":      `{"data":{"BTC":{"name":"Bitcoin","quote":{"EUR":{"price":1}}}}}`,
		"price not a number": `{"data":{"BTC":{"name":"Bitcoin","quote":{"USD":{"price":"abc"}}}}}`,
		"null price":         `{"data":{"BTC":{"name":"Bitcoin","quote":{"USD":{"price":null,"percent_change_24h":1.5}}}}}`,
		"null change":        `{"data":{"BTC":{"name":"Bitcoin","quote":{"USD":{"price":67000,"percent_change_24h":null}}}}}`,
		"missing price":      `{"data":{"BTC":{"name":"Bitcoin","quote":{"USD":{"percent_change_24h":1.5}}}}}`,
		"array null price":   `{"data":{"ETH":[{"name":"Ethereum","quote":{"USD":{"price":null,"percent_change_24h":null}}}]}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				DoAndReturn(func(req *http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       io.NopCloser(bytes.NewBufferString(body)),
					}, nil
				}).
				Times(1)

			client, err := coinmarketcap.New("test-key", coinmarketcap.WithHTTPClient(httpClient))
			require.NoError(t, err)

			coins, err := client.QuotesLatest(t.Context(), []string{"BTC"}, "USD")
			require.ErrorIs(t, err, coinmarketcap.ErrDecode)
			require.Nil(t, coins)
		})
	}
}

func TestQuotesLatest_SkipsNullSymbols(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(`{"data":{"BTC":{"name":"Bitcoin","quote":{"USD":{"price":1,"percent_change_24h":0}}},"XYZ":null,"ABC":[]}}`)),
			}, nil
		}).
		Times(1)

	client, err := coinmarketcap.New("test-key", coinmarketcap.WithHTTPClient(httpClient))
	require.NoError(t, err)

	coins, err := client.QuotesLatest(t.Context(), []string{"BTC", "XYZ", "ABC"}, "USD")
	require.NoError(t, err)
	require.Len(t, coins, 1)
	require.Contains(t, coins, "BTC")
}
