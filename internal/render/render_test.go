package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricefeed/internal/provider"
)

func TestPrice(t *testing.T) {
	tests := map[string]string{
		"67500":        "$67,500.00",
		"3850.5":       "$3,850.50",
		"635":          "$635.00",
		"1234567.891":  "$1,234,567.89",
		"0.38":         "$0.38",
		"0.000012345":  "$0.000012",
		"0.1234564":    "$0.123456",
		"1":            "$1.00",
		"0":            "$0.00",
		"-1500.25":     "-$1,500.25",
		"999999.999":   "$1,000,000.00",
		"67123.456789": "$67,123.46",
	}
	for in, want := range tests {
		require.Equal(t, want, Price(decimal.RequireFromString(in)), in)
	}
}

func TestChange(t *testing.T) {
	require.Equal(t, "+2.30%", Change(decimal.RequireFromString("2.3")))
	require.Equal(t, "-0.50%", Change(decimal.RequireFromString("-0.5")))
	require.Equal(t, "+0.00%", Change(decimal.Zero))

	require.Equal(t, "positive", ChangeClass(decimal.Zero))
	require.Equal(t, "negative", ChangeClass(decimal.RequireFromString("-1.1")))
}

func TestPage(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	data := PageData{
		Quotes: []provider.Quote{
			{Symbol: "BTC", Name: "Bitcoin", Price: decimal.RequireFromString("67500"), Change24h: decimal.RequireFromString("2.3")},
			{Symbol: "BNB", Name: "<script>", Price: decimal.RequireFromString("635"), Change24h: decimal.RequireFromString("-0.5")},
		},
		Source:      "fallback",
		Notice:      "Showing sample prices",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	// Act
	err := Page(&buf, data)

	// Assert
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "$67,500.00")
	require.Contains(t, out, `<span class="price-change positive">&#43;2.30%</span>`)
	require.Contains(t, out, `<span class="price-change negative">-0.50%</span>`)
	require.Contains(t, out, "Showing sample prices")
	require.Contains(t, out, "&lt;script&gt;")
	require.Contains(t, out, "Wed, 01 May 2024 12:00:00 UTC")
}

func TestPage_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Page(&buf, PageData{Source: "fallback"}))
	require.Contains(t, buf.String(), "No market data available.")
}
