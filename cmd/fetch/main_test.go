package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("COINMARKETCAP_API_KEY", "")
}

func TestRun_TableFallback(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	err := run(options{symbols: "btc,doge", timeout: time.Second, format: "table"}, &out)

	require.NoError(t, err)
	require.Contains(t, out.String(), "BTC")
	require.Contains(t, out.String(), "$67,500.00")
	require.Contains(t, out.String(), "$0.38")
	require.Contains(t, out.String(), "-1.10%")
	require.Contains(t, out.String(), "source: fallback (no_credential)")
}

func TestRun_JSON(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	require.NoError(t, run(options{symbols: "ETH", timeout: time.Second, format: "json"}, &out))

	var got struct {
		Source string              `json:"source"`
		Quotes []map[string]string `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "fallback", got.Source)
	require.Equal(t, "3850", got.Quotes[0]["price"])
}

func TestRun_Status(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	require.NoError(t, run(options{status: true, timeout: time.Second, format: "table"}, &out))
	require.Contains(t, out.String(), "status: not_configured")
}

func TestRun_StatusJSON(t *testing.T) {
	isolate(t)
	t.Setenv("LOG_LEVEL", "debug")
	var out bytes.Buffer

	require.NoError(t, run(options{status: true, timeout: time.Second, format: "json"}, &out))

	// only the report reaches out, with snake_case keys
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "not_configured", got["status"])
	require.Contains(t, got, "credits_used")
	require.NotContains(t, got, "Status")
}

func TestRun_JSONWithDebugLogs(t *testing.T) {
	isolate(t)
	t.Setenv("LOG_LEVEL", "debug")
	var out bytes.Buffer

	require.NoError(t, run(options{symbols: "BTC", timeout: time.Second, format: "json"}, &out))

	var got struct {
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "fallback", got.Source)
}

func TestRun_TopJSON(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	require.NoError(t, run(options{top: 5, timeout: time.Second, format: "json"}, &out))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Empty(t, got)
}

func TestRun_BadFormat(t *testing.T) {
	require.Error(t, run(options{format: "xml"}, &bytes.Buffer{}))
}
