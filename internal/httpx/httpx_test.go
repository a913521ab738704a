package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDo_DefaultHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := New(0)
	c.Headers = map[string]string{"Accept": "application/json", "X-Trace": "a"}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Trace", "b")

	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	require.Equal(t, "application/json", got.Get("Accept"))
	require.Equal(t, "b", got.Get("X-Trace"))
	require.Equal(t, DefaultTimeout, c.HTTP.Timeout)
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(30 * time.Millisecond)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
}
