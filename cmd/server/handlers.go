package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricefeed/internal/config"
	"pricefeed/internal/feed"
	"pricefeed/internal/provider"
	"pricefeed/internal/render"
)

const (
	maxSymbols = 100
	liveSource = "CoinMarketCap API"
)

type server struct {
	feed    *feed.Feed
	cfg     config.Config
	log     *zap.Logger
	metrics http.Handler
	now     func() time.Time
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /api/crypto/prices", s.handlePrices)
	mux.HandleFunc("GET /api/crypto/top", s.handleTop)
	mux.HandleFunc("GET /api/crypto/status", s.handleKeyStatus)
	mux.HandleFunc("GET /api/config/status", s.handleConfigStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

type quoteJSON struct {
	Symbol      string       `json:"symbol"`
	Name        string       `json:"name"`
	Price       json.Number  `json:"price"`
	Change24h   json.Number  `json:"change_24h"`
	MarketCap   *json.Number `json:"market_cap,omitempty"`
	Volume24h   *json.Number `json:"volume_24h,omitempty"`
	LastUpdated *time.Time   `json:"last_updated,omitempty"`
}

type listingJSON struct {
	Rank      int          `json:"rank"`
	Symbol    string       `json:"symbol"`
	Name      string       `json:"name"`
	Price     json.Number  `json:"price"`
	Change24h json.Number  `json:"change_24h"`
	Change7d  json.Number  `json:"change_7d"`
	MarketCap *json.Number `json:"market_cap,omitempty"`
	Volume24h *json.Number `json:"volume_24h,omitempty"`
}

type pricesResponse struct {
	Success   bool        `json:"success"`
	Data      []quoteJSON `json:"data"`
	Source    string      `json:"source"`
	Count     int         `json:"count"`
	Timestamp string      `json:"timestamp"`
}

type topResponse struct {
	Success   bool          `json:"success"`
	Data      []listingJSON `json:"data"`
	Count     int           `json:"count"`
	Timestamp string        `json:"timestamp"`
	Error     string        `json:"error,omitempty"`
}

type keyStatusResponse struct {
	Status      string `json:"status"`
	Plan        string `json:"plan,omitempty"`
	CreditsUsed int    `json:"credits_used"`
	CreditsLeft int    `json:"credits_left"`
	Message     string `json:"message,omitempty"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Version        string `json:"version"`
	Environment    string `json:"environment"`
	CoinMarketCap  string `json:"coinmarketcap_api"`
	FallbackQuotes int    `json:"fallback_quotes"`
}

type configStatusResponse struct {
	CoinMarketCapConfigured bool   `json:"coinmarketcap_api_configured"`
	ProductionReady         bool   `json:"production_ready"`
	DeploymentStatus        string `json:"deployment_status"`
}

func num(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func optNum(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := num(*d)
	return &n
}

func toQuotesJSON(qs []provider.Quote) []quoteJSON {
	out := make([]quoteJSON, 0, len(qs))
	for _, q := range qs {
		out = append(out, quoteJSON{
			Symbol:      q.Symbol,
			Name:        q.Name,
			Price:       num(q.Price),
			Change24h:   num(q.Change24h),
			MarketCap:   optNum(q.MarketCap),
			Volume24h:   optNum(q.Volume24h),
			LastUpdated: q.LastUpdated,
		})
	}
	return out
}

// sourceLabel is the source shown to clients: the upstream name for live
// data, "fallback" for anything else.
func sourceLabel(res feed.Result) string {
	if res.Live() {
		return liveSource
	}
	return string(feed.SourceFallback)
}

func (s *server) timestamp() string { return s.now().UTC().Format(http.TimeFormat) }

func (s *server) handlePrices(w http.ResponseWriter, r *http.Request) {
	symbols := splitCSV(r.URL.Query().Get("symbols"))
	if len(symbols) > maxSymbols {
		writeError(w, http.StatusBadRequest, "too many symbols (max 100)")
		return
	}

	res := s.feed.Fetch(r.Context(), symbols)
	writeJSON(w, http.StatusOK, pricesResponse{
		Success:   true,
		Data:      toQuotesJSON(res.Quotes),
		Source:    sourceLabel(res),
		Count:     len(res.Quotes),
		Timestamp: s.timestamp(),
	})
}

func (s *server) handleTop(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	listings, err := s.feed.Top(r.Context(), limit)
	resp := topResponse{
		Success:   err == nil,
		Data:      make([]listingJSON, 0, len(listings)),
		Count:     len(listings),
		Timestamp: s.timestamp(),
	}
	if err != nil {
		resp.Error = err.Error()
		var fe *feed.Error
		if errors.As(err, &fe) && fe.Kind == feed.KindNoCredential {
			resp.Error = "COINMARKETCAP_API_KEY is not configured"
		}
	}
	for _, l := range listings {
		resp.Data = append(resp.Data, listingJSON{
			Rank:      l.Rank,
			Symbol:    l.Symbol,
			Name:      l.Name,
			Price:     num(l.Price),
			Change24h: num(l.Change24h),
			Change7d:  num(l.Change7d),
			MarketCap: optNum(l.MarketCap),
			Volume24h: optNum(l.Volume24h),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleKeyStatus(w http.ResponseWriter, r *http.Request) {
	st := s.feed.Status(r.Context())
	writeJSON(w, http.StatusOK, keyStatusResponse{
		Status:      string(st.Status),
		Plan:        st.Plan,
		CreditsUsed: st.CreditsUsed,
		CreditsLeft: st.CreditsLeft,
		Message:     st.Message,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	cmcState := "not_configured"
	if s.cfg.ProductionReady() {
		cmcState = "connected"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		Service:        s.cfg.Server.ServiceName,
		Version:        s.cfg.Server.Version,
		Environment:    s.cfg.EnvironmentName(),
		CoinMarketCap:  cmcState,
		FallbackQuotes: len(s.feed.FallbackTable()),
	})
}

func (s *server) handleConfigStatus(w http.ResponseWriter, _ *http.Request) {
	ready := s.cfg.ProductionReady()
	status := "missing_config"
	if ready {
		status = "ready"
	}
	writeJSON(w, http.StatusOK, configStatusResponse{
		CoinMarketCapConfigured: ready,
		ProductionReady:         ready,
		DeploymentStatus:        status,
	})
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	res := s.feed.Fetch(r.Context(), nil)
	data := render.PageData{
		Title:       s.cfg.Server.ServiceName,
		Lang:        s.cfg.Server.PageLang,
		Dir:         s.cfg.Server.PageDir,
		Quotes:      res.Quotes,
		Source:      sourceLabel(res),
		GeneratedAt: s.now().UTC(),
	}
	switch {
	case res.Live():
		// no notice
	case errors.Is(res.Err, feed.KindNoCredential):
		data.Notice = "Live prices need a CoinMarketCap API key. Showing sample prices."
	default:
		data.Notice = "Live prices are temporarily unavailable. Showing sample prices."
	}
	if err := render.Page(w, data); err != nil {
		s.log.Error("render index", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
