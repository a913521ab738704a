// Command fetch prints current quotes once, using the same configuration and
// fallback rules as the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricefeed/internal/app"
	"pricefeed/internal/config"
	"pricefeed/internal/feed"
	"pricefeed/internal/logger"
	"pricefeed/internal/render"
)

type options struct {
	symbols string
	config  string
	timeout time.Duration
	format  string
	top     int
	status  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.symbols, "symbols", "", "comma-separated tickers (default: configured symbols)")
	flag.StringVar(&opts.config, "config", "", "path to config file (json or yaml)")
	flag.DurationVar(&opts.timeout, "timeout", 15*time.Second, "overall deadline")
	flag.StringVar(&opts.format, "format", "table", "output format: table or json")
	flag.IntVar(&opts.top, "top", 0, "print the top N coins by market cap instead of quotes")
	flag.BoolVar(&opts.status, "status", false, "print API key status instead of quotes")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	cfg, err := config.Load(opts.config)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// stdout carries the report; diagnostics stay on stderr and quiet unless asked
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "error"
	}
	cfg.Log.Format = "console"
	cfg.Log.Output = "stderr"
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	switch {
	case opts.status:
		return printStatus(out, a.Feed.Status(ctx), opts.format)
	case opts.top > 0:
		listings, err := a.Feed.Top(ctx, opts.top)
		if err != nil {
			log.Warn("top listings unavailable", zap.Error(err))
		}
		return printTop(out, listings, opts.format)
	}

	res := a.Feed.Fetch(ctx, splitCSV(opts.symbols))
	return printQuotes(out, res, opts.format)
}

func printQuotes(out io.Writer, res feed.Result, format string) error {
	if format == "json" {
		type row struct {
			Symbol    string `json:"symbol"`
			Name      string `json:"name"`
			Price     string `json:"price"`
			Change24h string `json:"change_24h"`
		}
		rows := make([]row, 0, len(res.Quotes))
		for _, q := range res.Quotes {
			rows = append(rows, row{q.Symbol, q.Name, q.Price.String(), q.Change24h.String()})
		}
		return writeJSON(out, map[string]any{"source": res.Source, "quotes": rows})
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tPRICE\tCHANGE 24H")
	for _, q := range res.Quotes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.Symbol, q.Name, render.Price(q.Price), render.Change(q.Change24h))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	msg := fmt.Sprintf("source: %s", res.Source)
	if res.Err != nil {
		msg += fmt.Sprintf(" (%s)", res.Err.Kind)
	}
	_, err := fmt.Fprintln(out, msg)
	return err
}

type listingRow struct {
	Rank      int     `json:"rank"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     string  `json:"price"`
	Change24h string  `json:"change_24h"`
	Change7d  string  `json:"change_7d"`
	MarketCap *string `json:"market_cap,omitempty"`
	Volume24h *string `json:"volume_24h,omitempty"`
}

type statusRow struct {
	Status      string `json:"status"`
	Plan        string `json:"plan,omitempty"`
	CreditsUsed int    `json:"credits_used"`
	CreditsLeft int    `json:"credits_left"`
	Message     string `json:"message,omitempty"`
}

func optString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func printTop(out io.Writer, listings []feed.Listing, format string) error {
	if format == "json" {
		rows := make([]listingRow, 0, len(listings))
		for _, l := range listings {
			rows = append(rows, listingRow{
				Rank:      l.Rank,
				Symbol:    l.Symbol,
				Name:      l.Name,
				Price:     l.Price.String(),
				Change24h: l.Change24h.String(),
				Change7d:  l.Change7d.String(),
				MarketCap: optString(l.MarketCap),
				Volume24h: optString(l.Volume24h),
			})
		}
		return writeJSON(out, rows)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSYMBOL\tNAME\tPRICE\t24H\t7D")
	for _, l := range listings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", l.Rank, l.Symbol, l.Name,
			render.Price(l.Price), render.Change(l.Change24h), render.Change(l.Change7d))
	}
	return tw.Flush()
}

func printStatus(out io.Writer, st feed.KeyStatus, format string) error {
	if format == "json" {
		return writeJSON(out, statusRow{
			Status:      string(st.Status),
			Plan:        st.Plan,
			CreditsUsed: st.CreditsUsed,
			CreditsLeft: st.CreditsLeft,
			Message:     st.Message,
		})
	}
	_, err := fmt.Fprintf(out, "status: %s\nplan: %s\ncredits used: %d\ncredits left: %d\n%s\n",
		st.Status, st.Plan, st.CreditsUsed, st.CreditsLeft, st.Message)
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
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
