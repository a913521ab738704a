// Package fallback holds the static demo quotes served whenever live data is
// unavailable.
package fallback

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"pricefeed/internal/provider"
)

// Entry is one row of a fallback table.
type Entry struct {
	Symbol    string          `yaml:"symbol"`
	Name      string          `yaml:"name"`
	Price     decimal.Decimal `yaml:"price"`
	Change24h decimal.Decimal `yaml:"change_24h"`
}

// Table is an ordered fallback table.
type Table []Entry

// Default is the built-in demo table.
var Default = Table{
	{Symbol: "BTC", Name: "Bitcoin", Price: decimal.RequireFromString("67500.00"), Change24h: decimal.RequireFromString("2.3")},
	{Symbol: "ETH", Name: "Ethereum", Price: decimal.RequireFromString("3850.00"), Change24h: decimal.RequireFromString("1.8")},
	{Symbol: "BNB", Name: "BNB", Price: decimal.RequireFromString("635.00"), Change24h: decimal.RequireFromString("-0.5")},
	{Symbol: "SOL", Name: "Solana", Price: decimal.RequireFromString("165.00"), Change24h: decimal.RequireFromString("3.2")},
	{Symbol: "DOGE", Name: "Dogecoin", Price: decimal.RequireFromString("0.38"), Change24h: decimal.RequireFromString("-1.1")},
	{Symbol: "USDC", Name: "USD Coin", Price: decimal.RequireFromString("1.00"), Change24h: decimal.RequireFromString("0.0")},
}

// Quotes converts the whole table.
func (t Table) Quotes() []provider.Quote {
	out := make([]provider.Quote, 0, len(t))
	for _, e := range t {
		out = append(out, e.quote())
	}
	return out
}

// Select returns quotes for symbols in request order. Symbols without an
// entry are skipped. An empty request returns the whole table.
func (t Table) Select(symbols []string) []provider.Quote {
	if len(symbols) == 0 {
		return t.Quotes()
	}
	bySymbol := make(map[string]Entry, len(t))
	for _, e := range t {
		bySymbol[e.Symbol] = e
	}
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if e, ok := bySymbol[strings.ToUpper(strings.TrimSpace(s))]; ok {
			out = append(out, e.quote())
		}
	}
	return out
}

func (e Entry) quote() provider.Quote {
	return provider.Quote{
		Symbol:    e.Symbol,
		Name:      e.Name,
		Price:     e.Price,
		Change24h: e.Change24h,
	}
}

// Validate checks symbols are present and unique and prices non-negative.
func (t Table) Validate() error {
	seen := make(map[string]struct{}, len(t))
	for i, e := range t {
		if e.Symbol == "" {
			return fmt.Errorf("entry %d: missing symbol", i)
		}
		if _, dup := seen[e.Symbol]; dup {
			return fmt.Errorf("entry %d: duplicate symbol %s", i, e.Symbol)
		}
		seen[e.Symbol] = struct{}{}
		if e.Price.IsNegative() {
			return fmt.Errorf("entry %d: %s has negative price", i, e.Symbol)
		}
	}
	return nil
}

type file struct {
	Quotes Table `yaml:"quotes"`
}

// Load reads a YAML override file of the form:
//
//	quotes:
//	  - {symbol: BTC, name: Bitcoin, price: 67500, change_24h: 2.3}
func Load(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fallback file: %w", err)
	}
	if len(f.Quotes) == 0 {
		return nil, errors.New("parse fallback file: no quotes")
	}
	for i := range f.Quotes {
		f.Quotes[i].Symbol = strings.ToUpper(strings.TrimSpace(f.Quotes[i].Symbol))
	}
	if err := f.Quotes.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fallback file: %w", err)
	}
	return f.Quotes, nil
}

// Source holds the active table. It is safe for concurrent use; the watcher
// swaps tables while requests read them.
type Source struct {
	table atomic.Pointer[Table]
}

// NewSource returns a Source serving t, or Default when t is empty.
func NewSource(t Table) *Source {
	s := &Source{}
	if len(t) == 0 {
		t = Default
	}
	s.Store(t)
	return s
}

func (s *Source) Table() Table { return *s.table.Load() }

func (s *Source) Store(t Table) { s.table.Store(&t) }

// Select is Table().Select.
func (s *Source) Select(symbols []string) []provider.Quote { return s.Table().Select(symbols) }
