package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"pricefeed/internal/provider"
)

//go:embed templates/page.html
var templates embed.FS

var page = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"price":       Price,
	"change":      Change,
	"changeClass": ChangeClass,
}).ParseFS(templates, "templates/page.html"))

// PageData is everything the landing page shows.
type PageData struct {
	Title       string
	Lang        string
	Dir         string
	Quotes      []provider.Quote
	Source      string
	Notice      string
	GeneratedAt time.Time
}

// Page renders the landing page to w.
func Page(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = "RimToken"
	}
	if data.Lang == "" {
		data.Lang = "en"
	}
	if data.Dir == "" {
		data.Dir = "ltr"
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now().UTC()
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
