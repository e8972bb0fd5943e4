// Package scrape fetches page HTML through a chain of fetchers, falling back
// to the next one when a page is blocked or unreachable.
package scrape

import "context"

// Page is a fetched HTML document.
type Page struct {
	URL        string
	StatusCode int
	HTML       string
}

// Result holds a fetched page with its source.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "jina"
}

// Scraper fetches a single URL and returns its HTML.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
