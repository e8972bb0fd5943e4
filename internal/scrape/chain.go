package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-builder/internal/extract"
)

// Chain tries scrapers in priority order and returns the first page fetched.
type Chain struct {
	scrapers []Scraper
}

// NewChain creates a Chain over scrapers, highest priority first.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// Scrape fetches targetURL with the first scraper that succeeds. The error
// lists every scraper that was tried.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var failures []string
	for _, s := range c.scrapers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scrape: cancelled")
		}
		if !s.Supports(targetURL) {
			continue
		}

		result, err := s.Scrape(ctx, targetURL)
		if err != nil {
			zap.L().Debug("scrape: fetch failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			failures = append(failures, s.Name()+": "+err.Error())
			continue
		}
		if result != nil {
			zap.L().Debug("scrape: page fetched",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Int("bytes", len(result.Page.HTML)),
			)
			return result, nil
		}
	}

	if len(failures) > 0 {
		return nil, eris.Errorf("scrape: all scrapers failed for %s: %s", targetURL, strings.Join(failures, "; "))
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// Load fetches targetURL and parses the page. Pages that cannot be inspected
// are never fetched.
func (c *Chain) Load(ctx context.Context, targetURL string) (*extract.HTMLDocument, error) {
	if !extract.CanInspect(targetURL) {
		return nil, eris.Errorf("scrape: page cannot be inspected: %s", targetURL)
	}
	res, err := c.Scrape(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	return extract.NewHTMLDocument(strings.NewReader(res.Page.HTML))
}
