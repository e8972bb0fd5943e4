package scrape

import (
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	// maxPageBytes caps how much of a page body is read.
	maxPageBytes = 2 << 20
	// minPageBytes is the smallest body treated as a real page.
	minPageBytes = 100
	// maxRedirects bounds redirect chains such as http -> https -> www.
	maxRedirects = 5
)

const defaultUserAgent = "Mozilla/5.0 (compatible; LeadBuilder/1.0)"

var errTooManyRedirects = errors.New("too many redirects")

// LocalScraper fetches a page directly over HTTP. It is tried first; blocked
// or script-only pages fall through to the next scraper in the chain.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// LocalOption configures a LocalScraper.
type LocalOption func(*LocalScraper)

// WithLocalHTTPClient replaces the default client. Its redirect policy is
// kept as given.
func WithLocalHTTPClient(hc *http.Client) LocalOption {
	return func(l *LocalScraper) { l.client = hc }
}

// WithUserAgent overrides the User-Agent sent with each fetch.
func WithUserAgent(ua string) LocalOption {
	return func(l *LocalScraper) { l.userAgent = ua }
}

// NewLocalScraper creates a LocalScraper with a 15s overall timeout.
func NewLocalScraper(opts ...LocalOption) *LocalScraper {
	l := &LocalScraper{
		userAgent: defaultUserAgent,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches targetURL and returns its raw HTML. Page.URL is the final
// URL after redirects.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, eris.Errorf("local_http: not an html page (%s)", resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}
	if len(body) < minPageBytes {
		return nil, eris.New("local_http: empty page")
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		Page:   Page{URL: finalURL, StatusCode: resp.StatusCode, HTML: string(body)},
		Source: "local_http",
	}, nil
}

// isHTML accepts HTML media types and a missing Content-Type.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
