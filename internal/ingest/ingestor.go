// Package ingest runs the bulk search-measure-append workflow with
// de-duplication against rows already in the row store.
package ingest

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-builder/internal/model"
)

const (
	// PageSize is the number of results a search page holds.
	PageSize = 10
	// MaxSearchResults is the search provider's result ceiling.
	MaxSearchResults = 100

	DefaultPageDelay    = time.Second
	DefaultMetricsDelay = 2 * time.Second
)

// SearchProvider returns result URLs for one page of a query. startIndex is
// 1-based.
type SearchProvider interface {
	Search(ctx context.Context, query string, startIndex int) ([]string, error)
}

// MetricsProvider measures page performance. A provider that answered with
// an error payload returns model.ErrorMetrics and a nil error.
type MetricsProvider interface {
	Measure(ctx context.Context, pageURL string) (model.Metrics, error)
}

// RowStore is the append-only row destination. ReadRows returns data rows
// only, never the header.
type RowStore interface {
	AppendRow(ctx context.Context, row model.SheetRow) error
	ReadRows(ctx context.Context) ([]model.SheetRow, error)
}

// Result tallies one run. Every collected URL lands in exactly one of
// Processed, Skipped or Errors.
type Result struct {
	Collected int `json:"collected"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// PreviewItem describes what Run would do with one search result.
type PreviewItem struct {
	URL       string `json:"url"`
	BaseURL   string `json:"baseUrl"`
	Duplicate bool   `json:"duplicate"`
	Invalid   bool   `json:"invalid,omitempty"`
}

// Ingestor runs bulk scans.
type Ingestor struct {
	search  SearchProvider
	metrics MetricsProvider
	rows    RowStore

	pageLimiter    *rate.Limiter
	metricsLimiter *rate.Limiter
	now            func() time.Time
	log            *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithPageDelay sets the minimum gap between search page fetches. Zero
// disables pacing.
func WithPageDelay(d time.Duration) Option {
	return func(i *Ingestor) { i.pageLimiter = newLimiter(d) }
}

// WithMetricsDelay sets the minimum gap between metrics calls. Zero
// disables pacing.
func WithMetricsDelay(d time.Duration) Option {
	return func(i *Ingestor) { i.metricsLimiter = newLimiter(d) }
}

// WithClock overrides the clock used to stamp rows.
func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) { i.now = now }
}

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingestor) { i.log = l }
}

// New creates an Ingestor with default pacing.
func New(search SearchProvider, metrics MetricsProvider, rows RowStore, opts ...Option) *Ingestor {
	i := &Ingestor{
		search:         search,
		metrics:        metrics,
		rows:           rows,
		pageLimiter:    newLimiter(DefaultPageDelay),
		metricsLimiter: newLimiter(DefaultMetricsDelay),
		now:            time.Now,
		log:            zap.L(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Run searches query, then measures and appends every result whose base URL
// is not already in the row store. Per-URL failures are counted, never
// returned; only context cancellation aborts the run with an error.
func (i *Ingestor) Run(ctx context.Context, query string, maxResults int) (Result, error) {
	existing := i.existingURLs(ctx)
	i.log.Info("ingest: loaded existing urls", zap.Int("count", len(existing)))

	urls, err := i.collect(ctx, query, maxResults)
	if err != nil {
		return Result{}, err
	}
	res := Result{Collected: len(urls)}
	i.log.Info("ingest: collected search results", zap.String("query", query), zap.Int("count", len(urls)))

	for n, raw := range urls {
		log := i.log.With(zap.String("url", raw), zap.Int("position", n+1), zap.Int("total", len(urls)))

		base, err := BaseURL(raw)
		if err != nil {
			log.Warn("ingest: invalid url", zap.Error(err))
			res.Errors++
			continue
		}

		if _, dup := existing[base]; dup {
			log.Debug("ingest: skipping duplicate", zap.String("base_url", base))
			res.Skipped++
			continue
		}

		if err := i.metricsLimiter.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "ingest: pacing")
		}

		if err := i.process(ctx, raw, base); err != nil {
			log.Error("ingest: processing failed", zap.Error(err))
			res.Errors++
			i.appendErrorRow(ctx, base, err)
			continue
		}

		existing[base] = struct{}{}
		res.Processed++
	}

	i.log.Info("ingest: run complete",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

// Preview reports, for each search result, its base URL and whether Run
// would process or skip it. It never measures or appends.
func (i *Ingestor) Preview(ctx context.Context, query string, maxResults int) ([]PreviewItem, error) {
	existing := i.existingURLs(ctx)

	urls, err := i.collect(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	items := make([]PreviewItem, 0, len(urls))
	for _, raw := range urls {
		item := PreviewItem{URL: raw}
		base, err := BaseURL(raw)
		if err != nil {
			item.Invalid = true
		} else {
			item.BaseURL = base
			_, item.Duplicate = existing[base]
			existing[base] = struct{}{}
		}
		items = append(items, item)
	}
	return items, nil
}

func (i *Ingestor) process(ctx context.Context, raw, base string) error {
	m, err := i.metrics.Measure(ctx, raw)
	if err != nil {
		return eris.Wrap(err, "ingest: measure")
	}
	if m.Error != "" {
		i.log.Warn("ingest: metrics provider reported an error",
			zap.String("url", raw), zap.String("error", m.Error))
	}
	if err := i.rows.AppendRow(ctx, model.NewSheetRow(i.now(), base, m)); err != nil {
		return eris.Wrap(err, "ingest: append row")
	}
	return nil
}

func (i *Ingestor) appendErrorRow(ctx context.Context, base string, cause error) {
	if err := i.rows.AppendRow(ctx, model.ErrorRow(i.now(), base, cause.Error())); err != nil {
		i.log.Error("ingest: error row append failed", zap.String("base_url", base), zap.Error(err))
	}
}

// existingURLs builds the de-duplication set from the row store. A read
// failure yields an empty set so the run can proceed.
func (i *Ingestor) existingURLs(ctx context.Context) map[string]struct{} {
	set := make(map[string]struct{})
	rows, err := i.rows.ReadRows(ctx)
	if err != nil {
		i.log.Warn("ingest: reading existing urls failed, continuing with empty set", zap.Error(err))
		return set
	}
	for _, r := range rows {
		if u := strings.TrimSpace(r.URL); u != "" {
			set[u] = struct{}{}
		}
	}
	return set
}

// collect pages through search results until maxResults is reached or the
// provider signals the end. A provider error stops paging; results already
// collected are kept.
func (i *Ingestor) collect(ctx context.Context, query string, maxResults int) ([]string, error) {
	maxResults = min(maxResults, MaxSearchResults)
	if maxResults <= 0 {
		return nil, nil
	}
	pages := (maxResults + PageSize - 1) / PageSize

	var urls []string
	for page := range pages {
		if err := i.pageLimiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "ingest: pacing")
		}

		start := page*PageSize + 1
		batch, err := i.search.Search(ctx, query, start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "ingest: search")
			}
			i.log.Error("ingest: search page failed", zap.Int("start", start), zap.Error(err))
			break
		}
		if len(batch) == 0 {
			break
		}
		urls = append(urls, batch...)
		if len(batch) < PageSize {
			break
		}
	}

	if len(urls) > maxResults {
		urls = urls[:maxResults]
	}
	return urls, nil
}

// BaseURL returns scheme://host for an http or https URL.
func BaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", eris.Wrapf(err, "ingest: parse url %q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", eris.Errorf("ingest: not an http(s) url: %q", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
