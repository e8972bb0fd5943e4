package ingest

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/pkg/google"
	"github.com/sells-group/lead-builder/pkg/pagespeed"
)

// GoogleSearch adapts the Custom Search client to SearchProvider.
type GoogleSearch struct {
	Client   google.Client
	EngineID string
}

// Search returns the result links of one page.
func (g *GoogleSearch) Search(ctx context.Context, query string, startIndex int) ([]string, error) {
	resp, err := g.Client.Search(ctx, google.SearchRequest{
		Query:    query,
		EngineID: g.EngineID,
		Start:    startIndex,
		Num:      PageSize,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: search start=%d", startIndex)
	}
	return resp.Links(), nil
}

// PageSpeedMetrics adapts the PageSpeed client to MetricsProvider.
type PageSpeedMetrics struct {
	Client   pagespeed.Client
	Strategy string
}

// Measure runs a PageSpeed analysis. An API error object becomes
// placeholder metrics carrying the API message.
func (p *PageSpeedMetrics) Measure(ctx context.Context, pageURL string) (model.Metrics, error) {
	res, err := p.Client.Run(ctx, pageURL, p.Strategy)
	if err != nil {
		return model.Metrics{}, eris.Wrapf(err, "ingest: pagespeed %s", pageURL)
	}
	return MetricsFromResult(res), nil
}

// MetricsFromResult projects a PageSpeed result onto row metrics.
func MetricsFromResult(res *pagespeed.Result) model.Metrics {
	if res.Error != nil {
		return model.ErrorMetrics(res.Error.Message)
	}
	score := ""
	if s := res.PerformanceScore(); s >= 0 {
		score = strconv.Itoa(s)
	}
	return model.Metrics{
		PerformanceScore:       score,
		FirstContentfulPaint:   res.DisplayValue(pagespeed.AuditFirstContentfulPaint),
		LargestContentfulPaint: res.DisplayValue(pagespeed.AuditLargestContentfulPaint),
		CumulativeLayoutShift:  res.DisplayValue(pagespeed.AuditCumulativeLayoutShift),
	}
}
