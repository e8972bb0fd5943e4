package model

import (
	"strings"
	"time"
)

// ErrorPlaceholder fills every metric cell of a row whose measurement failed.
const ErrorPlaceholder = "Error"

// SheetHeader is the header row written when a row store is first created.
var SheetHeader = []string{
	"Timestamp",
	"URL",
	"Performance Score",
	"First Contentful Paint",
	"Largest Contentful Paint",
	"Cumulative Layout Shift",
	"Error",
}

// URLColumn is the zero-based index of the URL cell in a SheetRow tuple.
const URLColumn = 1

// Metrics holds the page performance figures reported by a metrics provider.
type Metrics struct {
	PerformanceScore       string `json:"performanceScore"`
	FirstContentfulPaint   string `json:"firstContentfulPaint"`
	LargestContentfulPaint string `json:"largestContentfulPaint"`
	CumulativeLayoutShift  string `json:"cumulativeLayoutShift"`
	Error                  string `json:"error,omitempty"`
}

// ErrorMetrics returns the placeholder metrics recorded when a measurement
// produced an error payload instead of figures.
func ErrorMetrics(msg string) Metrics {
	return Metrics{
		PerformanceScore:       ErrorPlaceholder,
		FirstContentfulPaint:   ErrorPlaceholder,
		LargestContentfulPaint: ErrorPlaceholder,
		CumulativeLayoutShift:  ErrorPlaceholder,
		Error:                  msg,
	}
}

// SheetRow is the persisted projection of a lead or a bulk-scan result.
// Rows are append-only.
type SheetRow struct {
	Timestamp time.Time
	URL       string
	Metrics
}

// NewSheetRow builds a row for url stamped at ts.
func NewSheetRow(ts time.Time, url string, m Metrics) SheetRow {
	return SheetRow{Timestamp: ts, URL: url, Metrics: m}
}

// ErrorRow builds the row logged when processing url failed.
func ErrorRow(ts time.Time, url, msg string) SheetRow {
	return NewSheetRow(ts, url, ErrorMetrics(msg))
}

// ToValues renders the row as an ordered cell tuple.
func (r SheetRow) ToValues() []string {
	ts := ""
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.UTC().Format(time.RFC3339)
	}
	return []string{
		ts,
		r.URL,
		r.PerformanceScore,
		r.FirstContentfulPaint,
		r.LargestContentfulPaint,
		r.CumulativeLayoutShift,
		r.Error,
	}
}

// RowFromValues parses a cell tuple. Missing trailing cells are treated as
// empty and an unparsable timestamp is left zero.
func RowFromValues(values []string) SheetRow {
	cell := func(i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}

	var ts time.Time
	if raw := cell(0); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			ts = t
		}
	}

	return SheetRow{
		Timestamp: ts,
		URL:       cell(URLColumn),
		Metrics: Metrics{
			PerformanceScore:       cell(2),
			FirstContentfulPaint:   cell(3),
			LargestContentfulPaint: cell(4),
			CumulativeLayoutShift:  cell(5),
			Error:                  cell(6),
		},
	}
}

// IsHeader reports whether values is the header row.
func IsHeader(values []string) bool {
	return len(values) > URLColumn &&
		strings.TrimSpace(values[0]) == SheetHeader[0] &&
		strings.TrimSpace(values[URLColumn]) == SheetHeader[URLColumn]
}
