package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-builder/internal/model"
)

type fakeSearch struct {
	pages  [][]string
	err    error
	errAt  int
	starts []int
}

func (f *fakeSearch) Search(_ context.Context, _ string, startIndex int) ([]string, error) {
	f.starts = append(f.starts, startIndex)
	page := (startIndex - 1) / PageSize
	if f.err != nil && page == f.errAt {
		return nil, f.err
	}
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	result map[string]model.Metrics
}

func (f *fakeMetrics) Measure(_ context.Context, pageURL string) (model.Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pageURL)
	if err := f.fail[pageURL]; err != nil {
		return model.Metrics{}, err
	}
	if m, ok := f.result[pageURL]; ok {
		return m, nil
	}
	return model.Metrics{PerformanceScore: "90"}, nil
}

type fakeRows struct {
	existing  []model.SheetRow
	readErr   error
	appendErr error
	appended  []model.SheetRow
}

func (f *fakeRows) ReadRows(context.Context) ([]model.SheetRow, error) {
	return f.existing, f.readErr
}

func (f *fakeRows) AppendRow(_ context.Context, row model.SheetRow) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, row)
	return nil
}

func newTestIngestor(s SearchProvider, m MetricsProvider, r RowStore) *Ingestor {
	return New(s, m, r,
		WithPageDelay(0),
		WithMetricsDelay(0),
		WithLogger(zap.NewNop()),
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }),
	)
}

func urlsOf(rows []model.SheetRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.URL
	}
	return out
}

func pageOf(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://%s%d.com/p", prefix, i)
	}
	return out
}

func TestRun_Dedup(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{
		"https://a.com/x",
		"https://b.com/y",
		"https://a.com/z",
		"https://c.com/",
	}}}
	metrics := &fakeMetrics{}
	rows := &fakeRows{existing: []model.SheetRow{{URL: " https://a.com "}, {URL: ""}}}

	res, err := newTestIngestor(search, metrics, rows).Run(context.Background(), "q", 30)
	require.NoError(t, err)

	assert.Equal(t, Result{Collected: 4, Processed: 2, Skipped: 2}, res)
	assert.Equal(t, []string{"https://b.com/y", "https://c.com/"}, metrics.calls)
	assert.Equal(t, []string{"https://b.com", "https://c.com"}, urlsOf(rows.appended))
}

func TestRun_DedupWithinRun(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"https://b.com/1", "https://b.com/2"}}}
	metrics := &fakeMetrics{}
	rows := &fakeRows{}

	res, err := newTestIngestor(search, metrics, rows).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, metrics.calls, 1)
}

func TestRun_PartialLastPageStopsPaging(t *testing.T) {
	search := &fakeSearch{pages: [][]string{pageOf("a", 10), pageOf("b", 10), pageOf("c", 3), pageOf("d", 10)}}
	metrics := &fakeMetrics{}
	rows := &fakeRows{}

	res, err := newTestIngestor(search, metrics, rows).Run(context.Background(), "q", 30)
	require.NoError(t, err)
	assert.Equal(t, 23, res.Collected)
	assert.Equal(t, 23, res.Processed)
	assert.Equal(t, []int{1, 11, 21}, search.starts)
}

func TestRun_TrimsToMaxResults(t *testing.T) {
	search := &fakeSearch{pages: [][]string{pageOf("a", 10), pageOf("b", 10)}}
	res, err := newTestIngestor(search, &fakeMetrics{}, &fakeRows{}).Run(context.Background(), "q", 15)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Collected)
	assert.Equal(t, []int{1, 11}, search.starts)
}

func TestRun_CapsAtSearchCeiling(t *testing.T) {
	pages := make([][]string, 12)
	for i := range pages {
		pages[i] = pageOf(fmt.Sprintf("p%d-", i), 10)
	}
	search := &fakeSearch{pages: pages}
	res, err := newTestIngestor(search, &fakeMetrics{}, &fakeRows{}).Run(context.Background(), "q", 500)
	require.NoError(t, err)
	assert.Equal(t, MaxSearchResults, res.Collected)
	assert.Len(t, search.starts, 10)
}

func TestRun_SearchErrorKeepsCollected(t *testing.T) {
	search := &fakeSearch{pages: [][]string{pageOf("a", 10), pageOf("b", 10)}, err: eris.New("quota"), errAt: 1}
	res, err := newTestIngestor(search, &fakeMetrics{}, &fakeRows{}).Run(context.Background(), "q", 30)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Collected)
}

func TestRun_ReadFailureFailsOpen(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"https://a.com/x"}}}
	rows := &fakeRows{readErr: eris.New("sheet unavailable"), existing: []model.SheetRow{{URL: "https://a.com"}}}

	res, err := newTestIngestor(search, &fakeMetrics{}, rows).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestRun_MetricsFailureWritesErrorRow(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"https://a.com/x", "https://b.com/y"}}}
	metrics := &fakeMetrics{fail: map[string]error{"https://a.com/x": eris.New("timeout")}}
	rows := &fakeRows{}

	res, err := newTestIngestor(search, metrics, rows).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Collected: 2, Processed: 1, Errors: 1}, res)

	require.Len(t, rows.appended, 2)
	errRow := rows.appended[0]
	assert.Equal(t, "https://a.com", errRow.URL)
	assert.Equal(t, model.ErrorPlaceholder, errRow.PerformanceScore)
	assert.Contains(t, errRow.Error, "timeout")
}

func TestRun_FailedURLNotAddedToSet(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"https://a.com/x", "https://a.com/y"}}}
	metrics := &fakeMetrics{fail: map[string]error{"https://a.com/x": eris.New("timeout")}}

	res, err := newTestIngestor(search, metrics, &fakeRows{}).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.Processed)
}

func TestRun_MetricsPayloadErrorCountsAsProcessed(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"https://a.com/x"}}}
	metrics := &fakeMetrics{result: map[string]model.Metrics{"https://a.com/x": model.ErrorMetrics("Lighthouse failed")}}
	rows := &fakeRows{}

	res, err := newTestIngestor(search, metrics, rows).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, rows.appended, 1)
	assert.Equal(t, "Lighthouse failed", rows.appended[0].Error)
}

func TestRun_AppendFailureCounted(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"https://a.com/x"}}}
	rows := &fakeRows{appendErr: eris.New("read-only")}

	res, err := newTestIngestor(search, &fakeMetrics{}, rows).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 0, res.Processed)
}

func TestRun_InvalidURLCountedWithoutRow(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"ftp://files.acme.com/a", "not a url", "https://b.com"}}}
	metrics := &fakeMetrics{}
	rows := &fakeRows{}

	res, err := newTestIngestor(search, metrics, rows).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Collected: 3, Processed: 1, Errors: 2}, res)
	assert.Equal(t, []string{"https://b.com"}, urlsOf(rows.appended))
	assert.Equal(t, []string{"https://b.com"}, metrics.calls)
}

func TestRun_ZeroMax(t *testing.T) {
	search := &fakeSearch{}
	res, err := newTestIngestor(search, &fakeMetrics{}, &fakeRows{}).Run(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, search.starts)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	search := &fakeSearch{pages: [][]string{pageOf("a", 10)}}
	ing := New(search, &fakeMetrics{}, &fakeRows{}, WithLogger(zap.NewNop()), WithPageDelay(time.Hour))
	_, err := ing.Run(ctx, "q", 10)
	require.Error(t, err)
}

func TestPreview(t *testing.T) {
	search := &fakeSearch{pages: [][]string{{"https://a.com/x", "https://b.com/y", "mailto:x@y.com"}}}
	metrics := &fakeMetrics{}
	rows := &fakeRows{existing: []model.SheetRow{{URL: "https://a.com"}}}

	items, err := newTestIngestor(search, metrics, rows).Preview(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []PreviewItem{
		{URL: "https://a.com/x", BaseURL: "https://a.com", Duplicate: true},
		{URL: "https://b.com/y", BaseURL: "https://b.com"},
		{URL: "mailto:x@y.com", Invalid: true},
	}, items)
	assert.Empty(t, metrics.calls)
	assert.Empty(t, rows.appended)
}

func TestPreview_RepeatedHostMatchesRun(t *testing.T) {
	page := []string{"https://a.com", "https://b.com/1", "https://a.com/2", "https://b.com/3"}
	stored := []model.SheetRow{{URL: "https://a.com"}}

	items, err := newTestIngestor(&fakeSearch{pages: [][]string{page}}, &fakeMetrics{}, &fakeRows{existing: stored}).
		Preview(context.Background(), "q", 10)
	require.NoError(t, err)

	fresh := 0
	for _, it := range items {
		if !it.Duplicate && !it.Invalid {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, []PreviewItem{
		{URL: "https://a.com", BaseURL: "https://a.com", Duplicate: true},
		{URL: "https://b.com/1", BaseURL: "https://b.com"},
		{URL: "https://a.com/2", BaseURL: "https://a.com", Duplicate: true},
		{URL: "https://b.com/3", BaseURL: "https://b.com", Duplicate: true},
	}, items)

	res, err := newTestIngestor(&fakeSearch{pages: [][]string{page}}, &fakeMetrics{}, &fakeRows{existing: stored}).
		Run(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, fresh, res.Processed)
	assert.Equal(t, 3, res.Skipped)
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://shop.acme.com/products/1?x=2", "https://shop.acme.com", false},
		{"http://acme.com:8080/", "http://acme.com:8080", false},
		{"https://acme.com", "https://acme.com", false},
		{"ftp://acme.com", "", true},
		{"acme.com/page", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := BaseURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
