//go:build !integration

package main

import (
	"context"
	"sync"
	"testing"

	"github.com/sells-group/lead-builder/internal/extract"
	"github.com/sells-group/lead-builder/internal/market"
	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/internal/persist"
	"github.com/sells-group/lead-builder/internal/scrape"
	"github.com/sells-group/lead-builder/internal/store"
)

// newTestEnv wires an in-memory environment. remote may be nil.
func newTestEnv(t *testing.T, remote persist.Forwarder) *appEnv {
	t.Helper()
	cache := store.NewMemory()
	leads := store.NewLeadCache(cache)
	return &appEnv{
		Cache:       cache,
		Leads:       leads,
		Extractor:   extract.New(market.NewClassifier()),
		Fetcher:     scrape.NewChain(scrape.NewLocalScraper()),
		Coordinator: persist.New(leads, remote),
	}
}

type fakeMetrics struct {
	metrics model.Metrics
	err     error
	calls   []string
	mu      sync.Mutex
}

func (f *fakeMetrics) Measure(_ context.Context, pageURL string) (model.Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pageURL)
	return f.metrics, f.err
}

type fakeRows struct {
	mu        sync.Mutex
	rows      []model.SheetRow
	appendErr error
}

func (f *fakeRows) AppendRow(_ context.Context, row model.SheetRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeRows) ReadRows(_ context.Context) ([]model.SheetRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SheetRow(nil), f.rows...), nil
}
