package sink

import (
	"context"
	"slices"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/pkg/sheets"
)

// DefaultSheetName is the tab written to when none is configured.
const DefaultSheetName = "Sheet1"

// SheetStore is a row store backed by one tab of a spreadsheet. The tab is
// created with the header row on first use.
type SheetStore struct {
	client        sheets.Client
	spreadsheetID string
	sheet         string

	mu    sync.Mutex
	ready bool
}

// NewSheetStore creates a store over the named tab of spreadsheetID.
func NewSheetStore(client sheets.Client, spreadsheetID, sheet string) *SheetStore {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &SheetStore{client: client, spreadsheetID: spreadsheetID, sheet: sheet}
}

// Destination returns the spreadsheet ID.
func (s *SheetStore) Destination() string {
	return s.spreadsheetID
}

// ReadRows returns every data row of the tab.
func (s *SheetStore) ReadRows(ctx context.Context) ([]model.SheetRow, error) {
	if err := s.ensureSheet(ctx); err != nil {
		return nil, err
	}
	values, err := s.client.GetValues(ctx, s.spreadsheetID, sheets.A1Range(s.sheet, "A:G"))
	if err != nil {
		return nil, classify(eris.Wrap(err, "sink: read sheet rows"))
	}

	rows := make([]model.SheetRow, 0, len(values))
	for _, v := range values {
		if model.IsHeader(v) {
			continue
		}
		rows = append(rows, model.RowFromValues(v))
	}
	return rows, nil
}

// AppendRow appends row after the last row of the tab.
func (s *SheetStore) AppendRow(ctx context.Context, row model.SheetRow) error {
	if err := s.ensureSheet(ctx); err != nil {
		return err
	}
	if err := s.client.AppendValues(ctx, s.spreadsheetID, sheets.A1Range(s.sheet, "A1"), [][]string{row.ToValues()}); err != nil {
		return classify(eris.Wrap(err, "sink: append sheet row"))
	}
	return nil
}

func (s *SheetStore) ensureSheet(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	titles, err := s.client.SheetTitles(ctx, s.spreadsheetID)
	if err != nil {
		return classify(eris.Wrap(err, "sink: list sheets"))
	}
	if !slices.Contains(titles, s.sheet) {
		if err := s.client.AddSheet(ctx, s.spreadsheetID, s.sheet); err != nil {
			return classify(eris.Wrapf(err, "sink: create sheet %q", s.sheet))
		}
		if err := s.client.AppendValues(ctx, s.spreadsheetID, sheets.A1Range(s.sheet, "A1"), [][]string{model.SheetHeader}); err != nil {
			return classify(eris.Wrap(err, "sink: write header row"))
		}
	}
	s.ready = true
	return nil
}
