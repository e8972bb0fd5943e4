package sink

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-builder/internal/model"
)

// lockRetry is the poll interval while waiting for the workbook lock.
const lockRetry = 50 * time.Millisecond

// XLSXStore is a row store backed by one sheet of a local workbook. The
// workbook and sheet are created with the header row on first append. Every
// open-modify-save cycle holds the store mutex and an exclusive file lock.
type XLSXStore struct {
	path  string
	sheet string

	// mu serialises callers in this process; a held flock handle reports
	// success to every TryLock so it only guards against other processes.
	mu   sync.Mutex
	lock *flock.Flock
}

// NewXLSXStore creates a store over the named sheet of the workbook at path.
func NewXLSXStore(path, sheet string) *XLSXStore {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &XLSXStore{path: path, sheet: sheet, lock: flock.New(path + ".lock")}
}

// Destination returns the workbook path.
func (s *XLSXStore) Destination() string {
	return s.path
}

// ReadRows returns every data row of the sheet. A missing workbook or sheet
// has no rows.
func (s *XLSXStore) ReadRows(ctx context.Context) ([]model.SheetRow, error) {
	var rows []model.SheetRow
	err := s.withLock(ctx, func() error {
		f, err := xlsx.OpenFile(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "sink: open workbook")
		}
		sheet, ok := f.Sheet[s.sheet]
		if !ok {
			return nil
		}
		for _, r := range sheet.Rows {
			values := cellStrings(r)
			if model.IsHeader(values) {
				continue
			}
			rows = append(rows, model.RowFromValues(values))
		}
		return nil
	})
	return rows, err
}

// AppendRow appends row to the sheet and saves the workbook.
func (s *XLSXStore) AppendRow(ctx context.Context, row model.SheetRow) error {
	return s.withLock(ctx, func() error {
		f, err := s.openOrCreate()
		if err != nil {
			return err
		}
		sheet, ok := f.Sheet[s.sheet]
		if !ok {
			sheet, err = f.AddSheet(s.sheet)
			if err != nil {
				return eris.Wrapf(err, "sink: add sheet %q", s.sheet)
			}
			writeRow(sheet, model.SheetHeader)
		}
		writeRow(sheet, row.ToValues())
		if err := f.Save(s.path); err != nil {
			return eris.Wrap(err, "sink: save workbook")
		}
		return nil
	})
}

func (s *XLSXStore) openOrCreate() (*xlsx.File, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return xlsx.NewFile(), nil
	}
	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "sink: open workbook")
	}
	return f, nil
}

func (s *XLSXStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return eris.Wrap(err, "sink: lock workbook")
	}
	if !locked {
		return eris.New("sink: workbook lock not acquired")
	}
	defer s.lock.Unlock() //nolint:errcheck
	return fn()
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	r := sheet.AddRow()
	for _, v := range values {
		r.AddCell().SetString(v)
	}
}

func cellStrings(r *xlsx.Row) []string {
	cells := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		cells[i] = c.String()
	}
	return cells
}
