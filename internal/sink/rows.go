package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-builder/internal/auth"
	"github.com/sells-group/lead-builder/internal/ingest"
	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/pkg/sheets"
)

// RowForwarder forwards a lead by appending a full-URL row to a row store.
// When a metrics provider is set the row carries page metrics, otherwise
// the metric cells are empty.
type RowForwarder struct {
	rows    ingest.RowStore
	dest    string
	metrics ingest.MetricsProvider
	cred    *auth.Credential
	now     func() time.Time

	// pending holds metrics measured for a row whose append failed on an
	// expired credential, so the retry does not measure again.
	mu      sync.Mutex
	pending map[measureKey]model.Metrics
}

type measureKey struct {
	url string
	at  int64
}

// RowOption configures a RowForwarder.
type RowOption func(*RowForwarder)

// WithMetrics measures each lead's page before appending its row.
func WithMetrics(mp ingest.MetricsProvider) RowOption {
	return func(f *RowForwarder) {
		f.metrics = mp
	}
}

// WithCredential binds the credential discarded by ResetCredential.
func WithCredential(c *auth.Credential) RowOption {
	return func(f *RowForwarder) {
		f.cred = c
	}
}

// NewRowForwarder creates a forwarder appending to rows. dest identifies the
// backing table for logs and configuration checks.
func NewRowForwarder(rows ingest.RowStore, dest string, opts ...RowOption) *RowForwarder {
	f := &RowForwarder{
		rows:    rows,
		dest:    dest,
		now:     time.Now,
		pending: make(map[measureKey]model.Metrics),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Destination returns the backing table identifier.
func (f *RowForwarder) Destination() string {
	return f.dest
}

// Forward appends the lead's row. Metrics measured for an append that failed
// on an expired credential are reused by the next Forward of the same lead.
func (f *RowForwarder) Forward(ctx context.Context, lead model.Lead) error {
	ts := lead.DateAdded
	if ts.IsZero() {
		ts = f.now().UTC()
	}
	key := measureKey{url: lead.WebsiteURL, at: lead.DateAdded.UnixNano()}

	m, reused := f.takePending(key)
	if f.metrics != nil && !reused {
		measured, err := f.metrics.Measure(ctx, lead.WebsiteURL)
		if err != nil {
			zap.L().Warn("sink: metrics unavailable for lead row",
				zap.String("url", lead.WebsiteURL),
				zap.Error(err),
			)
			measured = model.ErrorMetrics(err.Error())
		}
		m = measured
	}

	err := f.rows.AppendRow(ctx, model.NewSheetRow(ts, lead.WebsiteURL, m))
	if err != nil && f.metrics != nil && !reused && !lead.DateAdded.IsZero() &&
		model.KindOf(err) == model.ErrKindCredentialExpired {
		f.mu.Lock()
		f.pending[key] = m
		f.mu.Unlock()
	}
	return err
}

func (f *RowForwarder) takePending(key measureKey) (model.Metrics, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.pending[key]
	if ok {
		delete(f.pending, key)
	}
	return m, ok
}

// ResetCredential discards the cached access token, if any.
func (f *RowForwarder) ResetCredential() {
	if f.cred != nil {
		f.cred.Reset()
	}
}

// classify attaches an ErrorKind to err. Errors already carrying a kind are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *model.SinkError
	if errors.As(err, &se) {
		return err
	}
	var status *sheets.StatusError
	if errors.As(err, &status) {
		return model.NewSinkError(model.ClassifyStatus(status.StatusCode), status.StatusCode, err)
	}
	return model.NewSinkError(model.ErrKindTransport, 0, err)
}
