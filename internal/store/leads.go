package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-builder/internal/model"
)

// LeadsKey is the cache key holding the lead list.
const LeadsKey = "leads"

// LeadCache keeps every captured lead in a single append-only list stored
// under one Cache key.
type LeadCache struct {
	cache Cache
	mu    sync.Mutex
	newID func() string
	now   func() time.Time
}

// NewLeadCache returns a LeadCache backed by c.
func NewLeadCache(c Cache) *LeadCache {
	return &LeadCache{
		cache: c,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// Append adds lead to the cached list and returns the stored entry. The
// read-modify-write runs under a mutex, and inside a transaction when the
// cache supports it, so concurrent appends are never lost.
func (lc *LeadCache) Append(ctx context.Context, lead model.Lead) (model.CachedLead, error) {
	entry := model.CachedLead{
		ID:      lc.newID(),
		Lead:    lead,
		SavedAt: lc.now().UnixMilli(),
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	appendFn := func(current []byte) ([]byte, error) {
		leads, err := decodeLeads(current)
		if err != nil {
			return nil, err
		}
		leads = append(leads, entry)
		out, err := json.Marshal(leads)
		return out, eris.Wrap(err, "store: marshal leads")
	}

	if u, ok := lc.cache.(Updater); ok {
		if err := u.Update(ctx, LeadsKey, appendFn); err != nil {
			return model.CachedLead{}, eris.Wrap(err, "store: append lead")
		}
		return entry, nil
	}

	current, err := lc.cache.Get(ctx, LeadsKey)
	if err != nil {
		return model.CachedLead{}, eris.Wrap(err, "store: read leads")
	}
	next, err := appendFn(current)
	if err != nil {
		return model.CachedLead{}, err
	}
	if err := lc.cache.Set(ctx, LeadsKey, next); err != nil {
		return model.CachedLead{}, eris.Wrap(err, "store: write leads")
	}
	return entry, nil
}

// List returns cached leads in insertion order. A positive limit keeps only
// the most recent limit entries.
func (lc *LeadCache) List(ctx context.Context, limit int) ([]model.CachedLead, error) {
	current, err := lc.cache.Get(ctx, LeadsKey)
	if err != nil {
		return nil, eris.Wrap(err, "store: read leads")
	}
	leads, err := decodeLeads(current)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(leads) > limit {
		leads = leads[len(leads)-limit:]
	}
	for i := range leads {
		leads[i].Market = leads[i].Market.OrUnknown()
	}
	return leads, nil
}

func decodeLeads(raw []byte) ([]model.CachedLead, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var leads []model.CachedLead
	if err := json.Unmarshal(raw, &leads); err != nil {
		return nil, eris.Wrap(err, "store: decode leads")
	}
	return leads, nil
}
