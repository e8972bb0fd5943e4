// Package persist writes captured leads to the local cache and forwards them
// to the configured remote sink.
package persist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-builder/internal/model"
)

// PlaceholderDestination is the destination value shipped in sample
// configuration. It is treated the same as an empty destination.
const PlaceholderDestination = "YOUR_APPS_SCRIPT_WEBHOOK_URL_HERE"

// maxForwardAttempts bounds the forward loop: one call plus one retry after a
// credential reset.
const maxForwardAttempts = 2

// LeadCache is the durable local store written before any remote attempt.
type LeadCache interface {
	Append(ctx context.Context, lead model.Lead) (model.CachedLead, error)
}

// Forwarder delivers a lead to a remote destination.
type Forwarder interface {
	Forward(ctx context.Context, lead model.Lead) error
	// Destination identifies where leads are sent. An empty value or
	// PlaceholderDestination means the forwarder is not configured.
	Destination() string
}

// CredentialResetter is implemented by forwarders holding a cached
// credential that can be discarded after an authorization failure.
type CredentialResetter interface {
	ResetCredential()
}

// Configured reports whether dest names a real destination.
func Configured(dest string) bool {
	dest = strings.TrimSpace(dest)
	return dest != "" && dest != PlaceholderDestination
}

// CredentialState labels the forward loop's view of the remote credential.
type CredentialState string

const (
	StateAuthenticated    CredentialState = "authenticated"
	StateUnauthenticated  CredentialState = "unauthenticated"
	StateReauthenticating CredentialState = "reauthenticating"
	StateFailed           CredentialState = "failed"
)

// Outcome reports what Persist achieved. A local-only save is a normal
// result, not an error.
type Outcome struct {
	Lead              model.Lead      `json:"lead"`
	SavedLocally      bool            `json:"savedLocally"`
	ForwardedRemotely bool            `json:"forwardedRemotely"`
	RemoteSkipped     bool            `json:"remoteSkipped,omitempty"`
	Kind              model.ErrorKind `json:"errorKind,omitempty"`
	Err               error           `json:"-"`
	Attempts          int             `json:"attempts"`
}

// Message renders the confirmation shown after every interactive save.
func (o Outcome) Message() string {
	switch {
	case o.Lead.ExtractionMethod == model.ExtractionBasic:
		return "Added basic lead data"
	case o.Err != nil:
		return "Error saving lead - saved locally only"
	default:
		name := o.Lead.CompanyName
		if name == "" {
			name = "lead"
		}
		return fmt.Sprintf("Added %s successfully!", name)
	}
}

// Coordinator persists leads: local cache first, then at most one remote
// forward plus one retry after a credential reset.
type Coordinator struct {
	cache  LeadCache
	remote Forwarder
	now    func() time.Time
	log    *zap.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the clock used to stamp DateAdded.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// New creates a Coordinator. remote may be nil when no sink is configured.
func New(cache LeadCache, remote Forwarder, opts ...Option) *Coordinator {
	c := &Coordinator{
		cache:  cache,
		remote: remote,
		now:    time.Now,
		log:    zap.L(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Persist stamps lead, writes it locally and forwards it. It never returns
// an error; failures are reported on the Outcome.
func (c *Coordinator) Persist(ctx context.Context, lead model.Lead) Outcome {
	lead.DateAdded = c.now().UTC()
	lead.Market = lead.Market.OrUnknown()
	out := Outcome{Lead: lead}

	log := c.log.With(zap.String("url", lead.WebsiteURL))

	if _, err := c.cache.Append(ctx, lead); err != nil {
		log.Error("persist: local cache write failed", zap.Error(err))
	} else {
		out.SavedLocally = true
	}

	if c.remote == nil || !Configured(c.remote.Destination()) {
		log.Info("persist: remote not configured, saved locally only",
			zap.String("kind", string(model.ErrKindNotConfigured)))
		out.RemoteSkipped = true
		return out
	}

	c.forward(ctx, log, &out)
	return out
}

func (c *Coordinator) forward(ctx context.Context, log *zap.Logger, out *Outcome) {
	state := StateAuthenticated
	transition := func(next CredentialState) {
		log.Debug("persist: credential state",
			zap.String("from", string(state)),
			zap.String("to", string(next)),
		)
		state = next
	}

	for attempt := 1; attempt <= maxForwardAttempts; attempt++ {
		out.Attempts = attempt
		err := c.remote.Forward(ctx, out.Lead)
		if err == nil {
			if state == StateReauthenticating {
				transition(StateAuthenticated)
			}
			out.ForwardedRemotely = true
			out.Kind = model.ErrKindNone
			log.Info("persist: forwarded lead",
				zap.String("destination", c.remote.Destination()),
				zap.Int("attempts", attempt),
			)
			return
		}

		kind := model.KindOf(err)
		if kind != model.ErrKindCredentialExpired || attempt == maxForwardAttempts {
			if state == StateReauthenticating {
				transition(StateFailed)
			}
			out.Err = err
			out.Kind = kind
			log.Warn("persist: remote forward failed, saved locally only",
				zap.String("kind", string(kind)),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return
		}

		transition(StateUnauthenticated)
		if r, ok := c.remote.(CredentialResetter); ok {
			r.ResetCredential()
		}
		transition(StateReauthenticating)
	}
}
