// Package sink implements the remote destinations a captured lead can be
// forwarded to, and the row stores bulk scans append to.
package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-builder/internal/model"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body when a
// webhook secret is configured.
const SignatureHeader = "X-Lead-Signature"

// maxResponseBody caps how much of a webhook reply is read.
const maxResponseBody = 1 << 20

// webhookReply is the body a webhook endpoint answers with.
type webhookReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Webhook forwards leads as JSON to an HTTP endpoint.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithWebhookHTTPClient overrides the default http.Client.
func WithWebhookHTTPClient(hc *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.client = hc
	}
}

// WithSecret signs every request body with secret.
func WithSecret(secret string) WebhookOption {
	return func(w *Webhook) {
		w.secret = secret
	}
}

// NewWebhook creates a Webhook posting to url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Destination returns the endpoint URL.
func (w *Webhook) Destination() string {
	return w.url
}

// Forward posts lead. Success requires a 2xx status and a body with
// success:true; anything else is a failure for this call.
func (w *Webhook) Forward(ctx context.Context, lead model.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return model.NewSinkError(model.ErrKindApplication, 0, eris.Wrap(err, "sink: marshal lead"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return model.NewSinkError(model.ErrKindTransport, 0, eris.Wrap(err, "sink: create webhook request"))
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.secret, payload))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return model.NewSinkError(model.ErrKindTransport, 0, eris.Wrap(err, "sink: webhook request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return model.NewSinkError(model.ErrKindTransport, resp.StatusCode, eris.Wrap(err, "sink: read webhook response"))
	}

	if kind := model.ClassifyStatus(resp.StatusCode); kind != model.ErrKindNone {
		return model.NewSinkError(kind, resp.StatusCode, eris.Errorf("sink: webhook returned status %d", resp.StatusCode))
	}

	var reply webhookReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return model.NewSinkError(model.ErrKindApplication, resp.StatusCode, eris.Wrap(err, "sink: decode webhook response"))
	}
	if !reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = "success flag not set"
		}
		return model.NewSinkError(model.ErrKindApplication, resp.StatusCode, eris.Errorf("sink: webhook rejected lead: %s", msg))
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body) //nolint:errcheck
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether sig is the signature of body under secret.
func VerifySignature(secret string, body []byte, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body) //nolint:errcheck
	return hmac.Equal(mac.Sum(nil), want)
}
