package auth

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// SourceFactory builds a fresh token source. It is called on first use and
// again after every Reset.
type SourceFactory func() (oauth2.TokenSource, error)

// Credential is an oauth2.TokenSource whose cached token can be discarded.
// The zero value is not usable; use NewCredential.
type Credential struct {
	mu      sync.Mutex
	factory SourceFactory
	src     oauth2.TokenSource
	resets  int
}

// NewCredential returns a Credential that obtains tokens from factory.
func NewCredential(factory SourceFactory) *Credential {
	return &Credential{factory: factory}
}

// Static returns a Credential that always yields accessToken. Resetting it
// has no effect on the token value.
func Static(accessToken string) *Credential {
	return NewCredential(func() (oauth2.TokenSource, error) {
		if accessToken == "" {
			return nil, eris.New("auth: access token is empty")
		}
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}), nil
	})
}

// Token returns a valid token, building the source on first use.
func (c *Credential) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.src == nil {
		src, err := c.factory()
		if err != nil {
			return nil, eris.Wrap(err, "auth: build token source")
		}
		c.src = oauth2.ReuseTokenSource(nil, src)
	}
	tok, err := c.src.Token()
	if err != nil {
		return nil, eris.Wrap(err, "auth: token")
	}
	return tok, nil
}

// Reset drops the cached token so the next Token call re-authenticates.
func (c *Credential) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.src = nil
	c.resets++
	zap.L().Info("auth: credential reset", zap.Int("resets", c.resets))
}

// Resets reports how many times Reset was called.
func (c *Credential) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}
