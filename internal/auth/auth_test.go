package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

func TestKeyringStore_SetGetDelete(t *testing.T) {
	keyring.MockInit()
	ks := NewKeyringStore("sheets:test")

	_, err := ks.Get()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, ks.Set("refresh-1"))
	got, err := ks.Get()
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got)

	require.NoError(t, ks.Delete())
	_, err = ks.Get()
	assert.ErrorIs(t, err, ErrNoToken)

	// Deleting twice is fine.
	require.NoError(t, ks.Delete())
}

func TestKeyringStore_Validation(t *testing.T) {
	keyring.MockInit()

	_, err := NewKeyringStore("").Get()
	require.Error(t, err)
	require.Error(t, NewKeyringStore("acct").Set("  "))
}

func TestCredential_CachesUntilReset(t *testing.T) {
	var built atomic.Int32
	c := NewCredential(func() (oauth2.TokenSource, error) {
		n := built.Add(1)
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-" + string(rune('0'+n))}), nil
	})

	tok, err := c.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)

	tok, err = c.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.Equal(t, int32(1), built.Load())

	c.Reset()
	tok, err = c.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok.AccessToken)
	assert.Equal(t, 1, c.Resets())
}

func TestCredential_FactoryError(t *testing.T) {
	c := NewCredential(func() (oauth2.TokenSource, error) { return nil, eris.New("no refresh token") })
	_, err := c.Token()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no refresh token")
}

func TestStatic(t *testing.T) {
	tok, err := Static("abc").Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)

	_, err = Static("").Token()
	require.Error(t, err)
}

func TestRefreshSource_ExchangesKeyringToken(t *testing.T) {
	keyring.MockInit()
	ks := NewKeyringStore("sheets:test")
	require.NoError(t, ks.Set("refresh-xyz"))

	var exchanges atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-xyz", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	cred := NewCredential(RefreshSource(context.Background(), OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, ks))

	tok, err := cred.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)

	_, err = cred.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), exchanges.Load())

	cred.Reset()
	_, err = cred.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(2), exchanges.Load())
}

func TestRefreshSource_NoStoredToken(t *testing.T) {
	keyring.MockInit()
	cred := NewCredential(RefreshSource(context.Background(), OAuthConfig{}, NewKeyringStore("empty")))
	_, err := cred.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}
