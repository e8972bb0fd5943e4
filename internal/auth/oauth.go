package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// GoogleEndpoint is Google's OAuth 2.0 token endpoint.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// SheetsScope grants read and write access to spreadsheets.
const SheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// OAuthConfig identifies the OAuth client used for refresh-token exchange.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
}

// RefreshSource returns a SourceFactory that exchanges the refresh token
// held in store for access tokens. The store is read on every call so a
// token rotated with "auth set-token" is picked up after a Reset.
func RefreshSource(ctx context.Context, cfg OAuthConfig, store *KeyringStore) SourceFactory {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = GoogleEndpoint
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     cfg.Endpoint,
		Scopes:       []string{SheetsScope},
	}
	return func() (oauth2.TokenSource, error) {
		refresh, err := store.Get()
		if err != nil {
			return nil, err
		}
		return oc.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}), nil
	}
}
