// Package auth manages the remote sink credential: a refresh token kept in
// the OS keyring and a cached access token that can be reset after an
// authorization failure.
package auth

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/zalando/go-keyring"
)

// KeyringService groups the tool's secrets in the OS keychain.
const KeyringService = "lead-builder"

// ErrNoToken is returned when no refresh token is stored.
var ErrNoToken = eris.New("auth: no refresh token stored")

// KeyringStore keeps one secret per account in the OS keyring.
type KeyringStore struct {
	Service string
	Account string
}

// NewKeyringStore returns a store for account under KeyringService.
func NewKeyringStore(account string) *KeyringStore {
	return &KeyringStore{Service: KeyringService, Account: account}
}

// Get returns the stored secret, or ErrNoToken when none is stored.
func (k *KeyringStore) Get() (string, error) {
	if strings.TrimSpace(k.Account) == "" {
		return "", eris.New("auth: keyring account name is empty")
	}
	secret, err := keyring.Get(k.Service, k.Account)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(secret) == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", eris.Wrap(err, "auth: keyring get")
	}
	return secret, nil
}

// Set stores secret, replacing any previous value.
func (k *KeyringStore) Set(secret string) error {
	if strings.TrimSpace(k.Account) == "" {
		return eris.New("auth: keyring account name is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return eris.New("auth: secret is empty")
	}
	return eris.Wrap(keyring.Set(k.Service, k.Account, secret), "auth: keyring set")
}

// Delete removes the stored secret. Deleting a missing secret is not an
// error.
func (k *KeyringStore) Delete() error {
	err := keyring.Delete(k.Service, k.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return eris.Wrap(err, "auth: keyring delete")
}
