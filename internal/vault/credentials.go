// Package vault provides encryption for stored provider credentials.
// This file implements credential resolution on top of the key store.
package vault

import (
	"os"
	"strings"

	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
)

// Credentials resolves provider API keys, preferring process environment
// over vault-sealed database rows.
type Credentials struct {
	vault *Vault
	store store.Store
}

// NewCredentials creates a credential resolver backed by the given vault and store.
func NewCredentials(v *Vault, s store.Store) *Credentials {
	return &Credentials{vault: v, store: s}
}

// envVarFor maps a provider name to its conventional environment variable,
// e.g. "openai" -> "OPENAI_API_KEY".
func envVarFor(provider string) string {
	return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
}

// Store validates, seals, and persists a credential. Returns the stored row
// with only the masked form populated for display.
func (c *Credentials) Store(provider, plaintext, name, notes string) (*model.APIKey, error) {
	plaintext = strings.TrimSpace(plaintext)
	if err := ValidateKeyFormat(provider, plaintext); err != nil {
		return nil, err
	}

	sealed, err := c.vault.Seal(plaintext)
	if err != nil {
		return nil, err
	}

	key := &model.APIKey{
		Provider:     provider,
		EncryptedKey: sealed,
		MaskedKey:    Mask(plaintext),
		Name:         name,
		Notes:        notes,
	}
	if err := c.store.APIKey().Create(key); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to save api key", err)
	}
	return key, nil
}

// Resolve returns the plaintext credential for a provider.
// The process environment wins; otherwise the most recently stored key is
// unsealed. Returns ErrCodeCredentialAbsent when neither source has one.
func (c *Credentials) Resolve(provider string) (string, error) {
	if key := strings.TrimSpace(os.Getenv(envVarFor(provider))); key != "" {
		return key, nil
	}

	row, err := c.store.APIKey().GetLatestByProvider(provider)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDBQuery, "failed to load api key", err)
	}
	if row == nil {
		return "", errors.New(errors.ErrCodeCredentialAbsent,
			"no api key configured for provider "+provider)
	}

	return c.vault.Open(row.EncryptedKey)
}

// Delete removes a stored credential by id.
func (c *Credentials) Delete(id uint) error {
	return c.store.APIKey().Delete(id)
}

// List returns stored credentials; encrypted values are never exposed
// through the model's JSON form.
func (c *Credentials) List() ([]model.APIKey, error) {
	return c.store.APIKey().List()
}
