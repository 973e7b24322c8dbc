// Package vault provides encryption for stored provider credentials.
// Keys are sealed with ChaCha20-Poly1305; the vault key comes from the
// environment, a key file, or is generated on first use.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/logger"
)

// KeyEnvVar is the environment variable holding the base64 vault key.
// It takes precedence over the key file.
const KeyEnvVar = "GAMELENS_VAULT_KEY"

// maskVisible is how many trailing characters of a credential stay readable
const maskVisible = 6

// Vault seals and opens provider credentials with an AEAD cipher.
type Vault struct {
	mu   sync.RWMutex
	aead cipher.AEAD
}

// New creates a Vault, resolving the key in order: environment variable,
// key file, freshly generated (persisted to keyFile with 0600).
func New(keyFile string) (*Vault, error) {
	key, err := resolveKey(keyFile)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVaultKeyMissing, "failed to construct cipher", err)
	}

	return &Vault{aead: aead}, nil
}

// resolveKey loads or creates the 32-byte vault key.
func resolveKey(keyFile string) ([]byte, error) {
	// 1. Environment variable
	if encoded := os.Getenv(KeyEnvVar); encoded != "" {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil || len(key) != chacha20poly1305.KeySize {
			return nil, errors.New(errors.ErrCodeVaultKeyMissing,
				KeyEnvVar+" must be base64 of exactly 32 bytes")
		}
		return key, nil
	}

	// 2. Key file
	if data, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(key) != chacha20poly1305.KeySize {
			return nil, errors.New(errors.ErrCodeVaultKeyMissing,
				"vault key file is malformed: "+keyFile)
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeVaultKeyMissing, "failed to read vault key file", err)
	}

	// 3. Generate and persist
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVaultKeyMissing, "failed to generate vault key", err)
	}

	if err := os.MkdirAll(filepath.Dir(keyFile), 0700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVaultKeyMissing, "failed to create vault key directory", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded+"\n"), 0600); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVaultKeyMissing, "failed to persist vault key", err)
	}

	logger.Info("Generated new vault key", zap.String("file", keyFile))
	return key, nil
}

// Seal encrypts a plaintext credential and returns it base64-encoded
// with the nonce prepended.
func (v *Vault) Seal(plaintext string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to generate nonce", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed credential produced by Seal.
func (v *Vault) Open(sealed string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeVaultDecrypt, "sealed credential is not valid base64", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", errors.New(errors.ErrCodeVaultDecrypt, "sealed credential is too short")
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeVaultDecrypt, "failed to decrypt credential", err)
	}
	return string(plaintext), nil
}

// Mask returns the display form of a credential: everything but the last
// maskVisible characters replaced with asterisks. Short keys are fully masked.
func Mask(key string) string {
	if len(key) <= maskVisible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", maskVisible) + key[len(key)-maskVisible:]
}

// ValidateKeyFormat applies basic shape checks before a credential is stored.
func ValidateKeyFormat(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New(errors.ErrCodeValidation, "api key cannot be empty")
	}
	if strings.ContainsAny(key, " \t\n\r") {
		return errors.New(errors.ErrCodeValidation, "api key cannot contain whitespace")
	}
	if provider == "openai" && !strings.HasPrefix(key, "sk-") {
		return errors.New(errors.ErrCodeValidation, "openai api keys start with sk-")
	}
	return nil
}
