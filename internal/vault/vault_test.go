package vault

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	os.Unsetenv(KeyEnvVar)
	keyFile := filepath.Join(t.TempDir(), "vault.key")
	v, err := New(keyFile)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return v
}

// TestVault_SealOpen tests the encryption round trip
func TestVault_SealOpen(t *testing.T) {
	v := newTestVault(t)

	sealed, err := v.Seal("sk-test-secret-value")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	if strings.Contains(sealed, "secret") {
		t.Error("Sealed output should not contain the plaintext")
	}

	opened, err := v.Open(sealed)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if opened != "sk-test-secret-value" {
		t.Errorf("Expected round trip, got '%s'", opened)
	}

	// Sealing the same value twice yields different ciphertexts (random nonce)
	sealed2, _ := v.Seal("sk-test-secret-value")
	if sealed == sealed2 {
		t.Error("Expected distinct ciphertexts for repeated Seal")
	}
}

// TestVault_OpenGarbage tests decrypt failure classification
func TestVault_OpenGarbage(t *testing.T) {
	v := newTestVault(t)

	tests := []struct {
		name   string
		sealed string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", base64.StdEncoding.EncodeToString([]byte("tiny"))},
		{"tampered", base64.StdEncoding.EncodeToString(make([]byte, 64))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Open(tt.sealed)
			if err == nil {
				t.Fatal("Open() should fail")
			}
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeVaultDecrypt {
				t.Errorf("Expected ErrCodeVaultDecrypt, got %v", err)
			}
		})
	}
}

// TestVault_KeyPersistence tests that a generated key file is reused
func TestVault_KeyPersistence(t *testing.T) {
	os.Unsetenv(KeyEnvVar)
	keyFile := filepath.Join(t.TempDir(), "vault.key")

	v1, err := New(keyFile)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	sealed, err := v1.Seal("persist-me")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}

	// A second vault loading the same key file can open the ciphertext
	v2, err := New(keyFile)
	if err != nil {
		t.Fatalf("New() reload failed: %v", err)
	}
	opened, err := v2.Open(sealed)
	if err != nil {
		t.Fatalf("Open() with reloaded key failed: %v", err)
	}
	if opened != "persist-me" {
		t.Errorf("Expected 'persist-me', got '%s'", opened)
	}
}

// TestVault_KeyFromEnv tests that the environment variable takes precedence
func TestVault_KeyFromEnv(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	os.Setenv(KeyEnvVar, base64.StdEncoding.EncodeToString(key))
	defer os.Unsetenv(KeyEnvVar)

	keyFile := filepath.Join(t.TempDir(), "vault.key")
	v, err := New(keyFile)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Key file is not created when the env var supplies the key
	if _, err := os.Stat(keyFile); !os.IsNotExist(err) {
		t.Error("Key file should not be written when env var is set")
	}

	sealed, _ := v.Seal("env-keyed")
	opened, err := v.Open(sealed)
	if err != nil || opened != "env-keyed" {
		t.Errorf("Round trip with env key failed: %v, '%s'", err, opened)
	}
}

// TestVault_BadEnvKey tests malformed environment keys
func TestVault_BadEnvKey(t *testing.T) {
	os.Setenv(KeyEnvVar, "definitely-not-base64-32-bytes")
	defer os.Unsetenv(KeyEnvVar)

	_, err := New(filepath.Join(t.TempDir(), "vault.key"))
	if err == nil {
		t.Fatal("New() should reject a malformed env key")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeVaultKeyMissing {
		t.Errorf("Expected ErrCodeVaultKeyMissing, got %v", err)
	}
}

// TestMask tests credential display masking
func TestMask(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"normal key", "sk-proj-abcdefAb12Cd", "******Ab12Cd"},
		{"exactly visible length", "Ab12Cd", "******"},
		{"short key", "abc", "***"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mask(tt.key); got != tt.expected {
				t.Errorf("Mask(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

// TestValidateKeyFormat tests pre-storage shape checks
func TestValidateKeyFormat(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		wantErr  bool
	}{
		{"valid openai", "openai", "sk-proj-abc123", false},
		{"openai wrong prefix", "openai", "api-abc123", true},
		{"empty", "openai", "", true},
		{"whitespace inside", "openai", "sk-abc 123", true},
		{"other provider no prefix rule", "mock", "anything-goes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyFormat(tt.provider, tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKeyFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestCredentials_StoreAndResolve tests the full credential flow
func TestCredentials_StoreAndResolve(t *testing.T) {
	s, cleanup := store.SetupTestDB(t)
	defer cleanup()

	os.Unsetenv("OPENAI_API_KEY")
	v := newTestVault(t)
	creds := NewCredentials(v, s)

	// Nothing configured yet
	_, err := creds.Resolve("openai")
	if err == nil {
		t.Fatal("Resolve() should fail with no credential")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeCredentialAbsent {
		t.Errorf("Expected ErrCodeCredentialAbsent, got %v", err)
	}

	stored, err := creds.Store("openai", "sk-proj-abcdefAb12Cd", "test key", "")
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if stored.MaskedKey != "******Ab12Cd" {
		t.Errorf("Expected masked last-6, got '%s'", stored.MaskedKey)
	}
	if stored.EncryptedKey == "sk-proj-abcdefAb12Cd" {
		t.Error("Credential must not be stored in plaintext")
	}

	resolved, err := creds.Resolve("openai")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if resolved != "sk-proj-abcdefAb12Cd" {
		t.Errorf("Expected stored key back, got '%s'", resolved)
	}

	// Environment variable wins over the stored key
	os.Setenv("OPENAI_API_KEY", "sk-env-override")
	defer os.Unsetenv("OPENAI_API_KEY")
	resolved, err = creds.Resolve("openai")
	if err != nil {
		t.Fatalf("Resolve() with env failed: %v", err)
	}
	if resolved != "sk-env-override" {
		t.Errorf("Expected env override, got '%s'", resolved)
	}
}
