package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// Vault encrypts and decrypts stored upstream credentials with AES-256-GCM.
// Each Encrypt call uses a fresh random nonce prepended to the ciphertext,
// so every stored value is self-describing.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// NewFromEnv creates a Vault from the base64-encoded VAULT_KEY env variable.
func NewFromEnv() (*Vault, error) {
	raw := os.Getenv("VAULT_KEY")
	if raw == "" {
		return nil, fmt.Errorf("VAULT_KEY environment variable is not set")
	}

	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("VAULT_KEY is not valid base64: %w", err)
	}

	return New(key)
}

// Encrypt encrypts a plaintext credential and returns a base64 string.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts a value produced by Encrypt. It never returns an error:
// malformed or tampered input yields nil, and callers must treat nil as
// "credential unusable" and route the user through re-authorization.
func (v *Vault) Decrypt(ciphertext string) *string {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil
	}

	ns := v.aead.NonceSize()
	if len(raw) < ns {
		return nil
	}

	plain, err := v.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil
	}

	out := string(plain)
	return &out
}
