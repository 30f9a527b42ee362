// Package vault seals pooled code secrets at rest.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Sealer is the subset of the vault the code pool depends on.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
	Fingerprint(code string) string
}

// Config holds vault configuration
type Config struct {
	MasterKey string
	Salt      []byte
}

// Vault encrypts with AES-GCM and fingerprints with HMAC-SHA256.
// Both keys are derived from the master key with Argon2id.
type Vault struct {
	encKey []byte
	macKey []byte
}

// New derives the vault keys. The salt must be stable across restarts,
// otherwise previously sealed codes can no longer be opened.
func New(config Config) (*Vault, error) {
	if config.MasterKey == "" {
		return nil, errors.New("vault master key required")
	}
	if len(config.Salt) < 8 {
		return nil, errors.New("vault salt must be at least 8 bytes")
	}

	material := deriveKey(config.MasterKey, string(config.Salt), 64)
	return &Vault{
		encKey: material[:32],
		macKey: material[32:],
	}, nil
}

// Seal returns nonce || ciphertext.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (v *Vault) Open(sealed []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed code: %w", err)
	}
	return plaintext, nil
}

// Fingerprint is a keyed digest of the normalized code, used for the
// uniqueness constraint since ciphertexts are randomized.
func (v *Vault) Fingerprint(code string) string {
	mac := hmac.New(sha256.New, v.macKey)
	mac.Write([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func deriveKey(password, salt string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), []byte(salt), 3, 32*1024, 4, keyLen)
}
