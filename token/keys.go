package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the shortest session secret accepted at startup.
	MinSecretLength = 16

	signingKeyLength = 32
	signingKeyInfo   = "home-logistic session signing key"
)

// SigningKey is the process-wide session signing key. It is derived once at
// startup and never changes afterwards.
type SigningKey struct {
	key []byte
}

// DeriveSigningKey stretches the configured session secret into a 256-bit
// HMAC key using HKDF-SHA256.
func DeriveSigningKey(secret string) (SigningKey, error) {
	if len(secret) < MinSecretLength {
		return SigningKey{}, fmt.Errorf("session secret must be at least %d characters", MinSecretLength)
	}

	key := make([]byte, signingKeyLength)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(signingKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return SigningKey{}, fmt.Errorf("failed to derive signing key: %w", err)
	}
	return SigningKey{key: key}, nil
}

// IsZero reports whether the key has not been derived.
func (k SigningKey) IsZero() bool {
	return len(k.key) == 0
}

func (k SigningKey) bytes() []byte {
	return k.key
}

// GenerateSecret returns a random hex encoded secret suitable for SESSION_SECRET.
func GenerateSecret() (string, error) {
	secret := make([]byte, 32) // 256 bits
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(secret), nil
}
