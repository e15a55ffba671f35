package auth

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// DerivedKeyLength is the length of derived keys in bytes (HMAC-SHA256)
	DerivedKeyLength = 32

	purposeCredential = "eventhub-credential-jwt-v1"
)

var ErrInvalidMasterSecret = errors.New("master secret cannot be empty")

// DeriveKey derives a 32-byte key from masterSecret with HKDF-SHA256 (RFC 5869).
// Distinct purpose strings give independent keys.
func DeriveKey(masterSecret []byte, purpose string) ([]byte, error) {
	if len(masterSecret) == 0 {
		return nil, ErrInvalidMasterSecret
	}

	r := hkdf.New(sha256.New, masterSecret, nil, []byte(purpose))

	derivedKey := make([]byte, DerivedKeyLength)
	if _, err := io.ReadFull(r, derivedKey); err != nil {
		return nil, err
	}
	return derivedKey, nil
}

// DeriveCredentialKey derives the key a development backend signs credentials
// with when it is configured from a master secret rather than a raw key.
func DeriveCredentialKey(masterSecret []byte) ([]byte, error) {
	return DeriveKey(masterSecret, purposeCredential)
}
