package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Derivation labels for keys that hang off the server secret. Changing one
// invalidates everything derived from it.
const (
	InfoPasswordPepper = "gatehouse/password-pepper/v1"
	InfoKeyEncryption  = "gatehouse/signing-key-encryption/v1"
)

// MinSecretLength is the shortest server secret accepted outside dev.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("cryptox: secret too short")

// DeriveKey expands secret into size bytes of key material bound to info
// using HKDF-SHA256.
func DeriveKey(secret []byte, info string, size int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrWeakSecret
	}

	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("cryptox: derive %s: %w", info, err)
	}
	return out, nil
}

// GenerateSecret returns size random bytes, standard base64 encoded. This is
// the format written into generated .env files.
func GenerateSecret(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: secret size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
