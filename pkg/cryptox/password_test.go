package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHasher(t *testing.T, pepper string) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher([]byte(pepper))
	require.NoError(t, err)
	return h
}

func TestHashPassword(t *testing.T) {
	h := newTestHasher(t, "pepper")

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 128)},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6)
			require.Equal(t, "m=19456,t=2,p=1", parts[3])

			require.NoError(t, h.Verify(tt.password, hash))
			require.ErrorIs(t, h.Verify(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPassword_SaltIsRandom(t *testing.T) {
	h := newTestHasher(t, "pepper")

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestVerifyPassword_PepperMatters(t *testing.T) {
	hash, err := newTestHasher(t, "pepper-one").Hash("hunter22")
	require.NoError(t, err)

	err = newTestHasher(t, "pepper-two").Verify("hunter22", hash)
	require.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	h := newTestHasher(t, "pepper")

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"wrong version", "$argon2id$v=16$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$memory$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA"},
		{"missing digest", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$"},
		{"too many parts", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA$extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, h.Verify("whatever", tt.hash), ErrInvalidHash)
		})
	}
}

func TestVerifyDummy_AlwaysMismatches(t *testing.T) {
	h := newTestHasher(t, "pepper")

	require.ErrorIs(t, h.VerifyDummy("gatehouse-dummy-password"), ErrPasswordMismatch)
	require.ErrorIs(t, h.VerifyDummy(""), ErrPasswordMismatch)
}
