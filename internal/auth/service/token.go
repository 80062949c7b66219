package service

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// ErrNoSigner is returned when the key manager has no active key.
var ErrNoSigner = errors.New("no active signing key")

// TokenService mints short-lived access tokens for signed-in users.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	Now        func() time.Time
}

// Issue signs an access token for u with one of the active keys.
func (s *TokenService) Issue(u domain.User) (string, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	signer := s.KeyManager.GetSigner()
	if signer == nil {
		return "", ErrNoSigner
	}

	claims := jwtx.NewAccessClaims(jwtx.AccessClaimsParams{
		UserID:   u.ID,
		Email:    u.Email,
		Scopes:   u.Scopes,
		Issuer:   s.Issuer,
		Audience: s.Audience,
		TTL:      s.AccessTTL,
		Now:      now,
	})
	return signer.Sign(claims)
}
