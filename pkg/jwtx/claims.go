package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is how long an access token stays valid. Expiry is the
// only bound on a token's lifetime since there is no revocation list.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims are the access-token claims shared between the issuer and every
// verifier. Registered claims carry iss/aud/sub/exp; the rest is a minimal
// profile plus the scope list.
type Claims struct {
	jwt.RegisteredClaims

	// UserID mirrors sub so clients can read it without knowing JWT names.
	UserID string `json:"id,omitempty"`

	Email string `json:"email,omitempty"`

	// Scopes is the ordered scope list ("scp"). Absent means no scopes.
	Scopes []string `json:"scp,omitempty"`
}

// AccessClaimsParams describes the token being minted.
type AccessClaimsParams struct {
	UserID   string
	Email    string
	Scopes   []string
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      time.Time
}

// NewAccessClaims builds minimally-correct access token claims.
func NewAccessClaims(p AccessClaimsParams) Claims {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	now := p.Now.UTC().Truncate(time.Second)

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.UserID,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UserID: p.UserID,
		Email:  p.Email,
		Scopes: slices.Clone(p.Scopes),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope is an exact membership test. No prefix or wildcard matching.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateIssuer checks the issuer against the expected value. An empty
// expectation enforces nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks that at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateTimes requires exp and checks exp/nbf against now, allowing leeway
// for clock skew in both directions.
func (c *Claims) ValidateTimes(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrMissingExpiry
	}
	if !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
