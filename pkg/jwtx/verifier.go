package jwtx

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrAlgMismatch   = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID    = errors.New("jwtx: unknown kid")
	ErrInvalidSig    = errors.New("jwtx: invalid signature")
	ErrIssuer        = errors.New("jwtx: issuer mismatch")
	ErrAudience      = errors.New("jwtx: audience mismatch")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrNotYetValid   = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim  = errors.New("jwtx: invalid claims")
	ErrMissingExpiry = errors.New("jwtx: missing exp claim")
	ErrKeyFetch      = errors.New("jwtx: key fetch failed")
)

// Reason is a stable, machine-readable verification failure code. It is safe
// to show to clients.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonMalformed         Reason = "malformed"
	ReasonUnknownKID        Reason = "unknown_kid"
	ReasonInvalidSignature  Reason = "invalid_signature"
	ReasonAlgorithmMismatch Reason = "algorithm_mismatch"
	ReasonIssuerMismatch    Reason = "issuer_mismatch"
	ReasonAudienceMismatch  Reason = "audience_mismatch"
	ReasonExpired           Reason = "expired"
	ReasonNotYetValid       Reason = "not_yet_valid"
	ReasonKeyFetchFailed    Reason = "key_fetch_failed"
	ReasonInvalidClaims     Reason = "invalid_claims"
)

// Result is the outcome of one verification. Exactly one of Claims or Reason
// is set.
type Result struct {
	Claims *Claims
	Reason Reason
	Err    error
}

// OK reports whether the token verified.
func (r Result) OK() bool { return r.Claims != nil && r.Reason == ReasonNone }

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	Issuer   string
	Audience []string

	// Algorithms allowed in the token header. Defaults to EdDSA, ES256, RS256.
	Algorithms []string

	// Leeway tolerated on exp and nbf.
	Leeway time.Duration

	Now func() time.Time
}

// Verifier checks signed access tokens against a KeyResolver and the expected
// issuer and audience.
type Verifier struct {
	keys   KeyResolver
	opts   VerifierOptions
	parser *jwt.Parser
}

// NewVerifier creates a Verifier.
func NewVerifier(keys KeyResolver, opts VerifierOptions) *Verifier {
	if len(opts.Algorithms) == 0 {
		opts.Algorithms = []string{AlgorithmEdDSA, AlgorithmES256, AlgorithmRS256}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Verifier{
		keys: keys,
		opts: opts,
		// Claims are validated below so every failure maps to one Reason.
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
}

// Verify parses and validates raw. It never panics on hostile input; every
// failure comes back as a Reason.
func (v *Verifier) Verify(ctx context.Context, raw string) Result {
	claims := &Claims{}

	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		alg, _ := t.Header["alg"].(string)
		if !slices.Contains(v.opts.Algorithms, alg) {
			return nil, fmt.Errorf("%w: %q not allowed", ErrAlgMismatch, alg)
		}

		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKID
		}

		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}
		if !keyMatchesAlg(key, alg) {
			return nil, fmt.Errorf("%w: key %q cannot verify %s", ErrAlgMismatch, kid, alg)
		}
		return key, nil
	})
	if err != nil {
		return fail(classify(err), err)
	}

	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return fail(ReasonIssuerMismatch, err)
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return fail(ReasonAudienceMismatch, err)
	}
	if err := claims.ValidateTimes(v.opts.Now(), v.opts.Leeway); err != nil {
		switch {
		case errors.Is(err, ErrExpired):
			return fail(ReasonExpired, err)
		case errors.Is(err, ErrNotYetValid):
			return fail(ReasonNotYetValid, err)
		default:
			return fail(ReasonInvalidClaims, err)
		}
	}
	if claims.Subject == "" {
		return fail(ReasonInvalidClaims, fmt.Errorf("%w: missing sub", ErrInvalidClaim))
	}

	return Result{Claims: claims}
}

func fail(r Reason, err error) Result {
	return Result{Reason: r, Err: err}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, ErrKeyFetch):
		return ReasonKeyFetchFailed
	case errors.Is(err, ErrUnknownKID):
		return ReasonUnknownKID
	case errors.Is(err, ErrAlgMismatch):
		return ReasonAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonInvalidSignature
	default:
		return ReasonMalformed
	}
}

func keyMatchesAlg(key any, alg string) bool {
	switch key.(type) {
	case ed25519.PublicKey:
		return alg == AlgorithmEdDSA
	case *ecdsa.PublicKey:
		return alg == AlgorithmES256
	case *rsa.PublicKey:
		return alg == AlgorithmRS256
	default:
		return false
	}
}
