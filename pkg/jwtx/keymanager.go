package jwtx

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
)

const (
	DefaultNumKeys = 3
	MaxNumKeys     = 10
	DefaultRSABits = 4096
)

// KeyManager owns the issuer's signing keys and the public KeySet that
// verifies them. Signing picks one active key at random; retired keys stay in
// the KeySet until their grace period ends.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *Verifier

	algorithm string
	rsaBits   int

	mu      sync.RWMutex
	signers []Signer

	// persistent managers only
	store  KeyStore
	sealer *cryptox.Sealer
	grace  time.Duration
}

// KeyManagerOptions configures an ephemeral KeyManager.
type KeyManagerOptions struct {
	// Algorithm is one of EdDSA, ES256, RS256.
	Algorithm string

	Issuer   string
	Audience []string

	// RSABits for RS256. Defaults to 4096, minimum 2048.
	RSABits int

	// NumKeys is the number of active signing keys, 1 to 10. Defaults to 3.
	NumKeys int
}

// NewEphemeralKeyManager creates keys that only live in memory. Every token
// becomes unverifiable when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if err := checkAlgorithm(opts.Algorithm); err != nil {
		return nil, err
	}

	km := newKeyManager(opts.Algorithm, opts.RSABits, opts.Issuer, opts.Audience)

	for i := range clampNumKeys(opts.NumKeys) {
		kid, err := NewKeyID()
		if err != nil {
			return nil, err
		}
		_, signer, err := km.generate(kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate signer %d: %w", i+1, err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	return km, nil
}

func newKeyManager(alg string, rsaBits int, issuer string, audience []string) *KeyManager {
	if rsaBits == 0 {
		rsaBits = DefaultRSABits
	}
	keys := NewKeySet()
	return &KeyManager{
		KeySet:    keys,
		Verifier:  NewVerifier(keys, VerifierOptions{Issuer: issuer, Audience: audience}),
		algorithm: alg,
		rsaBits:   rsaBits,
	}
}

func checkAlgorithm(alg string) error {
	switch alg {
	case AlgorithmEdDSA, AlgorithmES256, AlgorithmRS256:
		return nil
	default:
		return fmt.Errorf("jwtx: unsupported algorithm %q (supported: EdDSA, ES256, RS256)", alg)
	}
}

func clampNumKeys(n int) int {
	if n <= 0 {
		return DefaultNumKeys
	}
	return min(n, MaxNumKeys)
}

// generate creates a fresh private key for the manager's algorithm.
func (km *KeyManager) generate(kid string) ([]byte, Signer, error) {
	var (
		pemKey []byte
		err    error
	)
	switch km.algorithm {
	case AlgorithmEdDSA:
		pemKey, err = cryptox.GenerateEd25519Key()
	case AlgorithmES256:
		pemKey, err = cryptox.GenerateES256Key()
	case AlgorithmRS256:
		pemKey, err = cryptox.GenerateRSAKey(km.rsaBits)
	default:
		err = checkAlgorithm(km.algorithm)
	}
	if err != nil {
		return nil, nil, err
	}

	signer, err := NewSigner(km.algorithm, kid, pemKey)
	if err != nil {
		return nil, nil, err
	}
	return pemKey, signer, nil
}

// Algorithm returns the algorithm used for new keys.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady reports whether the manager can sign and verify.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0 && km.KeySet.IsReady()
}

// GetSigner returns a random active signer, or nil if there are none.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// GetSigners returns a copy of the active signers.
func (km *KeyManager) GetSigners() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	out := make([]Signer, len(km.signers))
	copy(out, km.signers)
	return out
}

// AddSigner makes signer active and publishes its public key.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return errors.New("jwtx: signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("jwtx: add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}

// RetireSignerByKid stops signing with kid. The public key stays published so
// already-issued tokens keep verifying. The last active key cannot be retired.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) <= 1 {
		return errors.New("jwtx: cannot retire the last signing key")
	}

	kept := make([]Signer, 0, len(km.signers)-1)
	for _, s := range km.signers {
		if s.KID() != kid {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(km.signers) {
		return fmt.Errorf("jwtx: signer with kid %q not found", kid)
	}

	km.signers = kept
	return nil
}

// NewKeyID returns a random kid of the form "gatehouse-<token>".
func NewKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key ID: %w", err)
	}
	return "gatehouse-" + token, nil
}
