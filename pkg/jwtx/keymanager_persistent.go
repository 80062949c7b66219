package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
)

// DefaultGracePeriod is how long a retired key keeps verifying tokens.
const DefaultGracePeriod = 24 * time.Hour

// SigningKeyRecord is a stored signing key. The private key is sealed.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           *time.Time
}

// Active reports whether the key is still used for signing.
func (r SigningKeyRecord) Active() bool { return r.RetiredAt == nil }

// Expired reports whether the key should no longer verify tokens.
func (r SigningKeyRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// KeyStore is the storage a persistent KeyManager needs.
type KeyStore interface {
	// ListSigningKeys returns every stored key, active and retired.
	ListSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
	RetireSigningKey(ctx context.Context, kid string, retiredAt, expiresAt time.Time) error
}

// PersistentKeyManagerOptions configures a KeyManager backed by a KeyStore.
type PersistentKeyManagerOptions struct {
	Store  KeyStore
	Sealer *cryptox.Sealer

	// Algorithm for new keys. Loaded keys keep their stored algorithm.
	Algorithm string

	Issuer   string
	Audience []string

	RSABits int

	// NumKeys is the target number of active keys; missing ones are created.
	NumKeys int

	// GracePeriod is how long retired keys keep verifying.
	GracePeriod time.Duration

	Now func() time.Time
}

// NewPersistentKeyManager loads stored keys, decrypts them with the sealer and
// tops the active set up to NumKeys. Retired keys that have not expired are
// published for verification only.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, errors.New("jwtx: Store is required for persistent key manager")
	}
	if opts.Sealer == nil {
		return nil, errors.New("jwtx: Sealer is required for persistent key manager")
	}
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if err := checkAlgorithm(opts.Algorithm); err != nil {
		return nil, err
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	km := newKeyManager(opts.Algorithm, opts.RSABits, opts.Issuer, opts.Audience)
	km.store = opts.Store
	km.sealer = opts.Sealer
	km.grace = opts.GracePeriod

	records, err := opts.Store.ListSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load signing keys: %w", err)
	}

	now := opts.Now()
	for _, rec := range records {
		if rec.Expired(now) {
			continue
		}

		pemKey, err := opts.Sealer.Open(rec.PrivateKeyEncrypted)
		if err != nil {
			return nil, fmt.Errorf("jwtx: decrypt key %s: %w", rec.Kid, err)
		}
		signer, err := NewSigner(rec.Algorithm, rec.Kid, pemKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %s: %w", rec.Kid, err)
		}

		if rec.Active() {
			err = km.AddSigner(signer)
		} else {
			err = km.KeySet.AddSigner(signer)
		}
		if err != nil {
			return nil, fmt.Errorf("jwtx: add key %s: %w", rec.Kid, err)
		}
	}

	for km.NumSigners() < clampNumKeys(opts.NumKeys) {
		if _, err := km.createKey(ctx, now); err != nil {
			return nil, err
		}
	}

	return km, nil
}

// createKey generates, seals, stores and activates a new key.
func (km *KeyManager) createKey(ctx context.Context, now time.Time) (Signer, error) {
	kid, err := NewKeyID()
	if err != nil {
		return nil, err
	}

	pemKey, signer, err := km.generate(kid)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate key: %w", err)
	}

	sealed, err := km.sealer.Seal(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: seal key: %w", err)
	}

	rec := SigningKeyRecord{
		ID:                  idx.NewAt(now).String(),
		Kid:                 kid,
		Algorithm:           km.algorithm,
		PrivateKeyEncrypted: sealed,
		CreatedAt:           now,
	}
	if err := km.store.CreateSigningKey(ctx, rec); err != nil {
		return nil, fmt.Errorf("jwtx: store key: %w", err)
	}

	if err := km.AddSigner(signer); err != nil {
		return nil, err
	}
	return signer, nil
}

// Rotate activates a new key and retires the oldest active one. The retired
// key keeps verifying for the grace period. Only persistent managers rotate.
func (km *KeyManager) Rotate(ctx context.Context, now time.Time) (newKID, retiredKID string, err error) {
	if km.store == nil {
		return "", "", errors.New("jwtx: rotation needs a persistent key manager")
	}

	signer, err := km.createKey(ctx, now)
	if err != nil {
		return "", "", err
	}

	oldest := km.GetSigners()[0]
	if err := km.store.RetireSigningKey(ctx, oldest.KID(), now, now.Add(km.grace)); err != nil {
		return signer.KID(), "", fmt.Errorf("jwtx: retire key %s: %w", oldest.KID(), err)
	}
	if err := km.RetireSignerByKid(oldest.KID()); err != nil {
		return signer.KID(), "", err
	}

	return signer.KID(), oldest.KID(), nil
}

// Forget unpublishes keys whose grace period has ended.
func (km *KeyManager) Forget(kids ...string) {
	for _, kid := range kids {
		km.KeySet.Remove(kid)
	}
}

// Persistent reports whether keys are stored and can be rotated.
func (km *KeyManager) Persistent() bool {
	return km.store != nil
}
