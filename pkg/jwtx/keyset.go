package jwtx

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNoKey         = errors.New("jwtx: key not found")
	ErrNoUsableKeys  = errors.New("jwtx: key set has no usable keys")
	ErrDuplicatedKID = errors.New("jwtx: duplicate kid")
)

// KeyResolver finds the public key for a kid. *KeySet resolves from memory;
// *RemoteKeySet may fetch.
type KeyResolver interface {
	Key(ctx context.Context, kid string) (any, error)
}

// KeySet holds public verification keys in memory. The issuer publishes it as
// its JWKS and the remote cache keeps its own copy of the issuer's.
type KeySet struct {
	mu  sync.RWMutex
	jks JWKS
	pub map[string]any // kid: ed25519.PublicKey | *ecdsa.PublicKey | *rsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// AddSigner registers a Signer's public JWK.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK parses j and adds it to the set.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := j.PublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.pub[j.Kid]; ok {
		return ErrDuplicatedKID
	}
	k.pub[j.Kid] = key
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Remove drops a key from the set so tokens signed with it stop verifying.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.pub[kid]; !ok {
		return
	}
	delete(k.pub, kid)

	keys := make([]JWK, 0, len(k.jks.Keys))
	for _, j := range k.jks.Keys {
		if j.Kid != kid {
			keys = append(keys, j)
		}
	}
	k.jks.Keys = keys
}

// Get returns the public key for kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// Key implements KeyResolver.
func (k *KeySet) Key(_ context.Context, kid string) (any, error) {
	pk, err := k.Get(kid)
	if err != nil {
		return nil, ErrUnknownKID
	}
	return pk, nil
}

// PublicJWKS returns a snapshot of the set for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keys := make([]JWK, len(k.jks.Keys))
	copy(keys, k.jks.Keys)
	return JWKS{Keys: keys}
}

// Len reports how many keys are loaded.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub)
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	return k.Len() > 0
}

// ResetFromJWKS atomically replaces every key. Keys that cannot be parsed or
// are not meant for signatures are skipped; if nothing usable is left the
// current keys are kept and ErrNoUsableKeys is returned.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	pub := make(map[string]any, len(jwks.Keys))
	kept := make([]JWK, 0, len(jwks.Keys))

	for _, j := range jwks.Keys {
		if j.Use != "" && j.Use != "sig" {
			continue
		}
		key, err := j.PublicKey()
		if err != nil {
			continue
		}
		pub[j.Kid] = key
		kept = append(kept, j)
	}

	if len(pub) == 0 {
		return ErrNoUsableKeys
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = pub
	k.jks = JWKS{Keys: kept}
	return nil
}
