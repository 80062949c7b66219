package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// KeyRotationService rotates persistent signing keys on a schedule. A key
// is due once the newest active key is older than Interval. Ephemeral key
// managers are never rotated.
type KeyRotationService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Interval   time.Duration
	Logger     *slog.Logger
}

// Enabled reports whether scheduled rotation applies.
func (s *KeyRotationService) Enabled() bool {
	return s != nil && s.Interval > 0 && s.KeyManager != nil && s.KeyManager.Persistent()
}

// RotateIfDue rotates when the newest active key has reached Interval.
// Returns true if a rotation happened.
func (s *KeyRotationService) RotateIfDue(ctx context.Context, now time.Time) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	keys, err := s.Store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return false, fmt.Errorf("list signing keys: %w", err)
	}

	var newest time.Time
	for _, k := range keys {
		if k.IsActive() && k.CreatedAt.After(newest) {
			newest = k.CreatedAt
		}
	}
	if newest.IsZero() {
		return false, errors.New("no active signing keys")
	}
	if now.Sub(newest) < s.Interval {
		return false, nil
	}

	newKID, retiredKID, err := s.KeyManager.Rotate(ctx, now)
	if err != nil {
		return false, err
	}

	s.Logger.Info("signing_key_rotated",
		slog.String("new_kid", newKID),
		slog.String("retired_kid", retiredKID),
	)
	return true, nil
}
