package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
)

const (
	DefaultSessionTTL       = 7 * 24 * time.Hour
	DefaultSessionUpdateAge = 24 * time.Hour
)

// SessionService issues opaque session tokens and resolves them back to
// users. Sessions slide: reading one after UpdateAge pushes its expiry out.
type SessionService struct {
	Store     store.Store
	TTL       time.Duration
	UpdateAge time.Duration
	Now       func() time.Time
}

// SessionMeta is request metadata captured when a session is created.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}

func (s *SessionService) updateAge() time.Duration {
	if s.UpdateAge > 0 {
		return s.UpdateAge
	}
	return DefaultSessionUpdateAge
}

// Create stores a new session for userID and returns the raw token. Only its
// fingerprint is persisted.
func (s *SessionService) Create(ctx context.Context, userID string, meta SessionMeta) (string, domain.Session, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.Session{}, err
	}

	now := s.now().UTC()
	sess := domain.Session{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
		UpdatedAt: now,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}

	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return "", domain.Session{}, err
	}
	return token, sess, nil
}

// Resolve returns the live session and its user, refreshing the session when
// it is due. refreshed reports whether the expiry moved, so callers can
// re-issue the credential. Unknown, expired and empty tokens return
// ErrNoSession.
func (s *SessionService) Resolve(ctx context.Context, token string) (sess domain.Session, user domain.User, refreshed bool, err error) {
	if token == "" {
		return domain.Session{}, domain.User{}, false, ErrNoSession
	}

	now := s.now().UTC()
	hash := cryptox.FingerprintToken(token)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		sess, err = tx.Sessions().GetSessionByTokenHash(ctx, hash)
		if err != nil {
			return err
		}
		if sess.IsExpired(now) {
			return ErrNoSession
		}

		user, err = tx.Users().GetUserByID(ctx, sess.UserID)
		if err != nil {
			return err
		}

		if sess.NeedsRefresh(now, s.updateAge()) {
			sess.ExpiresAt = now.Add(s.ttl())
			sess.UpdatedAt = now
			refreshed = true
			return tx.Sessions().RefreshSession(ctx, sess.ID, sess.ExpiresAt, sess.UpdatedAt)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrNoSession) {
			return domain.Session{}, domain.User{}, false, ErrNoSession
		}
		return domain.Session{}, domain.User{}, false, err
	}

	return sess, user, refreshed, nil
}

// Revoke deletes the session behind token. Unknown tokens are not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Store.Sessions().DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
}
