package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// SignUpInput is a new account. Name is optional; nil means absent.
type SignUpInput struct {
	Email    string
	Password string
	Name     *string
}

type UserService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher

	// DefaultScopes are granted to every new account.
	DefaultScopes []string

	Now func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// SignUp validates and creates a new account.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (domain.User, error) {
	if err := ValidateSignUp(in); err != nil {
		return domain.User{}, err
	}

	email := NormalizeEmail(in.Email)

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	var name string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Scopes:       slices.Clone(s.DefaultScopes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserAlreadyExists
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user_signed_up", slog.String("user_id", u.ID))
	return u, nil
}

// Authenticate checks email and password. Unknown emails run a dummy
// verification so both failure paths take the same time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	if err := ValidateSignIn(email, password); err != nil {
		return domain.User{}, err
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.Hasher.VerifyDummy(password)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			slogx.FromContext(ctx).Error("password_hash_invalid",
				slog.String("user_id", u.ID),
				slog.Any("error", err),
			)
		}
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}
