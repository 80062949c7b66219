package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "http://localhost:3000"

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func newUserService(t *testing.T, st store.Store) *service.UserService {
	t.Helper()
	hasher, err := cryptox.NewPasswordHasher([]byte("pepper"))
	require.NoError(t, err)
	return &service.UserService{Store: st, Hasher: hasher, DefaultScopes: []string{"time:read"}}
}

func ptr[T any](v T) *T { return &v }

func TestUserService_SignUpAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := newUserService(t, newStore(t))

	u, err := users.SignUp(ctx, service.SignUpInput{Email: "  Ada@Example.com ", Password: "password123", Name: ptr("Ada")})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", u.Email)
	require.Equal(t, []string{"time:read"}, u.Scopes)
	require.NotContains(t, u.PasswordHash, "password123")

	_, err = users.SignUp(ctx, service.SignUpInput{Email: "ada@example.com", Password: "password123"})
	require.ErrorIs(t, err, service.ErrUserAlreadyExists)

	got, err := users.Authenticate(ctx, "ADA@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = users.Authenticate(ctx, "ada@example.com", "wrong-password")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, "nobody@example.com", "password123")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestValidateSignUp(t *testing.T) {
	tests := []struct {
		name   string
		in     service.SignUpInput
		fields []string
	}{
		{"valid", service.SignUpInput{Email: "a@b.co", Password: "12345678"}, nil},
		{"valid with name", service.SignUpInput{Email: "a@b.co", Password: "12345678", Name: ptr("A")}, nil},
		{"missing everything", service.SignUpInput{}, []string{"email", "password"}},
		{"bad email", service.SignUpInput{Email: "not-an-email", Password: "12345678"}, []string{"email"}},
		{"display name in email", service.SignUpInput{Email: "Ada <a@b.co>", Password: "12345678"}, []string{"email"}},
		{"short password", service.SignUpInput{Email: "a@b.co", Password: "1234567"}, []string{"password"}},
		{"long password", service.SignUpInput{Email: "a@b.co", Password: string(make([]byte, 129))}, []string{"password"}},
		{"empty name", service.SignUpInput{Email: "a@b.co", Password: "12345678", Name: ptr("  ")}, []string{"name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateSignUp(tt.in)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}

			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			got := make([]string, 0, len(verr.Fields))
			for k := range verr.Fields {
				got = append(got, k)
			}
			require.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestSessionService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	users := newUserService(t, st)

	u, err := users.SignUp(ctx, service.SignUpInput{Email: "a@b.co", Password: "password123"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	sessions := &service.SessionService{Store: st, Now: func() time.Time { return now }}

	token, sess, err := sessions.Create(ctx, u.ID, service.SessionMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEqual(t, token, sess.TokenHash)
	require.True(t, sess.ExpiresAt.Equal(now.Add(service.DefaultSessionTTL)))

	t.Run("resolve without refresh", func(t *testing.T) {
		now = now.Add(time.Hour)
		got, user, refreshed, err := sessions.Resolve(ctx, token)
		require.NoError(t, err)
		require.False(t, refreshed)
		require.Equal(t, u.ID, user.ID)
		require.True(t, got.ExpiresAt.Equal(sess.ExpiresAt), "not refreshed before update age")
	})

	t.Run("resolve refreshes after update age", func(t *testing.T) {
		now = now.Add(service.DefaultSessionUpdateAge)
		got, _, refreshed, err := sessions.Resolve(ctx, token)
		require.NoError(t, err)
		require.True(t, refreshed)
		require.True(t, got.ExpiresAt.Equal(now.Add(service.DefaultSessionTTL)))
		require.True(t, got.UpdatedAt.Equal(now))
	})

	t.Run("unknown and empty tokens", func(t *testing.T) {
		_, _, _, err := sessions.Resolve(ctx, "nope")
		require.ErrorIs(t, err, service.ErrNoSession)
		_, _, _, err = sessions.Resolve(ctx, "")
		require.ErrorIs(t, err, service.ErrNoSession)
	})

	t.Run("expired", func(t *testing.T) {
		saved := now
		now = now.Add(service.DefaultSessionTTL + time.Second)
		_, _, _, err := sessions.Resolve(ctx, token)
		require.ErrorIs(t, err, service.ErrNoSession)
		now = saved
	})

	t.Run("revoke", func(t *testing.T) {
		require.NoError(t, sessions.Revoke(ctx, token))
		require.NoError(t, sessions.Revoke(ctx, token))
		_, _, _, err := sessions.Resolve(ctx, token)
		require.ErrorIs(t, err, service.ErrNoSession)
	})
}

func TestTokenService_Issue(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    testIssuer,
		Audience:  []string{testIssuer},
		NumKeys:   1,
	})
	require.NoError(t, err)

	tokens := &service.TokenService{KeyManager: km, Issuer: testIssuer, Audience: []string{testIssuer}}

	st := newStore(t)
	u, err := newUserService(t, st).SignUp(context.Background(), service.SignUpInput{Email: "a@b.co", Password: "password123"})
	require.NoError(t, err)

	raw, err := tokens.Issue(u)
	require.NoError(t, err)

	res := km.Verifier.Verify(context.Background(), raw)
	require.True(t, res.OK(), "reason=%s", res.Reason)
	require.Equal(t, u.ID, res.Claims.Subject)
	require.Equal(t, u.ID, res.Claims.UserID)
	require.Equal(t, "a@b.co", res.Claims.Email)
	require.Equal(t, []string{"time:read"}, res.Claims.Scopes)
	require.Equal(t, 15*time.Minute, res.Claims.ExpiresAt.Sub(res.Claims.IssuedAt.Time))
}

func TestHousekeeping_RotatesAndForgets(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	sealer, err := cryptox.NewSealerFromSecret([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	clock := func() time.Time { return now }

	km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
		Store:       store.NewKeyStoreAdapter(st),
		Sealer:      sealer,
		Algorithm:   jwtx.AlgorithmEdDSA,
		Issuer:      testIssuer,
		NumKeys:     1,
		GracePeriod: time.Hour,
		Now:         clock,
	})
	require.NoError(t, err)
	original := km.GetSigner().KID()

	rotation := &service.KeyRotationService{Store: st, KeyManager: km, Interval: 24 * time.Hour, Logger: slogx.Discard()}
	hk := service.NewHousekeepingService(st, km, rotation, slogx.Discard(), time.Minute)
	hk.Now = clock

	hk.RunOnce(ctx)
	require.Equal(t, original, km.GetSigner().KID(), "not due yet")

	now = now.Add(25 * time.Hour)
	hk.RunOnce(ctx)
	require.NotEqual(t, original, km.GetSigner().KID())
	require.Len(t, km.KeySet.PublicJWKS().Keys, 2, "retired key still published")

	now = now.Add(2 * time.Hour)
	hk.RunOnce(ctx)
	require.Len(t, km.KeySet.PublicJWKS().Keys, 1)

	keys, err := st.SigningKeys().ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
}

func TestKeyRotation_DisabledForEphemeral(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: testIssuer})
	require.NoError(t, err)

	rotation := &service.KeyRotationService{KeyManager: km, Interval: time.Hour, Logger: slogx.Discard()}
	require.False(t, rotation.Enabled())

	rotated, err := rotation.RotateIfDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.False(t, rotated)
}
