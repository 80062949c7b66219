package cli_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/gatehouse/internal/cli"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func readSecret(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, line := range strings.Split(string(raw), "\n") {
		if v, ok := strings.CutPrefix(line, "AUTH_SECRET="); ok {
			return v
		}
	}
	t.Fatalf("no AUTH_SECRET in %s", path)
	return ""
}

func TestWriteEnvFiles(t *testing.T) {
	dir := t.TempDir()

	results, err := cli.WriteEnvFiles(dir, false)
	require.NoError(t, err)
	require.Len(t, results, len(cli.EnvFiles))
	for _, r := range results {
		require.False(t, r.Skipped)
		require.FileExists(t, r.Path)
	}

	secret := readSecret(t, filepath.Join(dir, "auth.env"))
	decoded, err := base64.StdEncoding.DecodeString(secret)
	require.NoError(t, err)
	require.Len(t, decoded, cli.SecretBytes)

	mcp, err := os.ReadFile(filepath.Join(dir, "mcp.env"))
	require.NoError(t, err)
	require.Contains(t, string(mcp), "RESOURCE_BASE_URL=")

	t.Run("skips existing files", func(t *testing.T) {
		results, err := cli.WriteEnvFiles(dir, false)
		require.NoError(t, err)
		for _, r := range results {
			require.True(t, r.Skipped, r.Path)
		}
		require.Equal(t, secret, readSecret(t, filepath.Join(dir, "auth.env")))
	})

	t.Run("force overwrites with a new secret", func(t *testing.T) {
		_, err := cli.WriteEnvFiles(dir, true)
		require.NoError(t, err)
		require.NotEqual(t, secret, readSecret(t, filepath.Join(dir, "auth.env")))
	})
}

type issuerState struct {
	signedOut atomic.Bool
	notReady  atomic.Bool
}

// fakeIssuer answers the routes the token and status commands use.
func fakeIssuer(t *testing.T, state *issuerState) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{Status: "ok", Uptime: "1m0s", Version: "v-test"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if state.notReady.Load() {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{
				Status: "degraded",
				Checks: &authsdk.HealthChecks{Database: "error: locked", Signer: "ok"},
			})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status: "ok",
			Checks: &authsdk.HealthChecks{Database: "ok", Signer: "ok"},
		})
	})
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"keys":[{"kty":"OKP","crv":"Ed25519","x":"AA","kid":"k1","use":"sig","alg":"EdDSA"}]}`))
	})
	mux.HandleFunc("POST /api/auth/v1/sign-in/email", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "correct-password" {
			authsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"redirect": false, "token": "session-1", "user": map[string]any{"id": "u1"}})
	})
	mux.HandleFunc("GET /api/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer session-1" {
			authsdk.ErrNoSession.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"token": "jwt-1"})
	})
	mux.HandleFunc("POST /api/auth/v1/sign-out", func(w http.ResponseWriter, r *http.Request) {
		state.signedOut.Store(true)
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAccessToken(t *testing.T) {
	state := &issuerState{}
	srv := fakeIssuer(t, state)

	token, err := cli.FetchAccessToken(context.Background(), cli.TokenOptions{
		IssuerURL: srv.URL,
		Email:     "user@example.com",
		Password:  "correct-password",
	})
	require.NoError(t, err)
	require.Equal(t, "jwt-1", token)
	require.True(t, state.signedOut.Load())

	_, err = cli.FetchAccessToken(context.Background(), cli.TokenOptions{
		IssuerURL: srv.URL,
		Email:     "user@example.com",
		Password:  "wrong",
	})
	var apiErr *httpx.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, authsdk.ErrorCodeInvalidEmailOrPassword, apiErr.Code)

	_, err = cli.FetchAccessToken(context.Background(), cli.TokenOptions{IssuerURL: srv.URL})
	require.ErrorContains(t, err, "required")
}

func TestFetchAccessToken_IssuerNotReady(t *testing.T) {
	state := &issuerState{}
	state.notReady.Store(true)
	srv := fakeIssuer(t, state)

	_, err := cli.FetchAccessToken(context.Background(), cli.TokenOptions{
		IssuerURL: srv.URL,
		Email:     "user@example.com",
		Password:  "correct-password",
	})
	require.ErrorIs(t, err, authsdk.ErrNotReady)
	require.False(t, state.signedOut.Load())
}

func TestCheckIssuer(t *testing.T) {
	state := &issuerState{}
	srv := fakeIssuer(t, state)

	st, err := cli.CheckIssuer(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, st.Ready)
	require.Equal(t, "v-test", st.Version)
	require.Equal(t, []cli.KeySummary{{KID: "k1", Alg: "EdDSA", Kty: "OKP"}}, st.Keys)

	var out strings.Builder
	st.Write(&out)
	require.Contains(t, out.String(), "issuer ready (version v-test, up 1m0s)")
	require.Contains(t, out.String(), "k1 EdDSA OKP")

	t.Run("not ready is reported", func(t *testing.T) {
		state.notReady.Store(true)
		t.Cleanup(func() { state.notReady.Store(false) })

		st, err := cli.CheckIssuer(context.Background(), srv.URL)
		require.NoError(t, err)
		require.False(t, st.Ready)
		require.Equal(t, "error: locked", st.Checks.Database)
	})

	t.Run("unreachable issuer", func(t *testing.T) {
		_, err := cli.CheckIssuer(context.Background(), "http://127.0.0.1:1")
		require.ErrorContains(t, err, "liveness")
	})
}
