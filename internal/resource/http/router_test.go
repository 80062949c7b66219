package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpapi "github.com/aussiebroadwan/gatehouse/internal/resource/http"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/metricsx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "http://localhost:3000"

type fixture struct {
	km     *jwtx.KeyManager
	keys   *jwtx.RemoteKeySet
	router *httpapi.Router
}

func newFixture(t *testing.T, cfg httpapi.RouterConfig) *fixture {
	t.Helper()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    testIssuer,
		Audience:  []string{testIssuer},
		NumKeys:   1,
	})
	require.NoError(t, err)

	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(km.KeySet.PublicJWKS())
	}))
	t.Cleanup(issuer.Close)

	keys := jwtx.NewRemoteKeySet(jwtx.RemoteKeySetOptions{URL: issuer.URL})
	verifier := jwtx.NewVerifier(keys, jwtx.VerifierOptions{Issuer: testIssuer, Audience: []string{testIssuer}})

	if cfg.BasePath == "" {
		cfg.BasePath = "/api/v1/resource"
	}
	r := httpapi.NewRouter(cfg, verifier, keys, metricsx.New("test_resource"), slogx.Discard())
	r.ApplyRoutes()

	return &fixture{km: km, keys: keys, router: r}
}

func (f *fixture) token(t *testing.T, scopes ...string) string {
	t.Helper()
	tok, err := f.km.GetSigner().Sign(jwtx.NewAccessClaims(jwtx.AccessClaimsParams{
		UserID:   "user-1",
		Email:    "ada@example.com",
		Scopes:   scopes,
		Issuer:   testIssuer,
		Audience: []string{testIssuer},
		Now:      time.Now(),
	}))
	require.NoError(t, err)
	return tok
}

func (f *fixture) get(path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestPublicAndHealth(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{TimeScope: "time:read"})

	rec := f.get("/api/v1/resource/public", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.get("/api/v1/resource/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestTime(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{TimeScope: "time:read", DiscloseScopes: true})

	t.Run("missing bearer", func(t *testing.T) {
		rec := f.get("/api/v1/resource/time", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"code":"unauthorized","message":"Missing or invalid Authorization header"}`, rec.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := f.get("/api/v1/resource/time", "not-a-jwt")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"code":"unauthorized","message":"Token verification failed","details":{"reason":"malformed"}}`, rec.Body.String())
	})

	t.Run("missing scope", func(t *testing.T) {
		rec := f.get("/api/v1/resource/time", f.token(t, "profile"))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.JSONEq(t, `{"code":"forbidden","message":"Insufficient permissions","details":{"required":"time:read","provided":["profile"]}}`, rec.Body.String())
	})

	t.Run("ok", func(t *testing.T) {
		before := time.Now().Unix()
		rec := f.get("/api/v1/resource/time", f.token(t, "time:read"))
		require.Equal(t, http.StatusOK, rec.Code)

		var body httpapi.TimeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.GreaterOrEqual(t, body.Epoch, before)
		require.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, body.ISO)

		parsed, err := time.Parse(time.RFC3339, body.ISO)
		require.NoError(t, err)
		require.Equal(t, body.Epoch, parsed.Unix())
	})
}

func TestTime_ScopeCheckDisabled(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{TimeScope: ""})

	rec := f.get("/api/v1/resource/time", f.token(t))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTime_HidesProvidedScopes(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{TimeScope: "time:read", DiscloseScopes: false})

	rec := f.get("/api/v1/resource/time", f.token(t, "profile"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"code":"forbidden","message":"Insufficient permissions","details":{"required":"time:read"}}`, rec.Body.String())
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{})

	for _, path := range []string{"/", "/api/v1/resource/nope", "/api/v1/other"} {
		rec := f.get(path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		require.JSONEq(t, `{"code":"not_found","message":"Route not found"}`, rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{})

	rec := f.get("/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, f.keys.Refresh(context.Background()))

	rec = f.get("/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDocs(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{ServerURLs: []string{"https://api.example.com"}})

	rec := f.get("/api/v1/resource/reference/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"/time"`)

	rec = f.get("/api/v1/resource/llms.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")

	body := rec.Body.String()
	require.Contains(t, body, "# Gatehouse Resource API")
	require.Contains(t, body, "- https://api.example.com/api/v1/resource")
	require.Contains(t, body, "### GET /api/v1/resource/time")
	require.Contains(t, body, "Auth: BearerAuth")
	require.Contains(t, body, "- 403: forbidden")
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, httpapi.RouterConfig{})

	f.get("/api/v1/resource/public", "")

	rec := f.get("/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `test_resource_http_requests_total{method="GET",route="GET /api/v1/resource/public",status="200"} 1`)
}
