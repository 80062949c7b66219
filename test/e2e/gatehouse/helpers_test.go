//go:build e2e

package gatehouse_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	authapp "github.com/aussiebroadwan/gatehouse/internal/auth/app"
	mcpapp "github.com/aussiebroadwan/gatehouse/internal/mcp/app"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/transport"
	resourceapp "github.com/aussiebroadwan/gatehouse/internal/resource/app"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Shared fixtures for the end-to-end tests. The three services run
 * in-process on real listeners; Redis runs in a container.
 */

const (
	testSecret   = "e2e-secret-e2e-secret-e2e-secret-0123"
	testPassword = "correct horse battery"
	redisImage   = "redis:7-alpine"
)

// stack is one issuer, one resource API and one MCP proxy wired together.
type stack struct {
	AuthURL     string
	ResourceURL string
	MCPURL      string
	RedisAddr   string
}

// startServer binds a listener first so the URL is known before the
// handler is built.
func startServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewUnstartedServer(nil)
	t.Cleanup(srv.Close)
	return srv, "http://" + srv.Listener.Addr().String()
}

func startAuth(t *testing.T, mutate func(*authapp.Config)) string {
	t.Helper()
	srv, url := startServer(t)

	cfg := authapp.Config{
		Issuer:               url,
		Audience:             []string{url},
		Secret:               testSecret,
		BasePath:             authsdk.DefaultBasePath,
		TrustedOrigins:       []string{url},
		CookieName:           "gatehouse.session_token",
		DefaultScopes:        []string{"time:read"},
		AccessTokenTTL:       15 * time.Minute,
		SessionTTL:           time.Hour,
		SessionUpdateAge:     time.Hour,
		Algorithm:            "EdDSA",
		NumKeys:              1,
		KeyStorageMode:       "ephemeral",
		KeyGracePeriod:       time.Hour,
		DatabaseFile:         filepath.Join(t.TempDir(), "auth.db"),
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	app, err := authapp.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	srv.Config.Handler = app.Handler()
	srv.Start()
	return url
}

func startResource(t *testing.T, authURL string) string {
	t.Helper()
	srv, url := startServer(t)

	app, err := resourceapp.New(resourceapp.Config{
		BasePath:               "/api/v1/resource",
		JWKSURL:                authURL + "/.well-known/jwks.json",
		Issuer:                 authURL,
		Audience:               []string{authURL},
		JWKSCacheTTL:           5 * time.Minute,
		JWKSFetchTimeout:       5 * time.Second,
		JWKSMinRefreshInterval: time.Second,
		TimeScope:              "time:read",
		DiscloseScopes:         true,
		Env:                    "test",
		LogLevel:               "error",
		ShutdownGracePeriod:    time.Second,
	})
	require.NoError(t, err)

	srv.Config.Handler = app.Handler()
	srv.Start()
	return url
}

func startMCP(t *testing.T, resourceURL, redisAddr, staticJWT string) string {
	t.Helper()

	app, err := mcpapp.New(mcpapp.Config{
		ResourceBaseURL:     resourceURL + "/api/v1/resource",
		AuthJWT:             staticJWT,
		Port:                7411,
		UpstreamTimeout:     5 * time.Second,
		SessionTTL:          time.Hour,
		RedisAddr:           redisAddr,
		RedisKeyPrefix:      fmt.Sprintf("e2e:%s:", t.Name()),
		Env:                 "test",
		LogLevel:            "error",
		ShutdownGracePeriod: time.Second,
	}, io.Discard)
	require.NoError(t, err)
	require.NoError(t, app.OpenSessionStore(t.Context()))

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// startRedis runs a throwaway Redis container and returns its address.
func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return net.JoinHostPort(host, port.Port())
}

func startStack(t *testing.T, staticJWT string) stack {
	t.Helper()

	s := stack{RedisAddr: startRedis(t)}
	s.AuthURL = startAuth(t, nil)
	s.ResourceURL = startResource(t, s.AuthURL)
	s.MCPURL = startMCP(t, s.ResourceURL, s.RedisAddr, staticJWT)
	return s
}

// signUp registers a fresh user and returns its session.
func signUp(t *testing.T, authURL string) *authsdk.Session {
	t.Helper()

	client := authsdk.NewSDKClient(authURL)
	email := fmt.Sprintf("user-%d@example.com", time.Now().UnixNano())
	session, resp, err := client.SignUp(t.Context(), authsdk.SignUpRequest{
		Email:    email,
		Password: testPassword,
		Name:     "E2E User",
	})
	require.NoError(t, err)
	require.Equal(t, email, resp.User.Email)
	return session
}

// getJSON performs a GET and decodes the JSON body.
func getJSON(t *testing.T, url, bearer string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// mcpClient speaks streamable HTTP to the proxy.
type mcpClient struct {
	t         *testing.T
	url       string
	bearer    string
	sessionID string
	nextID    int
}

func newMCPClient(t *testing.T, url, bearer string) *mcpClient {
	return &mcpClient{t: t, url: url + "/mcp", bearer: bearer}
}

func (c *mcpClient) post(method string, params any, notify bool) (*http.Response, map[string]any) {
	c.t.Helper()

	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if params != nil {
		msg["params"] = params
	}
	if !notify {
		c.nextID++
		msg["id"] = c.nextID
	}
	raw, err := json.Marshal(msg)
	require.NoError(c.t, err)

	req, err := http.NewRequestWithContext(c.t.Context(), http.MethodPost, c.url, strings.NewReader(string(raw)))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.sessionID != "" {
		req.Header.Set(transport.SessionHeader, c.sessionID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var body map[string]any
	if resp.StatusCode != http.StatusAccepted {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func (c *mcpClient) initialize() {
	c.t.Helper()

	resp, body := c.post("initialize", map[string]any{
		"protocolVersion": "2025-06-18",
		"clientInfo":      map[string]string{"name": "e2e", "version": "1"},
	}, false)
	require.Equal(c.t, http.StatusOK, resp.StatusCode, body)
	c.sessionID = resp.Header.Get(transport.SessionHeader)
	require.NotEmpty(c.t, c.sessionID)

	resp, _ = c.post("notifications/initialized", nil, true)
	require.Equal(c.t, http.StatusAccepted, resp.StatusCode)
}

// callTool returns the decoded text payload and the isError flag.
func (c *mcpClient) callTool(name string) (map[string]any, bool) {
	c.t.Helper()

	resp, body := c.post("tools/call", map[string]any{"name": name}, false)
	require.Equal(c.t, http.StatusOK, resp.StatusCode, body)
	require.Nil(c.t, body["error"], "unexpected JSON-RPC error")

	result := body["result"].(map[string]any)
	content := result["content"].([]any)
	require.Len(c.t, content, 1)
	text := content[0].(map[string]any)["text"].(string)

	var payload map[string]any
	require.NoError(c.t, json.Unmarshal([]byte(text), &payload))

	isError, _ := result["isError"].(bool)
	return payload, isError
}
