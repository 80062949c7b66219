package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/app"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/transport"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("RESOURCE_BASE_URL", "http://localhost:3010/api/v1/resource/")

		cfg, err := app.LoadConfig()
		require.NoError(t, err)
		require.Equal(t, "http://localhost:3010/api/v1/resource", cfg.ResourceBaseURL)
		require.Equal(t, 7411, cfg.Port)
		require.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
		require.Equal(t, time.Hour, cfg.SessionTTL)
		require.Equal(t, "gatehouse:mcp:sessions:", cfg.RedisKeyPrefix)
		require.Empty(t, cfg.RedisAddr)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RESOURCE_BASE_URL", "https://api.example.com")
		t.Setenv("MCP_SERVER_PORT", "9000")
		t.Setenv("MCP_UPSTREAM_TIMEOUT", "2s")
		t.Setenv("MCP_AUTH_JWT", "jwt")

		cfg, err := app.LoadConfig()
		require.NoError(t, err)
		require.Equal(t, 9000, cfg.Port)
		require.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
		require.Equal(t, "jwt", cfg.AuthJWT)
	})

	t.Run("base url required", func(t *testing.T) {
		t.Setenv("RESOURCE_BASE_URL", "")
		t.Setenv("MCP_SERVER_PORT", "9000")
		_, err := app.LoadConfig()
		require.Error(t, err)
	})

	t.Run("base url must be absolute", func(t *testing.T) {
		t.Setenv("RESOURCE_BASE_URL", "localhost:3010")
		_, err := app.LoadConfig()
		require.ErrorContains(t, err, "RESOURCE_BASE_URL")
	})
}

func newApp(t *testing.T, upstream string) http.Handler {
	t.Helper()
	cfg := app.Config{
		ResourceBaseURL:     upstream,
		Port:                7411,
		UpstreamTimeout:     time.Second,
		SessionTTL:          time.Hour,
		Env:                 "test",
		ShutdownGracePeriod: time.Second,
	}
	a, err := app.New(cfg, io.Discard)
	require.NoError(t, err)
	require.NoError(t, a.OpenSessionStore(context.Background()))
	return a.Handler()
}

func TestHandler_ToolCallThroughProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/resource/public" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","message":"public"}`))
	}))
	t.Cleanup(upstream.Close)

	h := newApp(t, upstream.URL+"/api/v1/resource")

	post := func(body, sid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
		if sid != "" {
			req.Header.Set(transport.SessionHeader, sid)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	sid := rec.Header().Get(transport.SessionHeader)

	rec = post(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_public_status"}}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Result.IsError)
	require.JSONEq(t, `{"status":"ok","message":"public"}`, resp.Result.Content[0].Text)

	rec = post(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_time"}}`, sid)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Result.IsError)
	require.Contains(t, resp.Result.Content[0].Text, `"unauthorized"`)
}

func TestHandler_Ops(t *testing.T) {
	h := newApp(t, "http://127.0.0.1:1")

	for path, status := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusOK,
		"/metrics": http.StatusOK,
		"/nope":    http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, status, rec.Code, path)
	}
}
