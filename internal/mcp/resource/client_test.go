package resource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/resource"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/resource/public":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/api/v1/resource/time":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":"forbidden","message":"Insufficient permissions"}`))
		case "/api/v1/resource/bare":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		case "/api/v1/resource/garbled":
			_, _ = w.Write([]byte(`{"status":`))
		case "/api/v1/resource/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)

	c := resource.NewClient(srv.URL+"/api/v1/resource/", 50*time.Millisecond)
	ctx := context.Background()

	t.Run("success passes body through", func(t *testing.T) {
		body, err := c.Get(ctx, "public", "tok")
		require.NoError(t, err)
		require.JSONEq(t, `{"status":"ok"}`, string(body))
		require.Equal(t, "Bearer tok", gotAuth.Load())
	})

	t.Run("no bearer", func(t *testing.T) {
		_, err := c.Get(ctx, "public", "")
		require.NoError(t, err)
		require.Empty(t, gotAuth.Load())
	})

	t.Run("upstream error keeps code and message", func(t *testing.T) {
		_, err := c.Get(ctx, "time", "tok")
		var up *resource.UpstreamError
		require.ErrorAs(t, err, &up)
		require.Equal(t, &resource.UpstreamError{StatusCode: 403, Code: "forbidden", Message: "Insufficient permissions"}, up)
	})

	t.Run("upstream error without body gets defaults", func(t *testing.T) {
		_, err := c.Get(ctx, "bare", "")
		var up *resource.UpstreamError
		require.ErrorAs(t, err, &up)
		require.Equal(t, "api_error", up.Code)
		require.Equal(t, "API request failed with status 502", up.Message)
	})

	t.Run("malformed JSON is a transport error", func(t *testing.T) {
		_, err := c.Get(ctx, "garbled", "")
		var te *resource.TransportError
		require.ErrorAs(t, err, &te)
	})

	t.Run("timeout is a transport error", func(t *testing.T) {
		_, err := c.Get(ctx, "slow", "")
		var te *resource.TransportError
		require.ErrorAs(t, err, &te)
	})
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := resource.NewClient(url, time.Second).Get(context.Background(), "public", "")
	var te *resource.TransportError
	require.ErrorAs(t, err, &te)
}
