package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/jsonrpc"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("request", func(t *testing.T) {
		req, err := jsonrpc.Parse([]byte(` {"jsonrpc":"2.0","id":7,"method":"ping"}`))
		require.NoError(t, err)
		require.Equal(t, "ping", req.Method)
		require.False(t, req.IsNotification())
		require.JSONEq(t, `7`, string(req.ID))
	})

	t.Run("notification", func(t *testing.T) {
		req, err := jsonrpc.Parse([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
		require.NoError(t, err)
		require.True(t, req.IsNotification())
	})

	t.Run("client response", func(t *testing.T) {
		req, err := jsonrpc.Parse([]byte(`{"jsonrpc":"2.0","id":"a","result":{}}`))
		require.NoError(t, err)
		require.True(t, req.IsResponse())
	})

	t.Run("rejects", func(t *testing.T) {
		_, err := jsonrpc.Parse([]byte(`[{"jsonrpc":"2.0","id":1,"method":"ping"}]`))
		require.ErrorIs(t, err, jsonrpc.ErrBatch)

		for _, raw := range []string{``, `{`, `{"jsonrpc":"1.0","id":1,"method":"ping"}`, `"x"`} {
			_, err := jsonrpc.Parse([]byte(raw))
			require.ErrorIs(t, err, jsonrpc.ErrInvalidFrame, raw)
		}
	})
}

func TestResponseEncoding(t *testing.T) {
	res, err := jsonrpc.NewResult(json.RawMessage(`"abc"`), map[string]any{})
	require.NoError(t, err)
	out, err := json.Marshal(res)
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","result":{},"id":"abc"}`, string(out))

	out, err = json.Marshal(jsonrpc.NewError(nil, jsonrpc.CodeParseError, "parse error"))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","error":{"code":-32700,"message":"parse error"},"id":null}`, string(out))
}
