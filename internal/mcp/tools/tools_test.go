package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/resource"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/tools"
	"github.com/aussiebroadwan/gatehouse/pkg/metricsx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type call struct {
	path   string
	bearer string
}

type fakeUpstream struct {
	calls []call
	body  json.RawMessage
	err   error
	panic bool
}

func (f *fakeUpstream) Get(_ context.Context, path, bearer string) (json.RawMessage, error) {
	f.calls = append(f.calls, call{path, bearer})
	if f.panic {
		panic("boom")
	}
	return f.body, f.err
}

func decodeText(t *testing.T, text string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &v))
	return v
}

func TestList(t *testing.T) {
	reg := tools.NewRegistry(&fakeUpstream{}, nil, slogx.Discard())

	list := reg.List()
	require.Len(t, list, 2)
	require.Equal(t, tools.GetPublicStatus, list[0].Name)
	require.Equal(t, tools.GetTime, list[1].Name)
	require.Contains(t, list[1].Description, "MCP_AUTH_JWT")

	raw, err := json.Marshal(list[0].InputSchema)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"object","properties":{}}`, string(raw))
}

func TestCall_UnknownTool(t *testing.T) {
	reg := tools.NewRegistry(&fakeUpstream{}, nil, slogx.Discard())
	_, err := reg.Call(context.Background(), "nope", "")
	require.ErrorIs(t, err, tools.ErrUnknownTool)
}

func TestCall_PublicStatus(t *testing.T) {
	up := &fakeUpstream{body: json.RawMessage(`{"status":"ok","message":"hi"}`)}
	reg := tools.NewRegistry(up, nil, slogx.Discard())

	res, err := reg.Call(context.Background(), tools.GetPublicStatus, "")
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	require.Equal(t, "text", res.Content[0].Type)
	require.Equal(t, "{\n  \"status\": \"ok\",\n  \"message\": \"hi\"\n}", res.Content[0].Text)
	require.Equal(t, []call{{"/public", ""}}, up.calls)

	_, err = reg.Call(context.Background(), tools.GetPublicStatus, "tok")
	require.NoError(t, err)
	require.Equal(t, "tok", up.calls[1].bearer)
}

func TestCall_TimeRequiresCredential(t *testing.T) {
	up := &fakeUpstream{body: json.RawMessage(`{"epoch":1,"iso":"x"}`)}
	reg := tools.NewRegistry(up, nil, slogx.Discard())

	res, err := reg.Call(context.Background(), tools.GetTime, "")
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Empty(t, up.calls, "no upstream call without a credential")

	body := decodeText(t, res.Content[0].Text)
	require.Equal(t, "unauthorized", body["error"])
	require.True(t, strings.HasPrefix(body["message"].(string), "This tool requires authentication"))

	res, err = reg.Call(context.Background(), tools.GetTime, "tok")
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, []call{{"/time", "tok"}}, up.calls)
}

func TestCall_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want map[string]any
	}{
		{
			name: "upstream",
			err:  &resource.UpstreamError{StatusCode: 403, Code: "forbidden", Message: "Insufficient permissions"},
			want: map[string]any{"error": "forbidden", "message": "Insufficient permissions", "statusCode": float64(403)},
		},
		{
			name: "transport",
			err:  &resource.TransportError{Err: errors.New("connection refused")},
			want: map[string]any{"error": "transport_error", "message": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := tools.NewRegistry(&fakeUpstream{err: tt.err}, nil, slogx.Discard())
			res, err := reg.Call(context.Background(), tools.GetTime, "tok")
			require.NoError(t, err)
			require.True(t, res.IsError)
			require.Equal(t, tt.want, decodeText(t, res.Content[0].Text))
		})
	}
}

func TestCall_RecoversPanic(t *testing.T) {
	m := metricsx.New("test_mcp")
	reg := tools.NewRegistry(&fakeUpstream{panic: true}, m, slogx.Discard())

	res, err := reg.Call(context.Background(), tools.GetPublicStatus, "")
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "internal_error", decodeText(t, res.Content[0].Text)["error"])

	count, err := testutil.GatherAndCount(m.Registry, "test_mcp_mcp_tool_calls_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
