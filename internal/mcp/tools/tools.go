// Package tools exposes resource API endpoints as MCP tools.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/protocol"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/resource"
	"github.com/aussiebroadwan/gatehouse/pkg/metricsx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

const (
	GetPublicStatus = "get_public_status"
	GetTime         = "get_time"
)

var ErrUnknownTool = errors.New("unknown tool")

// Upstream is the part of the resource client the tools need.
type Upstream interface {
	Get(ctx context.Context, path, bearer string) (json.RawMessage, error)
}

// Tool binds a descriptor to an upstream GET.
type Tool struct {
	Descriptor   protocol.Tool
	Path         string
	RequiresAuth bool
}

type Registry struct {
	upstream Upstream
	metrics  *metricsx.Metrics
	logger   *slog.Logger

	tools  []Tool
	byName map[string]Tool
}

// NewRegistry returns the registry with the built-in tools. metrics may be nil.
func NewRegistry(upstream Upstream, metrics *metricsx.Metrics, logger *slog.Logger) *Registry {
	r := &Registry{
		upstream: upstream,
		metrics:  metrics,
		logger:   logger,
		byName:   make(map[string]Tool),
	}

	r.add(Tool{
		Descriptor: protocol.Tool{
			Name:        GetPublicStatus,
			Description: "Get the public status from the resource server (no authentication required)",
			InputSchema: reflectInputSchema[NoArgs](),
		},
		Path: "/public",
	})
	r.add(Tool{
		Descriptor: protocol.Tool{
			Name:        GetTime,
			Description: "Get the current server time (requires JWT authentication, passed via client request or MCP_AUTH_JWT environment variable)",
			InputSchema: reflectInputSchema[NoArgs](),
		},
		Path:         "/time",
		RequiresAuth: true,
	})
	return r
}

func (r *Registry) add(t Tool) {
	r.tools = append(r.tools, t)
	r.byName[t.Descriptor.Name] = t
}

// List returns the descriptors in registration order.
func (r *Registry) List() []protocol.Tool {
	out := make([]protocol.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor)
	}
	return out
}

// Call runs the named tool with credential (possibly empty). Failures of the
// tool itself come back as an error result, only an unknown name is an error.
func (r *Registry) Call(ctx context.Context, name, credential string) (res protocol.CallToolResult, err error) {
	t, ok := r.byName[name]
	if !ok {
		return protocol.CallToolResult{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	defer func() {
		if p := recover(); p != nil {
			slogx.FromContextOr(ctx, r.logger).ErrorContext(ctx, "tool_panic", "tool", name, "panic", p)
			res = errorResult(map[string]any{"error": "internal_error", "message": "Tool failed unexpectedly"})
		}
		if r.metrics != nil {
			r.metrics.ObserveToolCall(name, !res.IsError)
		}
	}()

	if t.RequiresAuth && credential == "" {
		return errorResult(map[string]any{
			"error":   "unauthorized",
			"message": "This tool requires authentication. Provide a bearer token when connecting or set MCP_AUTH_JWT.",
		}), nil
	}

	body, err := r.upstream.Get(ctx, t.Path, credential)
	if err != nil {
		slogx.FromContextOr(ctx, r.logger).WarnContext(ctx, "tool_upstream_failed", "tool", name, "err", err)
		return failureResult(err), nil
	}
	return successResult(body), nil
}

func successResult(body json.RawMessage) protocol.CallToolResult {
	return protocol.TextResult(indent(body), false)
}

func failureResult(err error) protocol.CallToolResult {
	var upErr *resource.UpstreamError
	if errors.As(err, &upErr) {
		return errorResult(map[string]any{
			"error":      upErr.Code,
			"message":    upErr.Message,
			"statusCode": upErr.StatusCode,
		})
	}

	msg := err.Error()
	var tErr *resource.TransportError
	if errors.As(err, &tErr) {
		msg = tErr.Err.Error()
	}
	return errorResult(map[string]any{"error": "transport_error", "message": msg})
}

func errorResult(v map[string]any) protocol.CallToolResult {
	raw, _ := json.MarshalIndent(v, "", "  ")
	return protocol.TextResult(string(raw), true)
}

func indent(body json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
