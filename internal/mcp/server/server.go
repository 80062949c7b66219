// Package server dispatches MCP JSON-RPC methods to the tool registry.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/jsonrpc"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/protocol"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/session"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/tools"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

const (
	Name    = "mcp-server"
	Version = "0.1.0"
)

// Tools is the registry the server dispatches to.
type Tools interface {
	List() []protocol.Tool
	Call(ctx context.Context, name, credential string) (protocol.CallToolResult, error)
}

type Server struct {
	tools            Tools
	staticCredential string
	logger           *slog.Logger
}

// New returns a server. staticCredential is used when a session carries no
// bearer of its own.
func New(t Tools, staticCredential string, logger *slog.Logger) *Server {
	return &Server{tools: t, staticCredential: staticCredential, logger: logger}
}

// Credential resolves the bearer for a session, or "" if there is none.
func (s *Server) Credential(sess *session.Session) string {
	if sess != nil && sess.Bearer != "" {
		return sess.Bearer
	}
	return s.staticCredential
}

// Handle processes one message. initialize records the negotiated version
// and client on sess. The returned response is nil for notifications and
// client responses.
func (s *Server) Handle(ctx context.Context, sess *session.Session, req *jsonrpc.Request) *jsonrpc.Response {
	if req.IsResponse() {
		return nil
	}

	result, rpcErr := s.dispatch(ctx, sess, req)
	if req.IsNotification() {
		if rpcErr != nil {
			slogx.FromContextOr(ctx, s.logger).DebugContext(ctx, "notification_failed", "method", req.Method, "err", rpcErr)
		}
		return nil
	}
	if rpcErr != nil {
		return &jsonrpc.Response{JSONRPC: jsonrpc.Version, Error: rpcErr, ID: req.ID}
	}

	resp, err := jsonrpc.NewResult(req.ID, result)
	if err != nil {
		slogx.FromContextOr(ctx, s.logger).ErrorContext(ctx, "result_marshal_failed", "method", req.Method, "err", err)
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, "internal error")
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, sess *session.Session, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return s.initialize(sess, req.Params)
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodPing:
		return struct{}{}, nil
	case protocol.MethodToolsList:
		return protocol.ListToolsResult{Tools: s.tools.List()}, nil
	case protocol.MethodToolsCall:
		return s.callTool(ctx, sess, req.Params)
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func (s *Server) initialize(sess *session.Session, params json.RawMessage) (any, *jsonrpc.Error) {
	var p protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err.Error())
		}
	}

	version := protocol.NegotiateVersion(p.ProtocolVersion)
	if sess != nil {
		sess.ProtocolVersion = version
		sess.ClientInfo = p.ClientInfo
	}

	return protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    protocol.ServerCapabilities{Tools: &protocol.ToolsCapability{}},
		ServerInfo:      protocol.Implementation{Name: Name, Version: Version},
	}, nil
}

func (s *Server) callTool(ctx context.Context, sess *session.Session, params json.RawMessage) (any, *jsonrpc.Error) {
	var p protocol.CallToolParams
	if len(params) == 0 {
		return nil, invalidParams("missing params")
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	if p.Name == "" {
		return nil, invalidParams("missing tool name")
	}

	res, err := s.tools.Call(ctx, p.Name, s.Credential(sess))
	if errors.Is(err, tools.ErrUnknownTool) {
		return nil, invalidParams("unknown tool")
	}
	if err != nil {
		slogx.FromContextOr(ctx, s.logger).ErrorContext(ctx, "tool_call_failed", "tool", p.Name, "err", err)
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "internal error"}
	}
	return res, nil
}

func invalidParams(msg string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: msg}
}
