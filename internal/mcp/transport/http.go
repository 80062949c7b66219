// Package transport carries MCP messages over streamable HTTP and stdio.
package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/jsonrpc"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/protocol"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/server"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/session"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"github.com/elnormous/contenttype"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "Mcp-Session-Id"

const maxMessageBytes = 4 << 20

var jsonMediaType = contenttype.NewMediaType("application/json")

// HTTPHandler serves the MCP endpoint. Responses are always a single JSON
// body; there is no server-initiated stream.
type HTTPHandler struct {
	server *server.Server
	store  session.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewHTTPHandler(srv *server.Server, store session.Store, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{server: srv, store: store, logger: logger, now: time.Now}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r = r.WithContext(slogx.WithContext(ctx, slogx.FromContextOr(ctx, h.logger)))

	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *HTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slogx.FromContext(ctx)

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}
	if _, _, err := contenttype.GetAcceptableMediaType(r, []contenttype.MediaType{jsonMediaType}); err != nil {
		writeError(w, http.StatusNotAcceptable, "accept must allow application/json")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	req, err := jsonrpc.Parse(body)
	if errors.Is(err, jsonrpc.ErrBatch) {
		writeError(w, http.StatusBadRequest, "batch requests are not supported")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON-RPC message")
		return
	}

	sid := r.Header.Get(SessionHeader)
	if sid == "" {
		h.handleInitialize(w, r, req)
		return
	}

	sess, err := h.store.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "session_lookup_failed", "err", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if req.Method == protocol.MethodInitialize {
		writeError(w, http.StatusBadRequest, "session already initialized")
		return
	}
	ctx = slogx.With(ctx, "session_id", sid)
	if err := h.store.Touch(ctx, sid); err != nil && !errors.Is(err, session.ErrNotFound) {
		slogx.FromContext(ctx).WarnContext(ctx, "session_touch_failed", "err", err)
	}

	resp := h.server.Handle(ctx, sess, req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set(SessionHeader, sid)
	writeResponse(w, resp)
}

func (h *HTTPHandler) handleInitialize(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request) {
	ctx := r.Context()

	if req.Method != protocol.MethodInitialize || req.IsNotification() {
		writeError(w, http.StatusBadRequest, "missing "+SessionHeader+" header")
		return
	}

	bearer, _ := httpx.BearerToken(r)
	sess := session.New(bearer, h.now())

	resp := h.server.Handle(ctx, sess, req)
	if resp.Error == nil {
		if err := h.store.Create(ctx, sess); err != nil {
			slogx.FromContext(ctx).ErrorContext(ctx, "session_create_failed", "err", err)
			writeError(w, http.StatusInternalServerError, "session create failed")
			return
		}
		slogx.FromContext(ctx).InfoContext(ctx, "session_created",
			"session_id", sess.ID,
			"protocol_version", sess.ProtocolVersion,
			"client", sess.ClientInfo.Name,
			"authenticated", bearer != "",
		)
		w.Header().Set(SessionHeader, sess.ID)
	}
	writeResponse(w, resp)
}

func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sid := r.Header.Get(SessionHeader)
	if sid == "" {
		writeError(w, http.StatusBadRequest, "missing "+SessionHeader+" header")
		return
	}

	err := h.store.Delete(r.Context(), sid)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		slogx.FromContext(r.Context()).ErrorContext(r.Context(), "session_delete_failed", "err", err)
		writeError(w, http.StatusInternalServerError, "session delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeResponse(w http.ResponseWriter, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}
