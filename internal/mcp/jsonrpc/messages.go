// Package jsonrpc holds the JSON-RPC 2.0 envelope types used by the MCP proxy.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only JSON-RPC version accepted.
const Version = "2.0"

var (
	ErrBatch        = errors.New("jsonrpc: batch requests are not supported")
	ErrInvalidFrame = errors.New("jsonrpc: invalid message")
)

// Request is a request or, when ID is absent, a notification. A message with
// no method is a client response; the proxy never sends requests, so those
// are accepted and dropped.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether no response is expected.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// IsResponse reports whether the message is a client response.
func (r *Request) IsResponse() bool {
	return r.Method == ""
}

// Response is a JSON-RPC response. A nil ID is encoded as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
}

// Parse decodes a single message. Arrays are rejected with ErrBatch.
func Parse(data []byte) (*Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidFrame)
	}
	if trimmed[0] == '[' {
		return nil, ErrBatch
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if req.JSONRPC != Version {
		return nil, fmt.Errorf("%w: jsonrpc must be %q", ErrInvalidFrame, Version)
	}
	if string(req.ID) == "null" {
		req.ID = nil
	}
	return &req, nil
}

// NewResult builds a successful response.
func NewResult(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{JSONRPC: Version, Result: raw, ID: id}, nil
}

// NewError builds an error response.
func NewError(id json.RawMessage, code ErrorCode, message string) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	}
}
