// Package resource is the proxy's HTTP client for the resource API.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds one upstream call.
const DefaultTimeout = 10 * time.Second

const maxBody = 1 << 20

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for baseURL whose calls give up after timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Get calls GET {BaseURL}/{path}, attaching bearer when non-empty, and
// returns the raw JSON body. Failures are *UpstreamError or *TransportError.
func (c *Client) Get(ctx context.Context, path, bearer string) (json.RawMessage, error) {
	url := c.BaseURL + "/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, &TransportError{Err: errors.New("response is not valid JSON")}
	}
	return bytes.TrimSpace(body), nil
}

// upstreamError fills the gaps of a missing or non-JSON error body with
// defaults.
func upstreamError(status int, body []byte) *UpstreamError {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	e := &UpstreamError{StatusCode: status, Code: eb.Code, Message: eb.Message}
	if e.Code == "" {
		e.Code = "api_error"
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("API request failed with status %d", status)
	}
	return e
}
