package resource

import (
	"fmt"
)

// UpstreamError is a non-2xx answer from the resource API.
type UpstreamError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// TransportError covers everything that kept a usable answer from arriving:
// network failures, timeouts and unparseable bodies.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
