package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// Error codes written by the issuer.
const (
	ErrorCodeBadRequest             = "bad_request"
	ErrorCodeUnauthorized           = "unauthorized"
	ErrorCodeUserAlreadyExists      = "user_already_exists"
	ErrorCodeInvalidEmailOrPassword = "invalid_email_or_password"
	ErrorCodeInternal               = "internal_error"
	ErrorCodeNotFound               = "not_found"
	ErrorCodeRateLimitExceeded      = "rate_limit_exceeded"
)

// ============================================================================
// Predefined Issuer Errors
// ============================================================================

var (
	// ErrInvalidBody is returned when the request body is not valid JSON.
	ErrInvalidBody = httpx.BadRequest("Invalid request body")

	// ErrUserAlreadyExists is returned by sign-up for a taken email.
	ErrUserAlreadyExists = httpx.Conflict(ErrorCodeUserAlreadyExists, "User already exists. Use another email.")

	// ErrInvalidCredentials is returned by sign-in for an unknown email or a
	// wrong password. Both cases look the same on purpose.
	ErrInvalidCredentials = &httpx.APIError{
		Status:  http.StatusUnauthorized,
		Code:    ErrorCodeInvalidEmailOrPassword,
		Message: "Invalid email or password",
	}

	// ErrNoSession is returned when a session credential is missing or expired.
	ErrNoSession = httpx.Unauthorized("No valid session")

	// ErrServerError is the generic 500.
	ErrServerError = httpx.Internal("Internal Server Error")
)

// FieldErrors is the details payload of a validation failure.
type FieldErrors map[string]string

// NewValidationError builds a 400 with details.fields.
func NewValidationError(fields FieldErrors) *httpx.APIError {
	return httpx.BadRequest("Validation failed").WithDetails(map[string]any{"fields": fields})
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *httpx.APIError. Bodies
// that are not in the {code, message} shape get a code derived from the status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr httpx.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.Status = resp.StatusCode
		return &apiErr
	}

	// get-session answers 401 {user:null, session:null}.
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrNoSession.WithMessage(ErrNoSession.Message) // copy, callers may mutate
	}

	return &httpx.APIError{
		Status:  resp.StatusCode,
		Code:    fallbackCode(resp.StatusCode),
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

func fallbackCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrorCodeBadRequest
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusTooManyRequests:
		return ErrorCodeRateLimitExceeded
	default:
		return ErrorCodeInternal
	}
}
