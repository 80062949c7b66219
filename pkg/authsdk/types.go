package authsdk

import (
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// ============================================================================
// Account Types
// ============================================================================

// SignUpRequest is the body of POST {base}/sign-up/email.
type SignUpRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"correct horse battery"`
	Name     string `json:"name,omitempty" example:"Ada"`
}

// SignInRequest is the body of POST {base}/sign-in/email.
type SignInRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"correct horse battery"`
}

// User is the public view of an account.
type User struct {
	ID            string    `json:"id" example:"01J9Z3K6Q8W5H2B7N4C1XVYTRM"`
	Email         string    `json:"email" example:"user@example.com"`
	Name          string    `json:"name" example:"Ada"`
	EmailVerified bool      `json:"emailVerified"`
	Scopes        []string  `json:"scopes" example:"time:read"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SessionInfo is the public view of a session. The session token itself is
// only returned at sign-up and sign-in.
type SessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// SignUpResponse is returned by sign-up. The user is signed in immediately.
type SignUpResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SignInResponse is returned by sign-in.
type SignInResponse struct {
	Redirect bool   `json:"redirect"`
	Token    string `json:"token"`
	User     User   `json:"user"`
}

// GetSessionResponse is returned by get-session.
type GetSessionResponse struct {
	Session *SessionInfo `json:"session"`
	User    *User        `json:"user"`
}

// SignOutResponse is returned by sign-out.
type SignOutResponse struct {
	Success bool `json:"success"`
}

// TokenResponse carries a freshly minted access token.
type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJFZERTQSIsImtpZCI6Ii4uLiJ9..."`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the public keys used to verify access tokens.
type JWKSResponse jwtx.JWKS
