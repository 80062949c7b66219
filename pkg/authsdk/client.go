package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultBasePath is where the issuer mounts its account routes.
const DefaultBasePath = "/api/auth/v1"

// SDKClient is a client for the Gatehouse issuer. It covers the public
// routes and creates Sessions for the session-bound ones.
type SDKClient struct {
	// BaseURL is the issuer origin, e.g. http://localhost:3000.
	BaseURL string

	// BasePath is prepended to account routes. Defaults to DefaultBasePath.
	BasePath string

	HTTPClient *http.Client
}

// NewSDKClient creates a new issuer client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		BasePath: DefaultBasePath,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SignUp creates an account. The issuer signs the new user in, so the
// returned Session is ready to use.
func (c *SDKClient) SignUp(ctx context.Context, req SignUpRequest) (*Session, *SignUpResponse, error) {
	var out SignUpResponse
	if err := c.postJSON(ctx, c.BasePath+"/sign-up/email", req, &out); err != nil {
		return nil, nil, err
	}
	return c.NewSession(out.Token), &out, nil
}

// SignIn exchanges email and password for a session.
func (c *SDKClient) SignIn(ctx context.Context, email, password string) (*Session, *SignInResponse, error) {
	var out SignInResponse
	if err := c.postJSON(ctx, c.BasePath+"/sign-in/email", SignInRequest{Email: email, Password: password}, &out); err != nil {
		return nil, nil, err
	}
	return c.NewSession(out.Token), &out, nil
}

// NewSession wraps an existing session token.
func (c *SDKClient) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}
