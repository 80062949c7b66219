package authsdk

import (
	"context"
	"net/http"
)

// Session is a signed-in user's opaque session token. It is sent as a
// bearer credential, which the issuer accepts in place of the cookie.
type Session struct {
	client *SDKClient
	token  string
}

// Token returns the raw session token.
func (s *Session) Token() string {
	return s.token
}

// Get resolves the session and the user behind it.
func (s *Session) Get(ctx context.Context) (*GetSessionResponse, error) {
	resp, err := s.doSessionRequest(ctx, http.MethodGet, "/get-session", nil)
	if err != nil {
		return nil, err
	}

	var out GetSessionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccessToken mints a short-lived JWT for the resource API.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	resp, err := s.doSessionRequest(ctx, http.MethodGet, "/token", nil)
	if err != nil {
		return "", err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.Token, nil
}

// SignOut revokes the session. The issuer reports success even for unknown
// sessions.
func (s *Session) SignOut(ctx context.Context) error {
	resp, err := s.doSessionRequest(ctx, http.MethodPost, "/sign-out", nil)
	if err != nil {
		return err
	}

	var out SignOutResponse
	return decodeJSON(resp, &out, http.StatusOK)
}
