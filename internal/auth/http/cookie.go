package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "gatehouse.session_token"

// SessionCookie writes and clears the session cookie.
type SessionCookie struct {
	Name   string
	Secure bool
}

func (c SessionCookie) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// Set stores token until expiresAt.
func (c SessionCookie) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the cookie in the browser.
func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the session token from the cookie, falling back to an
// Authorization bearer for non-browser clients.
func (c SessionCookie) Token(r *http.Request) string {
	if tok, ok := c.fromCookie(r); ok {
		return tok
	}
	if tok, ok := httpx.BearerToken(r); ok {
		return tok
	}
	return ""
}

func (c SessionCookie) fromCookie(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.name())
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

// resolve looks up the session behind the request and re-sets the cookie when
// the session was extended, so browsers follow the server-side expiry.
func (h *AccountHandler) resolve(w http.ResponseWriter, r *http.Request) (domain.Session, domain.User, error) {
	token := h.Cookie.Token(r)
	sess, u, refreshed, err := h.SessionService.Resolve(r.Context(), token)
	if err != nil {
		return sess, u, err
	}
	if refreshed {
		if _, ok := h.Cookie.fromCookie(r); ok {
			h.Cookie.Set(w, token, sess.ExpiresAt)
		}
	}
	return sess, u, nil
}
