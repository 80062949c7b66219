package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// TokenVerifier is satisfied by *jwtx.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) jwtx.Result
}

var errMissingBearer = Unauthorized("Missing or invalid Authorization header")

// Authenticate requires a valid bearer access token. On success the claims
// are available through ClaimsFromContext.
func Authenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				errMissingBearer.WriteError(w)
				return
			}

			res := v.Verify(ctx, raw)
			if !res.OK() {
				log.Warn("jwt_verify_failed", "reason", res.Reason, "error", res.Err)
				Unauthorized("Token verification failed").
					WithDetails(map[string]any{"reason": res.Reason}).
					WriteError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(ctx, res.Claims)))
		})
	}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return raw, raw != ""
}
