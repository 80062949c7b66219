package httpx

import (
	"net/http"
	"slices"
)

// ScopeOptions tunes the 403 body.
type ScopeOptions struct {
	// DiscloseProvided includes the caller's scopes in the error details.
	DiscloseProvided bool
}

// RequireScope lets the request through only if the verified claims carry
// exactly the required scope. It must run after Authenticate.
func RequireScope(required string, opts ScopeOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := scopesFromCtx(r.Context())
			if slices.Contains(have, required) {
				next.ServeHTTP(w, r)
				return
			}

			details := map[string]any{"required": required}
			if opts.DiscloseProvided {
				if have == nil {
					have = []string{}
				}
				details["provided"] = have
			}
			Forbidden("Insufficient permissions").WithDetails(details).WriteError(w)
		})
	}
}
