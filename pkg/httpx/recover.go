package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// Recover turns handler panics into a 500 internal_error. The panic value is
// only echoed to the client when exposeMessage is set (dev).
func Recover(exposeMessage bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				slogx.FromContext(r.Context()).Error("panic_recovered",
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()),
				)

				msg := "Internal Server Error"
				if exposeMessage {
					msg = fmt.Sprint(rec)
				}
				Internal(msg).WriteError(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
