// internal/middleware/auth.go
//
// Bearer-token gate for operator endpoints.
//
// The archive listing is the only route that exposes visitor data.  It is
// protected by one static token from config (http.admin_token).  An empty
// token disables the route entirely (404), so a forgotten setting never
// leaves it open.

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerToken rejects requests whose Authorization header does not carry
// token.  Comparison is constant-time.
func BearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.NotFound(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="folio"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
