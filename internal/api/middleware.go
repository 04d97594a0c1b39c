// Package api implements the promptbox REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// eventsPath is the SSE route. Browsers' EventSource cannot send headers,
// so it alone may carry the token as ?token=.
const eventsPath = "/events"

// AuthMiddleware returns middleware that validates a Bearer token.
// With enabled false every request passes.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			if subtle.ConstantTimeCompare([]byte(requestToken(r)), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="promptbox"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) string {
	if auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return auth
	}
	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, eventsPath) {
		return r.URL.Query().Get("token")
	}
	return ""
}
