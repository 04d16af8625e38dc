package router

import (
	"net/http"
	"strings"

	"github.com/wolfman30/nagrik-sahayak/internal/http/respond"
)

const opsTokenHeader = "X-Ops-Token"
const opsTokenQuery = "ops_token"

// requireOpsToken guards operator endpoints such as /metrics.
// When expected is empty, the middleware is a no-op.
func requireOpsToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(opsTokenHeader))
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get(opsTokenQuery))
			}
			if token == "" || token != expected {
				respond.Error(w, http.StatusUnauthorized, "invalid ops token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
