package middleware

import (
	"net/http"
	"strings"

	"github.com/newthinker/stockwatch/internal/identity"
)

// DefaultPrincipalHeader carries the authenticated e-mail set by the
// upstream auth proxy.
const DefaultPrincipalHeader = "X-User-Email"

// Principal copies the authenticated e-mail from header into the request
// context. Requests without the header pass through anonymous.
func Principal(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultPrincipalHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if email := strings.TrimSpace(r.Header.Get(header)); email != "" {
				r = r.WithContext(identity.WithPrincipal(r.Context(), email))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so the first listed is outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
