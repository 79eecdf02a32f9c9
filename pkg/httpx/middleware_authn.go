package httpx

import (
	"net/http"
	"strings"

	"github.com/spyberpolymath/folio-auth/pkg/jwtx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// AuthnMiddleware is the token guard placed in front of every protected
// route. It extracts the bearer token, verifies signature and expiry, and
// injects the canonical caller identity into the request context.
//
// Every rejection is a generic 401; which check failed is logged, never
// returned, so the response does not help an attacker probe tokens. The
// guard never touches the store.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "no_token", "no token provided")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("token verification failed", "err", err)
				writeBearerError(w, "invalid_token", "invalid token")
				return
			}

			if err := claims.ValidateExpiry(); err != nil {
				writeBearerError(w, "invalid_token", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithIdentity(ctx, claims)))
		})
	}
}

// RFC 6750-style rejection: WWW-Authenticate header plus a JSON envelope.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
