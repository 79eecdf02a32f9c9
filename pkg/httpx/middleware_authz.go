package httpx

import (
	"net/http"

	"github.com/spyberpolymath/folio-auth/pkg/jwtx"
)

// RequireAdmin allows the request through only when the authenticated caller
// carries the admin role. Must sit behind AuthnMiddleware.
func RequireAdmin() Middleware {
	return RequireRole(jwtx.RoleAdmin)
}

// RequireRole enforces an exact role match on the caller identity.
// Authenticated-but-insufficient is a 403, distinct from the guard's 401s.
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if roleFromCtx(r.Context()) != role {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "forbidden",
					"error_description": "admin access required",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
