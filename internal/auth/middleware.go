package auth

import (
	"context"
	"net/http"
	"strings"

	"tastymeals/internal/httpapi"
	"tastymeals/internal/models"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(models.Principal)
	return principal, ok
}

// Authenticate validates the bearer token and stores the principal in the
// request context.
func (m *TokenManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httpapi.WriteError(w, http.StatusUnauthorized, "bearer token required")
			return
		}

		principal, err := m.VerifyAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			httpapi.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route subtree to principals with the given role.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if principal.Role != role {
				httpapi.WriteError(w, http.StatusForbidden, "you are not permitted to access this endpoint")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
