package auth

import (
	"net/http"
	"strings"

	"github.com/comptoir/comptoir/internal/platform/httpx"
)

// Middleware attaches the authenticated principal to the request context.
type Middleware struct {
	tokens *TokenIssuer
}

// NewMiddleware builds the auth middleware.
func NewMiddleware(tokens *TokenIssuer) *Middleware {
	return &Middleware{tokens: tokens}
}

// Authenticate parses the bearer token and rejects requests without one.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		principal, err := m.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin rejects requests whose principal is not an admin.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.requireRole(RoleAdmin, next)
}

// RequireClient rejects requests whose principal is not a client.
func (m *Middleware) RequireClient(next http.Handler) http.Handler {
	return m.requireRole(RoleClient, next)
}

func (m *Middleware) requireRole(role Role, next http.Handler) http.Handler {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || principal.Role != role {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
