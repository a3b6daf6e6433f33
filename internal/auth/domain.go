// Package auth issues and verifies the bearer tokens carried by every request
// and exposes the authenticated principal to the rest of the API.
package auth

import "context"

// Role distinguishes the two kinds of authenticated users.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Principal is the tagged identity produced once at the auth boundary.
// Core services receive it explicitly and never re-derive the role.
type Principal struct {
	ID       int64
	Role     Role
	Username string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
