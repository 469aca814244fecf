package shared

import (
	"context"
	"strings"
)

// Role identifies a cabinet staff profile.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDoctor    Role = "medecin"
	RoleSecretary Role = "secretaire"
	RoleAnonymous Role = ""
)

// ParseRole normalises a role name; unknown names map to RoleAnonymous.
func ParseRole(raw string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleDoctor, RoleSecretary:
		return r
	default:
		return RoleAnonymous
	}
}

type roleContextKey struct{}

// ContextWithRole stores the caller role in context.
func ContextWithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromContext extracts the caller role from context.
func RoleFromContext(ctx context.Context) Role {
	role, _ := ctx.Value(roleContextKey{}).(Role)
	return role
}
