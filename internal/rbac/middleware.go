// Package rbac guards HTTP routes by cabinet staff role.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/medcabinet/cabinet/internal/shared"
)

// RoleHeader carries the caller role set by the front office.
const RoleHeader = "X-Cabinet-Role"

// Middleware wires role authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// Identify stores the role announced in RoleHeader in the request context.
func (m Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := shared.ParseRole(r.Header.Get(RoleHeader))
		next.ServeHTTP(w, r.WithContext(shared.ContextWithRole(r.Context(), role)))
	})
}

// RequireAny ensures the current caller holds one of roles. Admin always passes.
func (m Middleware) RequireAny(roles ...shared.Role) func(http.Handler) http.Handler {
	allowed := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			role := shared.RoleFromContext(r.Context())
			if role == shared.RoleAnonymous {
				role = shared.ParseRole(r.Header.Get(RoleHeader))
			}
			if role == shared.RoleAdmin || hasRole(allowed, role) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied", slog.String("role", string(role)), slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func normalizeRoles(roles []shared.Role) map[shared.Role]struct{} {
	set := make(map[shared.Role]struct{}, len(roles))
	for _, r := range roles {
		if r = shared.ParseRole(string(r)); r != shared.RoleAnonymous {
			set[r] = struct{}{}
		}
	}
	return set
}

func hasRole(allowed map[shared.Role]struct{}, role shared.Role) bool {
	_, ok := allowed[role]
	return ok
}
