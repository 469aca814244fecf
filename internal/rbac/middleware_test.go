package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medcabinet/cabinet/internal/shared"
)

func guarded(roles ...shared.Role) http.Handler {
	m := Middleware{}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	return m.Identify(m.RequireAny(roles...)(ok))
}

func status(h http.Handler, role string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	if role != "" {
		req.Header.Set(RoleHeader, role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	h := guarded(shared.RoleSecretary)
	require.Equal(t, http.StatusNoContent, status(h, "secretaire"))
	require.Equal(t, http.StatusNoContent, status(h, " Secretaire "))
	require.Equal(t, http.StatusNoContent, status(h, "admin"))
	require.Equal(t, http.StatusForbidden, status(h, "medecin"))
	require.Equal(t, http.StatusForbidden, status(h, ""))
	require.Equal(t, http.StatusForbidden, status(h, "root"))
}

func TestRequireAnyWithoutRolesIsOpen(t *testing.T) {
	require.Equal(t, http.StatusNoContent, status(guarded(), ""))
}

func TestIdentifyStoresRole(t *testing.T) {
	var got shared.Role
	h := Middleware{}.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.RoleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RoleHeader, "MEDECIN")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, shared.RoleDoctor, got)
}
