package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenancy/internal/permissions"
	"github.com/charlesng35/tenancy/internal/services"
	"github.com/charlesng35/tenancy/pkg/response"
)

type stubGate struct {
	roles map[string]permissions.Role
	calls [][]permissions.Permission
}

func (g *stubGate) Authorize(_ context.Context, callerID, orgID string, perms ...permissions.Permission) (permissions.Role, error) {
	g.calls = append(g.calls, perms)
	role, ok := g.roles[callerID+"@"+orgID]
	if !ok {
		return "", services.ErrNotAMember
	}
	if !permissions.HasAny(role, perms...) {
		return "", services.ErrPermissionDenied
	}
	return role, nil
}

func newOrgRouter(gate services.Authorizer, userID string, perms ...permissions.Permission) *gin.Engine {
	r := gin.New()
	r.GET("/orgs/:orgID", func(c *gin.Context) {
		if userID != "" {
			c.Set(CtxUserIDKey, userID)
		}
		c.Next()
	}, RequireOrgPermission(gate, perms...), func(c *gin.Context) {
		role, _ := OrgRole(c)
		response.Success(c, http.StatusOK, gin.H{"role": role})
	})
	return r
}

func TestRequireOrgPermissionWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gate := &stubGate{}
	r := newOrgRouter(gate, "", permissions.OrgView)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/o1", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, gate.calls)
}

func TestRequireOrgPermissionOutcomes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gate := &stubGate{roles: map[string]permissions.Role{
		"admin@o1":  permissions.RoleAdmin,
		"member@o1": permissions.RoleMember,
	}}

	cases := []struct {
		name    string
		userID  string
		perm    permissions.Permission
		status  int
		code    string
		message string
	}{
		{"admin allowed", "admin", permissions.OrgUpdate, http.StatusOK, "", ""},
		{"member denied", "member", permissions.OrgUpdate, http.StatusForbidden, "FORBIDDEN", "You don't have permission to perform this action"},
		{"stranger", "stranger", permissions.OrgView, http.StatusForbidden, "FORBIDDEN", "You are not a member of this organization"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newOrgRouter(gate, tc.userID, tc.perm)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/o1", nil))

			require.Equal(t, tc.status, w.Code)

			var payload response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
			if tc.code == "" {
				require.True(t, payload.Success)
				require.Equal(t, "ADMIN", payload.Data.(map[string]any)["role"])
				return
			}
			require.False(t, payload.Success)
			require.Equal(t, tc.code, payload.Error.Code)
			require.Equal(t, tc.message, payload.Error.Message)
		})
	}
}

func TestRequireOrgPermissionPassesEveryPermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gate := &stubGate{roles: map[string]permissions.Role{"member@o1": permissions.RoleMember}}
	r := newOrgRouter(gate, "member", permissions.ExpenseViewAll, permissions.ExpenseViewOwn)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/o1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, [][]permissions.Permission{{permissions.ExpenseViewAll, permissions.ExpenseViewOwn}}, gate.calls)
}
