package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenancy/internal/permissions"
	"github.com/charlesng35/tenancy/internal/services"
	"github.com/charlesng35/tenancy/pkg/errors"
	"github.com/charlesng35/tenancy/pkg/response"
)

// OrgIDParam is the route parameter carrying the organization identifier.
const OrgIDParam = "orgID"

// RequireOrgPermission runs the authorization gate for the organization named
// in the route before the handler executes. The caller passes when their role
// holds any of perms; the resolved role is stored under CtxOrgRoleKey.
func RequireOrgPermission(gate services.Authorizer, perms ...permissions.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		orgID := strings.TrimSpace(c.Param(OrgIDParam))
		role, err := gate.Authorize(c.Request.Context(), userID, orgID, perms...)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxOrgRoleKey, role)
		c.Next()
	}
}

// OrgRole returns the role resolved by RequireOrgPermission.
func OrgRole(c *gin.Context) (permissions.Role, bool) {
	v, ok := c.Get(CtxOrgRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(permissions.Role)
	return role, ok
}
