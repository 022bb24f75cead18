package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenancy/internal/permissions"
	"github.com/charlesng35/tenancy/pkg/response"
)

type permissionView struct {
	ID          string                   `json:"id"`
	Resource    string                   `json:"resource"`
	Description string                   `json:"description"`
	DependsOn   []permissions.Permission `json:"depends_on,omitempty"`
}

type catalogueView struct {
	Permissions []permissionView                                `json:"permissions"`
	Roles       map[permissions.Role][]permissions.Permission `json:"roles"`
}

type PermissionHandler struct{}

func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// GET /api/permissions
func (h *PermissionHandler) Catalogue(c *gin.Context) {
	defs := permissions.Definitions()
	views := make([]permissionView, 0, len(defs))
	for _, def := range defs {
		views = append(views, permissionView{
			ID:          def.ID,
			Resource:    def.Resource,
			Description: def.Description,
			DependsOn:   def.DependsOn,
		})
	}

	roles := make(map[permissions.Role][]permissions.Permission, len(permissions.Roles()))
	for _, role := range permissions.Roles() {
		roles[role] = permissions.RolePermissions(role)
	}

	response.Success(c, http.StatusOK, catalogueView{Permissions: views, Roles: roles})
}
