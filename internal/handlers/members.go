package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenancy/internal/middleware"
	"github.com/charlesng35/tenancy/internal/permissions"
	"github.com/charlesng35/tenancy/internal/services"
	"github.com/charlesng35/tenancy/pkg/response"
)

// userIDParam names the route parameter carrying the target member.
const userIDParam = "userID"

type MemberHandler struct {
	members *services.MembershipService
}

func NewMemberHandler(members *services.MembershipService) (*MemberHandler, error) {
	if members == nil {
		return nil, errors.New("member handler: membership service is required")
	}
	return &MemberHandler{members: members}, nil
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required,max=36"`
	Role   string `json:"role" validate:"required,role"`
}

type updateMemberRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// GET /api/orgs/:orgID/members
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.members.List(requestContext(c), callerID(c), c.Param(middleware.OrgIDParam))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// POST /api/orgs/:orgID/members
func (h *MemberHandler) Add(c *gin.Context) {
	var body addMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := permissions.ParseRole(body.Role)
	if err != nil {
		response.Error(c, services.ErrInvalidRole)
		return
	}

	membership, err := h.members.Add(requestContext(c), callerID(c), body.UserID, c.Param(middleware.OrgIDParam), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, membership)
}

// PATCH /api/orgs/:orgID/members/:userID
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	var body updateMemberRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := permissions.ParseRole(body.Role)
	if err != nil {
		response.Error(c, services.ErrInvalidRole)
		return
	}

	membership, err := h.members.UpdateRole(requestContext(c), callerID(c), c.Param(userIDParam), c.Param(middleware.OrgIDParam), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, membership)
}

// DELETE /api/orgs/:orgID/members/:userID
func (h *MemberHandler) Remove(c *gin.Context) {
	if err := h.members.Remove(requestContext(c), callerID(c), c.Param(userIDParam), c.Param(middleware.OrgIDParam)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true})
}
