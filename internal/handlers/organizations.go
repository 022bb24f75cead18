package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenancy/internal/middleware"
	"github.com/charlesng35/tenancy/internal/permissions"
	"github.com/charlesng35/tenancy/internal/services"
	appErrors "github.com/charlesng35/tenancy/pkg/errors"
	"github.com/charlesng35/tenancy/pkg/response"
)

type OrganizationHandler struct {
	orgs *services.OrganizationService
	gate *services.AuthorizationService
}

func NewOrganizationHandler(orgs *services.OrganizationService, gate *services.AuthorizationService) (*OrganizationHandler, error) {
	if orgs == nil || gate == nil {
		return nil, errors.New("organization handler: services are required")
	}
	return &OrganizationHandler{orgs: orgs, gate: gate}, nil
}

type createOrganizationRequest struct {
	Name        string         `json:"name" validate:"required,min=2,max=128"`
	Slug        string         `json:"slug" validate:"omitempty,slug"`
	Description string         `json:"description" validate:"omitempty,max=512"`
	Settings    map[string]any `json:"settings"`
}

type updateOrganizationRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=2,max=128"`
	Slug        *string         `json:"slug" validate:"omitempty,slug"`
	Description *string         `json:"description" validate:"omitempty,max=512"`
	Settings    *map[string]any `json:"settings"`
}

type membershipView struct {
	OrganizationID string                   `json:"organization_id"`
	Role           permissions.Role         `json:"role"`
	Permissions    []permissions.Permission `json:"permissions"`
}

// GET /api/orgs
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgs.ListForUser(requestContext(c), callerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, orgs)
}

// POST /api/orgs
func (h *OrganizationHandler) Create(c *gin.Context) {
	var body createOrganizationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	org, err := h.orgs.Create(requestContext(c), callerID(c), services.CreateOrganizationInput{
		Name:        strings.TrimSpace(body.Name),
		Slug:        body.Slug,
		Description: body.Description,
		Settings:    body.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, org)
}

// GET /api/orgs/:orgID
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.orgs.GetByID(requestContext(c), callerID(c), c.Param(middleware.OrgIDParam))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

// PATCH /api/orgs/:orgID
func (h *OrganizationHandler) Update(c *gin.Context) {
	var body updateOrganizationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if body.Name == nil && body.Slug == nil && body.Description == nil && body.Settings == nil {
		response.Error(c, appErrors.NewBadRequest("no fields provided for update"))
		return
	}

	input := services.UpdateOrganizationInput{
		Name:        body.Name,
		Slug:        body.Slug,
		Description: body.Description,
	}
	if body.Settings != nil {
		input.Settings = *body.Settings
		if input.Settings == nil {
			input.Settings = map[string]any{}
		}
	}

	org, err := h.orgs.Update(requestContext(c), callerID(c), c.Param(middleware.OrgIDParam), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

// GET /api/orgs/:orgID/me
func (h *OrganizationHandler) Me(c *gin.Context) {
	orgID := c.Param(middleware.OrgIDParam)
	role, perms, err := h.gate.GetPermissionsInOrganization(requestContext(c), callerID(c), orgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, membershipView{
		OrganizationID: orgID,
		Role:           role,
		Permissions:    perms,
	})
}

// GET /api/orgs/:orgID/audit
func (h *OrganizationHandler) AuditTrail(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	var filters services.AuditFilters
	filters.ActorID = c.Query("actor_id")
	filters.Action = c.Query("action")
	filters.Result = c.Query("result")
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filters.Since = &t
		}
	}
	if u := c.Query("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			filters.Until = &t
		}
	}

	logs, total, err := h.orgs.AuditTrail(requestContext(c), callerID(c), c.Param(middleware.OrgIDParam), services.AuditListOptions{
		Page:     page,
		PageSize: perPage,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, perPage, total))
}
