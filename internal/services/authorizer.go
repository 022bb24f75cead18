package services

import (
	"context"

	"github.com/charlesng35/tenancy/internal/permissions"
)

// Authorizer is the organization-scoped permission check consumed by the
// transport layer.
type Authorizer interface {
	Authorize(ctx context.Context, callerID, orgID string, perms ...permissions.Permission) (permissions.Role, error)
}

var _ Authorizer = (*AuthorizationService)(nil)
