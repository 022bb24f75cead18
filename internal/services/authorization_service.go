package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/permissions"
	apperrors "github.com/charlesng35/tenancy/pkg/errors"
	"github.com/charlesng35/tenancy/pkg/logger"
	"github.com/charlesng35/tenancy/pkg/metrics"
)

const (
	decisionAllowed   = "allowed"
	decisionNotMember = "not_member"
	decisionDenied    = "denied"
	decisionError     = "error"
)

// AuthorizationService resolves a caller's membership and checks it against
// the role permission table. Every organization-scoped operation except
// organization creation and reading one's own role goes through Authorize.
type AuthorizationService struct {
	store *MembershipStore
	log   *zap.Logger
}

// NewAuthorizationService constructs the gate over the membership store.
func NewAuthorizationService(store *MembershipStore) (*AuthorizationService, error) {
	if store == nil {
		return nil, errors.New("authorization service: membership store is required")
	}
	return &AuthorizationService{
		store: store,
		log:   logger.WithModule("authz"),
	}, nil
}

// WithTx returns a gate whose membership lookups run inside tx.
func (s *AuthorizationService) WithTx(tx *gorm.DB) *AuthorizationService {
	return &AuthorizationService{
		store: s.store.WithTx(tx),
		log:   s.log,
	}
}

// Authorize succeeds when callerID is a member of orgID and the member's role
// holds at least one of perms. The resolved role is returned for reuse.
func (s *AuthorizationService) Authorize(ctx context.Context, callerID, orgID string, perms ...permissions.Permission) (permissions.Role, error) {
	ctx = ensureContext(ctx)

	if len(perms) == 0 {
		return "", apperrors.ErrBadRequest.WithInternal(errors.New("authorization service: no permissions requested"))
	}

	membership, found, err := s.store.FindByUserAndOrg(ctx, callerID, orgID)
	if err != nil {
		metrics.AuthorizationDecisions.WithLabelValues(decisionError).Inc()
		return "", err
	}
	if !found {
		metrics.AuthorizationDecisions.WithLabelValues(decisionNotMember).Inc()
		s.log.Debug("caller is not a member",
			zap.String("user_id", strings.TrimSpace(callerID)),
			zap.String("organization_id", strings.TrimSpace(orgID)),
		)
		return "", ErrNotAMember
	}

	if !permissions.HasAny(membership.Role, perms...) {
		metrics.AuthorizationDecisions.WithLabelValues(decisionDenied).Inc()
		s.log.Debug("permission denied",
			zap.String("user_id", membership.UserID),
			zap.String("organization_id", membership.OrganizationID),
			zap.String("role", string(membership.Role)),
			zap.Strings("required", permissions.Tokens(perms)),
		)
		return "", ErrPermissionDenied
	}

	metrics.AuthorizationDecisions.WithLabelValues(decisionAllowed).Inc()
	return membership.Role, nil
}

// GetRoleInOrganization returns the caller's own role. A missing membership is
// reported as ErrMembershipNotFound rather than a denial.
func (s *AuthorizationService) GetRoleInOrganization(ctx context.Context, callerID, orgID string) (permissions.Role, error) {
	membership, found, err := s.store.FindByUserAndOrg(ensureContext(ctx), callerID, orgID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrMembershipNotFound
	}
	return membership.Role, nil
}

// GetPermissionsInOrganization returns the caller's role and the permissions it
// grants, for rendering decisions only.
func (s *AuthorizationService) GetPermissionsInOrganization(ctx context.Context, callerID, orgID string) (permissions.Role, []permissions.Permission, error) {
	role, err := s.GetRoleInOrganization(ctx, callerID, orgID)
	if err != nil {
		return "", nil, err
	}
	return role, permissions.RolePermissions(role), nil
}
