package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/models"
	"github.com/charlesng35/tenancy/internal/permissions"
	"github.com/charlesng35/tenancy/pkg/logger"
	"github.com/charlesng35/tenancy/pkg/metrics"
)

// Guarded transactions run serializable so the admin count read and the write
// it permits commit as one unit.
var guardTxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// MembershipService mutates memberships on behalf of an actor. Role updates and
// removals never leave an organization without an ADMIN.
type MembershipService struct {
	db           *gorm.DB
	store        *MembershipStore
	gate         *AuthorizationService
	auditService *AuditService
	log          *zap.Logger
}

// NewMembershipService constructs the mutation guard.
func NewMembershipService(db *gorm.DB, gate *AuthorizationService, auditService *AuditService) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	if gate == nil {
		return nil, errors.New("membership service: authorization service is required")
	}
	store, err := NewMembershipStore(db)
	if err != nil {
		return nil, err
	}
	return &MembershipService{
		db:           db,
		store:        store,
		gate:         gate,
		auditService: auditService,
		log:          logger.WithModule("membership"),
	}, nil
}

// List returns the organization's members in join order. Requires member:view.
func (s *MembershipService) List(ctx context.Context, actorID, orgID string) ([]models.Membership, error) {
	ctx = ensureContext(ctx)

	if _, err := s.gate.Authorize(ctx, actorID, orgID, permissions.MemberView); err != nil {
		return nil, err
	}
	return s.store.ListByOrg(ctx, orgID)
}

// ListForUser returns the user's own memberships in join order.
func (s *MembershipService) ListForUser(ctx context.Context, userID string) ([]models.Membership, error) {
	return s.store.ListByUser(ensureContext(ctx), userID)
}

// Add makes targetUserID a member of orgID with role. Requires member:invite.
func (s *MembershipService) Add(ctx context.Context, actorID, targetUserID, orgID string, role permissions.Role) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	targetUserID = strings.TrimSpace(targetUserID)

	var created *models.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.gate.WithTx(tx).Authorize(ctx, actorID, orgID, permissions.MemberInvite); err != nil {
			return err
		}

		var user models.User
		if err := tx.Select("id").Take(&user, "id = ?", targetUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("membership service: load user: %w", err)
		}

		store := s.store.WithTx(tx)
		if _, found, err := store.FindByUserAndOrg(ctx, targetUserID, orgID); err != nil {
			return err
		} else if found {
			return ErrMembershipExists
		}

		membership, err := store.Create(ctx, targetUserID, orgID, role)
		if err != nil {
			return err
		}
		created = membership
		return nil
	})
	s.observe("add", err)
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:        actorID,
		OrganizationID: orgID,
		Action:         "member.add",
		Resource:       targetUserID,
		Result:         AuditResultSuccess,
		Metadata:       map[string]any{"role": string(role)},
	})

	return created, nil
}

// UpdateRole changes the target's role. Requires member:update_role. Demoting
// the only ADMIN fails with ErrLastAdmin, including self-demotion. Setting the
// role the target already holds is a no-op.
func (s *MembershipService) UpdateRole(ctx context.Context, actorID, targetUserID, orgID string, newRole permissions.Role) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	if !newRole.Valid() {
		return nil, ErrInvalidRole
	}

	var (
		updated  *models.Membership
		previous permissions.Role
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.gate.WithTx(tx).Authorize(ctx, actorID, orgID, permissions.MemberUpdateRole); err != nil {
			return err
		}

		store := s.store.WithTx(tx)
		target, err := s.loadTarget(ctx, store, targetUserID, orgID)
		if err != nil {
			return err
		}
		previous = target.Role

		if target.Role == newRole {
			updated = target
			return nil
		}

		if target.IsAdmin() && newRole != permissions.RoleAdmin {
			if err := s.ensureNotLastAdmin(ctx, store, orgID); err != nil {
				return err
			}
		}

		updated, err = store.UpdateRole(ctx, target.UserID, orgID, newRole)
		return err
	}, guardTxOptions)
	s.observe("update_role", err)
	if err != nil {
		s.auditDenied(ctx, "member.update_role", actorID, targetUserID, orgID, err)
		return nil, err
	}

	if previous != newRole {
		recordAudit(s.auditService, ctx, AuditEntry{
			ActorID:        actorID,
			OrganizationID: orgID,
			Action:         "member.update_role",
			Resource:       updated.UserID,
			Result:         AuditResultSuccess,
			Metadata: map[string]any{
				"from": string(previous),
				"to":   string(newRole),
			},
		})
	}

	return updated, nil
}

// Remove deletes the target's membership. Requires member:remove. Removing the
// only ADMIN fails with ErrLastAdmin.
func (s *MembershipService) Remove(ctx context.Context, actorID, targetUserID, orgID string) error {
	ctx = ensureContext(ctx)

	var removedRole permissions.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.gate.WithTx(tx).Authorize(ctx, actorID, orgID, permissions.MemberRemove); err != nil {
			return err
		}

		store := s.store.WithTx(tx)
		target, err := s.loadTarget(ctx, store, targetUserID, orgID)
		if err != nil {
			return err
		}

		if target.IsAdmin() {
			if err := s.ensureNotLastAdmin(ctx, store, orgID); err != nil {
				return err
			}
		}

		removedRole = target.Role
		return store.Delete(ctx, target.UserID, orgID)
	}, guardTxOptions)
	s.observe("remove", err)
	if err != nil {
		s.auditDenied(ctx, "member.remove", actorID, targetUserID, orgID, err)
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:        actorID,
		OrganizationID: orgID,
		Action:         "member.remove",
		Resource:       strings.TrimSpace(targetUserID),
		Result:         AuditResultSuccess,
		Metadata:       map[string]any{"role": string(removedRole)},
	})

	return nil
}

func (s *MembershipService) loadTarget(ctx context.Context, store *MembershipStore, targetUserID, orgID string) (*models.Membership, error) {
	target, found, err := store.FindByUserAndOrg(ctx, targetUserID, orgID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMemberNotFound
	}
	return target, nil
}

func (s *MembershipService) ensureNotLastAdmin(ctx context.Context, store *MembershipStore, orgID string) error {
	admins, err := store.lockAdmins(ctx, orgID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *MembershipService) observe(operation string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrLastAdmin):
		result = "last_admin"
	case errors.Is(err, ErrNotAMember), errors.Is(err, ErrPermissionDenied):
		result = "denied"
	default:
		result = "error"
	}
	metrics.MembershipMutations.WithLabelValues(operation, result).Inc()
}

// auditDenied records last-admin rejections, which operators need to see.
func (s *MembershipService) auditDenied(ctx context.Context, action, actorID, targetUserID, orgID string, err error) {
	if !errors.Is(err, ErrLastAdmin) {
		return
	}
	s.log.Info("blocked last admin mutation",
		zap.String("action", action),
		zap.String("actor_id", actorID),
		zap.String("target_user_id", targetUserID),
		zap.String("organization_id", orgID),
	)
	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:        actorID,
		OrganizationID: orgID,
		Action:         action,
		Resource:       strings.TrimSpace(targetUserID),
		Result:         AuditResultDenied,
		Metadata:       map[string]any{"reason": "last_admin"},
	})
}
