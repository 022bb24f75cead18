package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/tenancy/internal/models"
	"github.com/charlesng35/tenancy/internal/permissions"
)

// MembershipStore persists (user, organization, role) rows. It holds no
// authorization logic; callers go through AuthorizationService and
// MembershipService.
type MembershipStore struct {
	db *gorm.DB
}

// NewMembershipStore constructs a MembershipStore backed by db.
func NewMembershipStore(db *gorm.DB) (*MembershipStore, error) {
	if db == nil {
		return nil, errors.New("membership store: db is required")
	}
	return &MembershipStore{db: db}, nil
}

// WithTx returns a store bound to the supplied transaction.
func (s *MembershipStore) WithTx(tx *gorm.DB) *MembershipStore {
	return &MembershipStore{db: tx}
}

// Create inserts a membership. A duplicate pair yields ErrMembershipExists.
func (s *MembershipStore) Create(ctx context.Context, userID, orgID string, role permissions.Role) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	membership := &models.Membership{
		UserID:         strings.TrimSpace(userID),
		OrganizationID: strings.TrimSpace(orgID),
		Role:           role,
	}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrMembershipExists.WithInternal(err)
		}
		return nil, fmt.Errorf("membership store: create membership: %w", err)
	}
	return membership, nil
}

// FindByUserAndOrg loads the membership for the pair. The boolean is false when
// no row exists.
func (s *MembershipStore) FindByUserAndOrg(ctx context.Context, userID, orgID string) (*models.Membership, bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	orgID = strings.TrimSpace(orgID)
	if userID == "" || orgID == "" {
		return nil, false, nil
	}

	var membership models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Take(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("membership store: find membership: %w", err)
	}
	return &membership, true, nil
}

// ListByOrg returns the organization's members in join order with user details.
func (s *MembershipStore) ListByOrg(ctx context.Context, orgID string) ([]models.Membership, error) {
	ctx = ensureContext(ctx)

	var memberships []models.Membership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", strings.TrimSpace(orgID)).
		Order("created_at ASC").
		Order("user_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("membership store: list by organization: %w", err)
	}
	return memberships, nil
}

// ListByUser returns the user's memberships in join order with organization details.
func (s *MembershipStore) ListByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	ctx = ensureContext(ctx)

	var memberships []models.Membership
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at ASC").
		Order("organization_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("membership store: list by user: %w", err)
	}
	return memberships, nil
}

// UpdateRole sets the role of an existing membership and returns the stored row.
func (s *MembershipStore) UpdateRole(ctx context.Context, userID, orgID string, role permissions.Role) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	result := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Update("role", role)
	if result.Error != nil {
		return nil, fmt.Errorf("membership store: update role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrMemberNotFound
	}

	membership, found, err := s.FindByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMemberNotFound
	}
	return membership, nil
}

// Delete removes the membership for the pair.
func (s *MembershipStore) Delete(ctx context.Context, userID, orgID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Delete(&models.Membership{})
	if result.Error != nil {
		return fmt.Errorf("membership store: delete membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// CountAdmins returns the number of ADMIN memberships in the organization.
func (s *MembershipStore) CountAdmins(ctx context.Context, orgID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("organization_id = ? AND role = ?", orgID, permissions.RoleAdmin).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("membership store: count admins: %w", err)
	}
	return count, nil
}

// lockAdmins counts ADMIN memberships while holding row locks on them, so a
// concurrent demotion in the same organization waits for this transaction.
// Aggregates cannot be locked on PostgreSQL, so the rows are selected instead.
// SQLite ignores the locking clause and relies on its single writer.
func (s *MembershipStore) lockAdmins(ctx context.Context, orgID string) (int64, error) {
	ctx = ensureContext(ctx)

	var userIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND role = ?", orgID, permissions.RoleAdmin).
		Pluck("user_id", &userIDs).Error; err != nil {
		return 0, fmt.Errorf("membership store: lock admins: %w", err)
	}
	return int64(len(userIDs)), nil
}

// OrganizationsWithoutAdmins lists organizations that have members but no
// ADMIN. A healthy database always returns an empty slice.
func (s *MembershipStore) OrganizationsWithoutAdmins(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)

	var orgIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Select("organization_id").
		Group("organization_id").
		Having("SUM(CASE WHEN role = ? THEN 1 ELSE 0 END) = 0", permissions.RoleAdmin).
		Order("organization_id ASC").
		Pluck("organization_id", &orgIDs).Error; err != nil {
		return nil, fmt.Errorf("membership store: find organizations without admins: %w", err)
	}
	return orgIDs, nil
}
