package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/models"
	"github.com/charlesng35/tenancy/internal/permissions"
	apperrors "github.com/charlesng35/tenancy/pkg/errors"
	"github.com/charlesng35/tenancy/pkg/validator"
)

// CreateOrganizationInput captures the attributes required to register an organization.
// An empty slug is derived from the name.
type CreateOrganizationInput struct {
	Name        string
	Slug        string
	Description string
	Settings    map[string]any
}

// UpdateOrganizationInput represents mutable organization fields.
type UpdateOrganizationInput struct {
	Name        *string
	Slug        *string
	Description *string
	Settings    map[string]any
}

// OrganizationService manages lifecycle operations for organizations.
type OrganizationService struct {
	db           *gorm.DB
	store        *MembershipStore
	gate         *AuthorizationService
	auditService *AuditService
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB, gate *AuthorizationService, auditService *AuditService) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	if gate == nil {
		return nil, errors.New("organization service: authorization service is required")
	}
	store, err := NewMembershipStore(db)
	if err != nil {
		return nil, err
	}
	return &OrganizationService{
		db:           db,
		store:        store,
		gate:         gate,
		auditService: auditService,
	}, nil
}

// Create registers an organization with founderID as its first ADMIN. The
// organization row and the founder membership commit together or not at all.
func (s *OrganizationService) Create(ctx context.Context, founderID string, input CreateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("organization name is required")
	}

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		slug = slugify(name)
	}
	if !validator.IsSlug(slug) {
		return nil, apperrors.NewBadRequest("slug must be 3-64 lowercase letters, digits or hyphens")
	}

	org := &models.Organization{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
	}
	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: marshal settings: %w", err)
		}
		org.Settings = datatypes.JSON(data)
	}

	founderID = strings.TrimSpace(founderID)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var founder models.User
		if err := tx.Select("id").Take(&founder, "id = ?", founderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("organization service: load founder: %w", err)
		}

		if err := tx.Create(org).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrSlugTaken.WithInternal(err)
			}
			return fmt.Errorf("organization service: create organization: %w", err)
		}

		_, err := s.store.WithTx(tx).Create(ctx, founderID, org.ID, permissions.RoleAdmin)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:        founderID,
		OrganizationID: org.ID,
		Action:         "org.create",
		Resource:       org.ID,
		Result:         AuditResultSuccess,
		Metadata: map[string]any{
			"name": name,
			"slug": slug,
		},
	})

	return org, nil
}

// GetByID loads an organization. Requires org:view.
func (s *OrganizationService) GetByID(ctx context.Context, actorID, orgID string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	if _, err := s.gate.Authorize(ctx, actorID, orgID, permissions.OrgView); err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, orgID)
}

// ListForUser returns the organizations userID belongs to, in join order.
func (s *OrganizationService) ListForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	ctx = ensureContext(ctx)

	var orgs []models.Organization
	if err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.organization_id = organizations.id").
		Where("memberships.user_id = ?", strings.TrimSpace(userID)).
		Order("memberships.created_at ASC").
		Order("organizations.id ASC").
		Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("organization service: list organizations: %w", err)
	}
	return orgs, nil
}

// Update modifies organization metadata. Requires org:update.
func (s *OrganizationService) Update(ctx context.Context, actorID, orgID string, input UpdateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("organization name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*input.Slug))
		if !validator.IsSlug(slug) {
			return nil, apperrors.NewBadRequest("slug must be 3-64 lowercase letters, digits or hyphens")
		}
		updates["slug"] = slug
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: marshal settings: %w", err)
		}
		updates["settings"] = datatypes.JSON(data)
	}

	var org *models.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.gate.WithTx(tx).Authorize(ctx, actorID, orgID, permissions.OrgUpdate); err != nil {
			return err
		}

		current, err := s.load(ctx, tx, orgID)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			org = current
			return nil
		}

		if err := tx.Model(current).Updates(updates).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrSlugTaken.WithInternal(err)
			}
			return fmt.Errorf("organization service: update organization: %w", err)
		}

		org, err = s.load(ctx, tx, orgID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		changed := make([]string, 0, len(updates))
		for field := range updates {
			changed = append(changed, field)
		}
		recordAudit(s.auditService, ctx, AuditEntry{
			ActorID:        actorID,
			OrganizationID: org.ID,
			Action:         "org.update",
			Resource:       org.ID,
			Result:         AuditResultSuccess,
			Metadata:       map[string]any{"fields": changed},
		})
	}

	return org, nil
}

// AuditTrail returns the organization's audit log, newest first. Requires org:update.
func (s *OrganizationService) AuditTrail(ctx context.Context, actorID, orgID string, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	if s.auditService == nil {
		return nil, 0, errors.New("organization service: audit service is not configured")
	}
	if _, err := s.gate.Authorize(ctx, actorID, orgID, permissions.OrgUpdate); err != nil {
		return nil, 0, err
	}
	opts.Filters.OrganizationID = strings.TrimSpace(orgID)
	return s.auditService.List(ctx, opts)
}

func (s *OrganizationService) load(ctx context.Context, db *gorm.DB, orgID string) (*models.Organization, error) {
	var org models.Organization
	err := db.WithContext(ctx).Take(&org, "id = ?", strings.TrimSpace(orgID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: load organization: %w", err)
	}
	return &org, nil
}
