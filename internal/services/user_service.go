package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/models"
	apperrors "github.com/charlesng35/tenancy/pkg/errors"
)

// CreateUserInput describes the identity fields accepted when registering a user.
type CreateUserInput struct {
	ID    string
	Name  string
	Email string
}

// UserService keeps the local copy of identities issued by the external
// identity provider. Memberships reference these rows.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditService *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:           db,
		auditService: auditService,
	}, nil
}

// Create registers a user. An explicit ID keeps the row aligned with the
// identity provider's subject; otherwise one is generated.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if name == "" {
		name = email
	}

	user := &models.User{
		Name:  name,
		Email: email,
	}
	user.ID = strings.TrimSpace(input.ID)

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken.WithInternal(err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		ActorID:  user.ID,
		Action:   "user.provision",
		Resource: user.ID,
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"email": user.Email},
	})

	return user, nil
}

// Ensure returns the user with the given ID, registering it from the identity
// claims when it is not yet known.
func (s *UserService) Ensure(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	user, err := s.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	return s.Create(ctx, input)
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user by email address, case-insensitively.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Take(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user by email: %w", err)
	}
	return &user, nil
}
