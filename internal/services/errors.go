package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/tenancy/pkg/errors"
)

var (
	// ErrNotAMember indicates the caller has no membership in the organization they act on.
	ErrNotAMember = apperrors.NewForbidden("You are not a member of this organization")
	// ErrPermissionDenied indicates the caller's role lacks every requested permission.
	ErrPermissionDenied = apperrors.NewForbidden("You don't have permission to perform this action")
	// ErrLastAdmin blocks mutations that would leave an organization without an admin.
	ErrLastAdmin = apperrors.NewForbidden("Cannot remove the last admin from an organization")
	// ErrMemberNotFound indicates the target of a membership mutation is not a member.
	ErrMemberNotFound = apperrors.NewNotFound("User is not a member of this organization")
	// ErrMembershipNotFound is returned when callers ask for their own role without holding one.
	ErrMembershipNotFound = apperrors.NewNotFound("You are not a member of this organization")
	// ErrOrganizationNotFound indicates the requested organization does not exist.
	ErrOrganizationNotFound = apperrors.NewNotFound("Organization not found")
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.NewNotFound("User not found")
	// ErrSlugTaken indicates another organization already owns the slug.
	ErrSlugTaken = apperrors.NewConflict("Organization with this slug already exists")
	// ErrMembershipExists indicates the (user, organization) pair is already a member.
	ErrMembershipExists = apperrors.NewConflict("User is already a member of this organization")
	// ErrEmailTaken indicates another user already owns the email address.
	ErrEmailTaken = apperrors.NewConflict("User with this email already exists")
	// ErrInvalidRole rejects role values outside ADMIN and MEMBER.
	ErrInvalidRole = apperrors.NewBadRequest("Invalid role")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
// Foreign key and check violations are deliberately not matched.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		return myErr.Number == 1062
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}
