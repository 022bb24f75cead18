package models

import (
	"time"

	"github.com/charlesng35/tenancy/internal/permissions"
)

// Membership links a user to an organization with exactly one role. The
// composite primary key enforces one membership per (user, organization) pair;
// deleting either side cascades to the membership.
type Membership struct {
	UserID         string           `gorm:"primaryKey;size:36" json:"user_id"`
	OrganizationID string           `gorm:"primaryKey;size:36;index" json:"organization_id"`
	Role           permissions.Role `gorm:"size:16;not null;index" json:"role"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	User         *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

// IsAdmin reports whether the membership carries the ADMIN role.
func (m *Membership) IsAdmin() bool {
	return m != nil && m.Role == permissions.RoleAdmin
}
