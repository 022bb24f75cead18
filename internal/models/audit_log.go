package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records a single organization-scoped action. Actor and organization
// identifiers are plain columns so the trail outlives the rows it describes.
type AuditLog struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ActorID        string    `gorm:"size:36;index" json:"actor_id"`
	OrganizationID string    `gorm:"size:36;index" json:"organization_id"`
	Action         string    `gorm:"not null;index" json:"action"`
	Resource       string    `gorm:"index" json:"resource"`
	Result         string    `gorm:"not null" json:"result"`
	IPAddress      string    `json:"ip_address"`
	Metadata       string    `gorm:"type:text" json:"metadata"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
