package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/models"
)

// AutoMigrate runs schema migrations for all tenancy tables. Organizations and
// users are migrated before memberships so the cascade constraints resolve.
func AutoMigrate(db *gorm.DB) error {
	for _, model := range []any{
		&models.User{},
		&models.Organization{},
		&models.Membership{},
		&models.AuditLog{},
		&models.RateCounter{},
	} {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}
