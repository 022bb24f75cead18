package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenancy/internal/models"
)

func TestAutoMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	require.True(t, migrator.HasIndex(&models.Organization{}, "idx_organizations_slug"))
	require.True(t, migrator.HasIndex(&models.User{}, "idx_users_email"))
	require.True(t, migrator.HasColumn(&models.Membership{}, "role"))
	require.True(t, migrator.HasTable(&models.RateCounter{}))
}
