package security

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenancy/internal/app"
	iauth "github.com/charlesng35/tenancy/internal/auth"
	testutil "github.com/charlesng35/tenancy/internal/database/testutil"
	"github.com/charlesng35/tenancy/internal/models"
	"github.com/charlesng35/tenancy/internal/permissions"
	"github.com/charlesng35/tenancy/internal/services"
)

func findCheck(t *testing.T, result Result, id string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %s not found", id)
	return Check{}
}

func TestAuditorRun(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := services.NewMembershipStore(db)
	require.NoError(t, err)

	secret := strings.Repeat("s", 48)
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: secret, Issuer: "idp", Audience: "tenancy"})
	require.NoError(t, err)

	cfg := &app.Config{
		Auth:  app.AuthConfig{JWT: app.JWTSettings{Secret: secret, Issuer: "idp", Audience: "tenancy", TTL: time.Hour}},
		Audit: app.AuditConfig{RetentionDays: 90},
	}

	auditor := NewAuditor(store, jwtSvc, cfg)
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	auditor.WithClock(func() time.Time { return fixed })

	result := auditor.Run(context.Background())
	require.Equal(t, fixed, result.CheckedAt)
	require.Len(t, result.Checks, 4)
	require.Equal(t, 4, result.Summary[string(StatusPass)])
}

func TestAuditorDetectsOrganizationWithoutAdmin(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := services.NewMembershipStore(db)
	require.NoError(t, err)

	user := &models.User{Name: "member", Email: "member@example.com"}
	org := &models.Organization{Name: "Orphan", Slug: "orphan"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(org).Error)
	require.NoError(t, db.Create(&models.Membership{UserID: user.ID, OrganizationID: org.ID, Role: permissions.RoleMember}).Error)

	result := NewAuditor(store, nil, nil).Run(context.Background())

	check := findCheck(t, result, "organization_admins")
	require.Equal(t, StatusFail, check.Status)
	require.Equal(t, map[string]any{"organization_ids": []string{org.ID}}, check.Details)
}

func TestAuditorDegradesWithoutDependencies(t *testing.T) {
	result := NewAuditor(nil, nil, nil).Run(context.Background())
	require.Equal(t, 4, result.Summary[string(StatusWarn)])
}

func TestAuditorJWTSecretStrength(t *testing.T) {
	cases := map[int]CheckStatus{
		16: StatusFail,
		40: StatusWarn,
		64: StatusPass,
	}
	for length, want := range cases {
		jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: strings.Repeat("k", length)})
		require.NoError(t, err)

		check := findCheck(t, NewAuditor(nil, jwtSvc, nil).Run(context.Background()), "jwt_secret_strength")
		require.Equal(t, want, check.Status, "length %d", length)
	}
}

func TestAuditorConfigChecks(t *testing.T) {
	cfg := &app.Config{Audit: app.AuditConfig{RetentionDays: 7}}
	result := NewAuditor(nil, nil, cfg).Run(context.Background())

	scope := findCheck(t, result, "jwt_token_scope")
	require.Equal(t, StatusWarn, scope.Status)
	require.Equal(t, "Tokens are accepted without checking issuer or audience.", scope.Message)

	retention := findCheck(t, result, "audit_retention")
	require.Equal(t, StatusWarn, retention.Status)

	cfg.Audit.RetentionDays = 0
	retention = findCheck(t, NewAuditor(nil, nil, cfg).Run(context.Background()), "audit_retention")
	require.Equal(t, StatusWarn, retention.Status)
	require.Contains(t, retention.Message, "disabled")
}
