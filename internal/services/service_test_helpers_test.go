package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/database/testutil"
	"github.com/charlesng35/tenancy/internal/models"
	"github.com/charlesng35/tenancy/internal/permissions"
)

type serviceFixture struct {
	db      *gorm.DB
	audit   *AuditService
	store   *MembershipStore
	gate    *AuthorizationService
	members *MembershipService
	orgs    *OrganizationService
	users   *UserService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	store, err := NewMembershipStore(db)
	require.NoError(t, err)
	gate, err := NewAuthorizationService(store)
	require.NoError(t, err)
	members, err := NewMembershipService(db, gate, audit)
	require.NoError(t, err)
	orgs, err := NewOrganizationService(db, gate, audit)
	require.NoError(t, err)
	users, err := NewUserService(db, audit)
	require.NoError(t, err)

	return &serviceFixture{
		db:      db,
		audit:   audit,
		store:   store,
		gate:    gate,
		members: members,
		orgs:    orgs,
		users:   users,
	}
}

func (f *serviceFixture) mustUser(t *testing.T, name string) *models.User {
	t.Helper()

	user, err := f.users.Create(context.Background(), CreateUserInput{
		Name:  name,
		Email: fmt.Sprintf("%s@example.com", strings.ToLower(name)),
	})
	require.NoError(t, err)
	return user
}

func (f *serviceFixture) mustOrg(t *testing.T, founder *models.User, slug string) *models.Organization {
	t.Helper()

	org, err := f.orgs.Create(context.Background(), founder.ID, CreateOrganizationInput{
		Name: strings.ToUpper(slug[:1]) + slug[1:],
		Slug: slug,
	})
	require.NoError(t, err)
	return org
}

func (f *serviceFixture) mustAdd(t *testing.T, actor, target *models.User, org *models.Organization, role permissions.Role) {
	t.Helper()

	_, err := f.members.Add(context.Background(), actor.ID, target.ID, org.ID, role)
	require.NoError(t, err)
}

func (f *serviceFixture) roleOf(t *testing.T, user *models.User, org *models.Organization) (permissions.Role, bool) {
	t.Helper()

	membership, found, err := f.store.FindByUserAndOrg(context.Background(), user.ID, org.ID)
	require.NoError(t, err)
	if !found {
		return "", false
	}
	return membership.Role, true
}
