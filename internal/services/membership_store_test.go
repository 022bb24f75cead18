package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenancy/internal/models"
	"github.com/charlesng35/tenancy/internal/permissions"
	apperrors "github.com/charlesng35/tenancy/pkg/errors"
)

func TestMembershipStoreCreateRejectsDuplicatePair(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	founder := f.mustUser(t, "Ada")
	org := f.mustOrg(t, founder, "acme")

	_, err := f.store.Create(ctx, founder.ID, org.ID, permissions.RoleMember)
	require.ErrorIs(t, err, ErrMembershipExists)
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	role, found := f.roleOf(t, founder, org)
	require.True(t, found)
	require.Equal(t, permissions.RoleAdmin, role)
}

func TestMembershipStoreCreateRejectsInvalidRole(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.store.Create(context.Background(), "u", "o", permissions.Role("OWNER"))
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestMembershipStoreFindMissing(t *testing.T) {
	f := newServiceFixture(t)

	membership, found, err := f.store.FindByUserAndOrg(context.Background(), "nobody", "nowhere")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, membership)

	_, found, err = f.store.FindByUserAndOrg(context.Background(), "", "")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMembershipStoreListByOrgOrdersByJoinTime(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	founder := f.mustUser(t, "Ada")
	org := f.mustOrg(t, founder, "acme")
	late := f.mustUser(t, "Zed")
	early := f.mustUser(t, "Bob")

	base := time.Now().UTC().Add(time.Hour)
	require.NoError(t, f.db.Create(&models.Membership{
		UserID: late.ID, OrganizationID: org.ID, Role: permissions.RoleMember, CreatedAt: base.Add(2 * time.Minute),
	}).Error)
	require.NoError(t, f.db.Create(&models.Membership{
		UserID: early.ID, OrganizationID: org.ID, Role: permissions.RoleMember, CreatedAt: base.Add(time.Minute),
	}).Error)

	first, err := f.store.ListByOrg(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, []string{founder.ID, early.ID, late.ID}, membershipUserIDs(first))
	require.NotNil(t, first[1].User)
	require.Equal(t, "Bob", first[1].User.Name)

	second, err := f.store.ListByOrg(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, membershipUserIDs(first), membershipUserIDs(second))
}

func TestMembershipStoreListByOrgBreaksTiesByUserID(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	founder := f.mustUser(t, "Ada")
	org := f.mustOrg(t, founder, "acme")
	a := f.mustUser(t, "Bob")
	b := f.mustUser(t, "Cy")

	at := time.Now().UTC().Add(time.Hour)
	for _, u := range []*models.User{a, b} {
		require.NoError(t, f.db.Create(&models.Membership{
			UserID: u.ID, OrganizationID: org.ID, Role: permissions.RoleMember, CreatedAt: at,
		}).Error)
	}

	list, err := f.store.ListByOrg(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Less(t, list[1].UserID, list[2].UserID)
}

func TestMembershipStoreListByUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	ada := f.mustUser(t, "Ada")
	bob := f.mustUser(t, "Bob")
	first := f.mustOrg(t, ada, "first")
	second := f.mustOrg(t, bob, "second")

	require.NoError(t, f.db.Create(&models.Membership{
		UserID: ada.ID, OrganizationID: second.ID, Role: permissions.RoleMember,
		CreatedAt: time.Now().UTC().Add(time.Hour),
	}).Error)

	list, err := f.store.ListByUser(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].OrganizationID)
	require.Equal(t, second.ID, list[1].OrganizationID)
	require.NotNil(t, list[1].Organization)
	require.Equal(t, "second", list[1].Organization.Slug)
}

func TestMembershipStoreUpdateAndDeleteMissing(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.store.UpdateRole(ctx, "nobody", "nowhere", permissions.RoleAdmin)
	require.ErrorIs(t, err, ErrMemberNotFound)

	require.ErrorIs(t, f.store.Delete(ctx, "nobody", "nowhere"), ErrMemberNotFound)
}

func TestMembershipStoreCountAdmins(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	ada := f.mustUser(t, "Ada")
	bob := f.mustUser(t, "Bob")
	org := f.mustOrg(t, ada, "acme")

	count, err := f.store.CountAdmins(ctx, org.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, err = f.store.Create(ctx, bob.ID, org.ID, permissions.RoleAdmin)
	require.NoError(t, err)

	count, err = f.store.CountAdmins(ctx, org.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	locked, err := f.store.lockAdmins(ctx, org.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, locked)
}

func TestMembershipStoreOrganizationsWithoutAdmins(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	ada := f.mustUser(t, "Ada")
	healthy := f.mustOrg(t, ada, "healthy")
	broken := f.mustOrg(t, ada, "broken")
	require.NotEmpty(t, healthy.ID)

	// Bypass the guard to simulate a corrupted organization.
	require.NoError(t, f.db.Model(&models.Membership{}).
		Where("organization_id = ?", broken.ID).
		Update("role", permissions.RoleMember).Error)

	orgIDs, err := f.store.OrganizationsWithoutAdmins(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{broken.ID}, orgIDs)
}

func membershipUserIDs(memberships []models.Membership) []string {
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	return ids
}
