package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasPermissionMatrix(t *testing.T) {
	memberGrants := map[Permission]bool{
		OrgView:          true,
		MemberView:       true,
		ExpenseCreate:    true,
		ExpenseViewOwn:   true,
		ExpenseUpdateOwn: true,
		ExpenseDeleteOwn: true,
		PolicyView:       true,
	}

	for _, perm := range All() {
		require.True(t, HasPermission(RoleAdmin, perm), "admin should hold %s", perm)
		require.Equal(t, memberGrants[perm], HasPermission(RoleMember, perm), "member and %s", perm)
	}
}

func TestUnknownRoleHoldsNothing(t *testing.T) {
	for _, role := range []Role{"", "OWNER", "admin", "GUEST"} {
		for _, perm := range All() {
			require.False(t, HasPermission(role, perm))
		}
		require.Empty(t, RolePermissions(role))
		require.False(t, HasAny(role, All()...))
	}
}

func TestUnknownPermissionIsNeverGranted(t *testing.T) {
	require.False(t, HasPermission(RoleAdmin, permissionInvalid))
	require.False(t, HasPermission(RoleAdmin, Permission(99)))
}

func TestAdminIsSupersetOfMember(t *testing.T) {
	for _, perm := range RolePermissions(RoleMember) {
		require.True(t, HasPermission(RoleAdmin, perm))
	}
	require.Greater(t, len(RolePermissions(RoleAdmin)), len(RolePermissions(RoleMember)))
}

func TestHasAny(t *testing.T) {
	require.True(t, HasAny(RoleMember, OrgUpdate, OrgView))
	require.False(t, HasAny(RoleMember, OrgUpdate, MemberRemove))
	require.False(t, HasAny(RoleAdmin))
}

func TestHasAll(t *testing.T) {
	require.True(t, HasAll(RoleMember, OrgView, MemberView))
	require.False(t, HasAll(RoleMember, OrgView, OrgUpdate))
	require.True(t, HasAll(RoleAdmin, All()...))
	require.True(t, HasAll(RoleMember))
}

func TestRolePermissionsOrderAndIsolation(t *testing.T) {
	perms := RolePermissions(RoleMember)
	require.Equal(t, []string{
		"org:view",
		"member:view",
		"expense:create",
		"expense:view_own",
		"expense:update_own",
		"expense:delete_own",
		"policy:view",
	}, Tokens(perms))

	perms[0] = OrgDelete
	require.False(t, HasPermission(RoleMember, OrgDelete))
	require.Equal(t, All(), RolePermissions(RoleAdmin))
}
