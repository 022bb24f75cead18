package permissions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryTokensRoundTrip(t *testing.T) {
	for _, perm := range All() {
		parsed, err := Parse(perm.String())
		require.NoError(t, err)
		require.Equal(t, perm, parsed)
	}
	require.Len(t, All(), 18)
}

func TestParseRejectsUnknownTokens(t *testing.T) {
	for _, token := range []string{"", "org.view", "org:admin", "ORG:VIEW", "expense:approve"} {
		_, err := Parse(token)
		require.ErrorIs(t, err, ErrUnknownPermission, token)
	}
}

func TestInvalidPermissionValues(t *testing.T) {
	require.False(t, permissionInvalid.Valid())
	require.False(t, permissionSentinel.Valid())
	require.False(t, Permission(200).Valid())

	_, ok := Get(Permission(200))
	require.False(t, ok)

	_, err := Permission(200).MarshalText()
	require.ErrorIs(t, err, ErrUnknownPermission)
}

func TestPermissionJSONUsesTokens(t *testing.T) {
	encoded, err := json.Marshal([]Permission{OrgView, MemberUpdateRole})
	require.NoError(t, err)
	require.JSONEq(t, `["org:view","member:update_role"]`, string(encoded))

	var decoded []Permission
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, []Permission{OrgView, MemberUpdateRole}, decoded)

	require.Error(t, json.Unmarshal([]byte(`["org:nope"]`), &decoded))
}

func TestByResource(t *testing.T) {
	require.Equal(t, []Permission{OrgView, OrgUpdate, OrgDelete}, ByResource("organization"))
	require.Equal(t, []Permission{MemberView, MemberInvite, MemberUpdateRole, MemberRemove}, ByResource("member"))
	require.Len(t, ByResource("expense"), 7)
	require.Len(t, ByResource("policy"), 4)
	require.Empty(t, ByResource("billing"))
}

func TestGetReturnsCopies(t *testing.T) {
	def, ok := Get(MemberRemove)
	require.True(t, ok)
	require.Equal(t, "member:remove", def.ID)
	require.Equal(t, []Permission{MemberView}, def.DependsOn)

	def.DependsOn[0] = OrgDelete
	again, _ := Get(MemberRemove)
	require.Equal(t, []Permission{MemberView}, again.DependsOn)
}

func TestValidateRegistry(t *testing.T) {
	require.NoError(t, validateRegistry())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" admin ")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, role)

	role, err = ParseRole("MEMBER")
	require.NoError(t, err)
	require.Equal(t, RoleMember, role)

	_, err = ParseRole("OWNER")
	require.Error(t, err)
	require.False(t, Role("").Valid())
}
