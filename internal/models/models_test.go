package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenancy/internal/permissions"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)

	base2 := BaseModel{ID: "fixed"}
	require.NoError(t, base2.BeforeCreate(nil))
	require.Equal(t, "fixed", base2.ID)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"user", func() *BaseModel {
			u := &User{}
			return &u.BaseModel
		}},
		{"organization", func() *BaseModel {
			o := &Organization{}
			return &o.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			require.NoError(t, model.BeforeCreate(nil))
			require.NotEmpty(t, model.ID)
		})
	}
}

func TestAuditLogBeforeCreate(t *testing.T) {
	entry := &AuditLog{}
	require.NoError(t, entry.BeforeCreate(nil))
	require.NotEmpty(t, entry.ID)
}

func TestMembershipIsAdmin(t *testing.T) {
	var nilMembership *Membership
	require.False(t, nilMembership.IsAdmin())
	require.True(t, (&Membership{Role: permissions.RoleAdmin}).IsAdmin())
	require.False(t, (&Membership{Role: permissions.RoleMember}).IsAdmin())
}
