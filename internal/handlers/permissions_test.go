package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenancy/internal/handlers/testutil"
)

func TestPermissionHandler_Catalogue(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.Token(env.CreateUser("reader"))

	w := env.Request(http.MethodGet, "/api/permissions", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var catalogue struct {
		Permissions []struct {
			ID        string   `json:"id"`
			Resource  string   `json:"resource"`
			DependsOn []string `json:"depends_on"`
		} `json:"permissions"`
		Roles map[string][]string `json:"roles"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &catalogue)

	require.Len(t, catalogue.Permissions, 18)
	require.Equal(t, "org:view", catalogue.Permissions[0].ID)
	require.Equal(t, "organization", catalogue.Permissions[0].Resource)
	require.Equal(t, []string{"org:view"}, catalogue.Permissions[1].DependsOn)

	require.Len(t, catalogue.Roles, 2)
	require.Len(t, catalogue.Roles["ADMIN"], 18)
	require.Len(t, catalogue.Roles["MEMBER"], 7)
}
