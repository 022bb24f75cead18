package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenancy/internal/app"
	iauth "github.com/charlesng35/tenancy/internal/auth"
	testutil "github.com/charlesng35/tenancy/internal/database/testutil"
)

func newTestRouter(t *testing.T, cfg *app.Config) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", Issuer: "test", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, cfg, nil, nil)
	require.NoError(t, err)
	return router, jwtSvc
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router, jwtSvc := newTestRouter(t, &app.Config{})

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "").Code)

	for _, path := range []string{"/api/orgs", "/api/permissions", "/api/orgs/any/members"} {
		w := serve(router, http.MethodGet, path, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "3f1c2b9e-0000-4000-8000-000000000001", Email: "router@example.com"})
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/orgs", token).Code)
	require.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/orgs/unknown-org", token).Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/does-not-exist", "").Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	cfg := &app.Config{Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true}}}
	router, _ := newTestRouter(t, cfg)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "").Code)

	w := serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "tenancy_api_latency_seconds"))
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router, _ := newTestRouter(t, &app.Config{})
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics", "").Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := &app.Config{RateLimit: app.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}}
	router, jwtSvc := newTestRouter(t, cfg)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "3f1c2b9e-0000-4000-8000-000000000002", Email: "limited@example.com"})
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/permissions", token).Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/permissions", token).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/api/permissions", token).Code)
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "s"})
	require.NoError(t, err)

	_, err = NewRouter(nil, jwtSvc, &app.Config{}, nil, nil)
	require.Error(t, err)
	_, err = NewRouter(db, nil, &app.Config{}, nil, nil)
	require.Error(t, err)
	_, err = NewRouter(db, jwtSvc, nil, nil, nil)
	require.Error(t, err)
}
