package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/tenancy/internal/app"
	"github.com/charlesng35/tenancy/internal/security"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	return &app.Config{
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "data", "tenancy.sqlite"),
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: "bootstrap-secret", TTL: time.Minute},
		},
		Audit: app.AuditConfig{RetentionDays: 30, Schedule: "@daily"},
		Maintenance: app.MaintenanceConfig{
			IntegritySchedule: "@hourly",
		},
	}
}

func TestBootstrapRuntime(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.DB)
	require.NotNil(t, stack.Services)
	require.NotNil(t, stack.Cleaner)
	require.NotNil(t, stack.Router)

	_, err = os.Stat(cfg.Database.Path)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.True(t, stack.DB.Migrator().HasTable("memberships"))
}

func TestBootstrapRuntimeRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maintenance.IntegritySchedule = "every now and then"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "start maintenance jobs")
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "open database")
}

func TestShutdownIsIdempotent(t *testing.T) {
	stack, err := bootstrapRuntime(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)

	stack.Shutdown(context.Background(), nil)
	stack.Shutdown(context.Background(), nil)

	var nilStack *runtimeStack
	nilStack.Shutdown(context.Background(), nil)
}

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9191\n"), 0o600))

	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)

	cfg, err = loadApplicationConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.ErrorContains(t, err, "does not exist")
}

func TestRunHelpFlag(t *testing.T) {
	err := run(context.Background(), []string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestReportSecurityPosture(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	cfg := &app.Config{Audit: app.AuditConfig{RetentionDays: 90}}
	reportSecurityPosture(context.Background(), security.NewAuditor(nil, nil, cfg), zap.New(core))

	require.Equal(t, 1, logs.FilterMessage("security audit completed").Len())
	require.Equal(t, 1, logs.FilterField(zap.String("check", "jwt_token_scope")).Len())
	require.Zero(t, logs.FilterField(zap.String("check", "audit_retention")).Len())
}
