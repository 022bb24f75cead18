package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/api"
	"github.com/charlesng35/tenancy/internal/app"
	"github.com/charlesng35/tenancy/internal/app/maintenance"
	iauth "github.com/charlesng35/tenancy/internal/auth"
	"github.com/charlesng35/tenancy/internal/cache"
	"github.com/charlesng35/tenancy/internal/database"
	"github.com/charlesng35/tenancy/internal/middleware"
	"github.com/charlesng35/tenancy/internal/security"
	"github.com/charlesng35/tenancy/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Services  *api.Services
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// release mode unless GIN_DEBUG=true
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Services, err = api.NewServices(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	cleanerOpts := []maintenance.Option{
		maintenance.WithAuditRetentionDays(cfg.Audit.RetentionDays),
		maintenance.WithAuditSchedule(cfg.Audit.Schedule),
		maintenance.WithIntegritySchedule(cfg.Maintenance.IntegritySchedule),
	}

	if cfg.RateLimit.UsesDatabase() {
		counters := cache.NewDatabaseStore(stack.DB)
		stack.RateStore = middleware.NewDatabaseRateStore(counters)
		cleanerOpts = append(cleanerOpts, maintenance.WithCounterStore(counters))
		log.Info("rate limit counters shared through the database")
	} else {
		stack.RateStore = middleware.NewMemoryRateStore()
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Services.Audit, stack.Services.Store, cleanerOpts...)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.Services, stack.RateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	reportSecurityPosture(ctx, security.NewAuditor(stack.Services.Store, jwtSvc, cfg), log)

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown run failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

// reportSecurityPosture logs every audit check that did not pass.
func reportSecurityPosture(ctx context.Context, auditor *security.Auditor, log *zap.Logger) {
	result := auditor.Run(ctx)
	for _, check := range result.Checks {
		fields := []zap.Field{
			zap.String("check", check.ID),
			zap.String("remediation", check.Remediation),
		}
		switch check.Status {
		case security.StatusFail:
			log.Error(check.Message, fields...)
		case security.StatusWarn:
			log.Warn(check.Message, fields...)
		}
	}
	log.Info("security audit completed",
		zap.Int("pass", result.Summary[string(security.StatusPass)]),
		zap.Int("warn", result.Summary[string(security.StatusWarn)]),
		zap.Int("fail", result.Summary[string(security.StatusFail)]),
	)
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Prepare(db.WithContext(ctx)); err != nil {
		closeDatabase(db, zap.NewNop())
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	driver := dbCfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	logger.WithModule("database").Info("database connected", zap.String("driver", driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
