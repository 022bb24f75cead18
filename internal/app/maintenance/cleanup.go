package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/tenancy/internal/services"
	"github.com/charlesng35/tenancy/pkg/logger"
	"github.com/charlesng35/tenancy/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSpec          = "@daily"
	defaultIntegritySpec      = "@hourly"
)

// CounterPurger removes expired rate limit counters.
type CounterPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: pruning stale audit logs,
// purging expired rate limit counters and reporting organizations that have
// lost every admin.
type Cleaner struct {
	audit     *services.AuditService
	store     *services.MembershipStore
	counters  CounterPurger
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	auditSchedule     string
	integritySchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithLogger overrides the logger used for job output.
func WithLogger(log *zap.Logger) Option {
	return func(cleaner *Cleaner) {
		if log != nil {
			cleaner.log = log
		}
	}
}

// WithCounterStore enables purging of expired rate limit counters. The purge
// runs on the integrity schedule.
func WithCounterStore(counters CounterPurger) Option {
	return func(cleaner *Cleaner) {
		if counters != nil {
			cleaner.counters = counters
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before
// cleanup. Zero disables the retention job.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days >= 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithIntegritySchedule overrides the cron specification for the admin integrity sweep.
func WithIntegritySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.integritySchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil dependency
// results in the corresponding job being skipped.
func NewCleaner(audit *services.AuditService, store *services.MembershipStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:             audit,
		store:             store,
		retention:         defaultAuditRetentionDays,
		auditSchedule:     defaultAuditSpec,
		integritySchedule: defaultIntegritySpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := 0

	if c.auditEnabled() {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.pruneAudit(context.Background()); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule audit cleanup: %w", err)
		}
		jobs++
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.integritySchedule, func() {
			if _, err := c.CheckIntegrity(context.Background()); err != nil {
				c.log.Warn("integrity sweep failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule integrity sweep: %w", err)
		}
		jobs++
	}

	if c.counters != nil {
		if _, err := c.cron.AddFunc(c.integritySchedule, func() {
			if _, err := c.purgeCounters(context.Background()); err != nil {
				c.log.Warn("counter purge failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule counter purge: %w", err)
		}
		jobs++
	}

	if jobs == 0 {
		return nil
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and aggregates their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.auditEnabled() {
		if _, err := c.pruneAudit(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.store != nil {
		if _, err := c.CheckIntegrity(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.counters != nil {
		if _, err := c.purgeCounters(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CheckIntegrity returns the organizations that have members but no ADMIN.
// Violations are logged and never repaired automatically.
func (c *Cleaner) CheckIntegrity(ctx context.Context) ([]string, error) {
	if c.store == nil {
		return nil, errors.New("maintenance: membership store is required")
	}

	orgIDs, err := c.store.OrganizationsWithoutAdmins(ctx)
	recordRun("integrity", err)
	if err != nil {
		return nil, err
	}
	for _, orgID := range orgIDs {
		c.log.Error("organization has no admin", zap.String("organization_id", orgID))
	}
	return orgIDs, nil
}

func (c *Cleaner) auditEnabled() bool {
	return c.audit != nil && c.retention > 0
}

func (c *Cleaner) pruneAudit(ctx context.Context) (int64, error) {
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	recordRun("audit_retention", err)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Info("audit logs pruned", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return removed, nil
}

func (c *Cleaner) purgeCounters(ctx context.Context) (int64, error) {
	removed, err := c.counters.PurgeExpired(ctx)
	recordRun("counter_purge", err)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Debug("expired rate counters purged", zap.Int64("removed", removed))
	}
	return removed, nil
}

func recordRun(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()
}
