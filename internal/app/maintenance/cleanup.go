package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/services"
	"github.com/voicedeck/voicedeck/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultKeyExpirySpec      = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultStatsSpec          = "@every 15m"
)

// Cleaner coordinates background maintenance tasks: deactivating API keys past
// their expiry, pruning stale audit logs, and reporting cache statistics.
type Cleaner struct {
	keys      *services.APIKeyService
	audit     *services.AuditService
	store     cache.Store
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention int

	keyExpirySchedule string
	auditSchedule     string
	statsSchedule     string
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

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithKeyExpirySchedule overrides the cron specification for expired key deactivation.
func WithKeyExpirySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.keyExpirySchedule = spec
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

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding job being skipped.
func NewCleaner(keys *services.APIKeyService, audit *services.AuditService, store cache.Store, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		keys:              keys,
		audit:             audit,
		store:             store,
		now:               time.Now,
		retention:         defaultAuditRetentionDays,
		keyExpirySchedule: defaultKeyExpirySpec,
		auditSchedule:     defaultAuditSpec,
		statsSchedule:     defaultStatsSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.keys != nil || cleaner.audit != nil || cleaner.store != nil

	return cleaner
}

// Start registers jobs with the cron scheduler and launches it if at least one is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.keys != nil {
		if _, err := c.cron.AddFunc(c.keyExpirySchedule, func() {
			ctx := context.Background()
			count, err := c.keys.DeactivateExpired(ctx)
			if err != nil {
				c.log.Warn("expired key deactivation failed", zap.Error(err))
				return
			}
			if count > 0 {
				c.log.Info("deactivated expired keys", zap.Int64("count", count))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.statsSchedule, func() {
			stats := c.store.Stats()
			c.log.Debug("cache stats", zap.Int("size", stats.Size))
		}); err != nil {
			return err
		}
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

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.keys != nil {
		if _, err := c.keys.DeactivateExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
