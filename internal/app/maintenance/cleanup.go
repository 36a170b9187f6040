package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/cache"
	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/pkg/logger"
)

const (
	defaultFunnelRetentionDays = 90
	defaultExpirySpec          = "@every 15m"
	defaultReclaimSpec         = "@every 10m"
	defaultPruneSpec           = "@daily"
)

// Cleaner coordinates background maintenance: expiring overdue invitations,
// reclaiming dangling quota reservations, and pruning old funnel events and
// stale cache entries.
type Cleaner struct {
	db        *gorm.DB
	lifecycle *services.LifecycleService
	quota     *services.QuotaService
	store     *cache.DatabaseStore
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention int

	expirySchedule  string
	reclaimSchedule string
	pruneSchedule   string
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

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithFunnelRetentionDays adjusts how long funnel events are retained.
func WithFunnelRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithExpirySchedule overrides the cron specification for the invitation expiry sweep.
func WithExpirySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.expirySchedule = spec
		}
	}
}

// WithReclaimSchedule overrides the cron specification for quota reservation recovery.
func WithReclaimSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.reclaimSchedule = spec
		}
	}
}

// WithPruneSchedule overrides the cron specification for funnel and cache pruning.
func WithPruneSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.pruneSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewCleaner(db *gorm.DB, lifecycle *services.LifecycleService, quota *services.QuotaService, store *cache.DatabaseStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		lifecycle:       lifecycle,
		quota:           quota,
		store:           store,
		now:             time.Now,
		retention:       defaultFunnelRetentionDays,
		expirySchedule:  defaultExpirySpec,
		reclaimSchedule: defaultReclaimSpec,
		pruneSchedule:   defaultPruneSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.lifecycle != nil || cleaner.quota != nil || cleaner.db != nil

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.lifecycle != nil {
		if _, err := c.cron.AddFunc(c.expirySchedule, func() {
			ctx := context.Background()
			if _, err := c.lifecycle.ExpireOverdue(ctx); err != nil {
				c.log.Warn("invitation expiry sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.quota != nil {
		if _, err := c.cron.AddFunc(c.reclaimSchedule, func() {
			ctx := context.Background()
			if _, err := c.quota.ReclaimExpired(ctx); err != nil {
				c.log.Warn("quota reservation recovery failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.pruneSchedule, func() {
			ctx := context.Background()
			if _, err := PruneFunnelEvents(ctx, c.db, c.now().AddDate(0, 0, -c.retention)); err != nil {
				c.log.Warn("funnel event pruning failed", zap.Error(err))
			}
			if c.store != nil {
				if _, err := c.store.CleanupExpired(ctx); err != nil {
					c.log.Warn("cache cleanup failed", zap.Error(err))
				}
			}
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

// RunOnce executes all configured maintenance routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.lifecycle != nil {
		if _, err := c.lifecycle.ExpireOverdue(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.quota != nil {
		if _, err := c.quota.ReclaimExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := PruneFunnelEvents(ctx, c.db, c.now().AddDate(0, 0, -c.retention)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.store != nil {
		if _, err := c.store.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// PruneFunnelEvents removes funnel events recorded before the cutoff.
func PruneFunnelEvents(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("prune funnel events: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.FunnelEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune funnel events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
