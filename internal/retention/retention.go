// Package retention removes soft-deleted messages and their receipts on
// a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"chathub/pkg/config"
	"chathub/pkg/logger"
	"chathub/pkg/store"
)

// Start launches the purge scheduler when retention is enabled. The
// returned cancel func stops it.
func Start(ctx context.Context, cfg config.RetentionConfig, st *store.Store) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		// daily at 02:00
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}

	period, err := parsePeriod(cfg.Period)
	if err != nil {
		return nil, err
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", period.String(), "dry_run", cfg.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr, period, st)
	return cancel, nil
}

// parsePeriod reads the tombstone grace period. Empty means purge
// tombstones older than 30 days.
func parsePeriod(s string) (time.Duration, error) {
	if s == "" {
		return 30 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid retention period %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("retention period must not be negative")
	}
	return d, nil
}

// runScheduler sleeps until each next cron tick and purges.
func runScheduler(ctx context.Context, cfg config.RetentionConfig, cronExpr string, period time.Duration, st *store.Store) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(cfg, period, st); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce performs a single purge pass. Exposed so admin triggers and
// tests can run retention on demand.
func RunOnce(cfg config.RetentionConfig, period time.Duration, st *store.Store) error {
	cutoff := time.Now().UTC().Add(-period).UnixNano()
	start := time.Now()
	total := 0
	for {
		n, err := st.PurgeDeleted(cutoff, cfg.BatchSize, cfg.DryRun)
		if err != nil {
			return err
		}
		total += n
		// a short batch means we drained the backlog
		if cfg.DryRun || n == 0 || (cfg.BatchSize > 0 && n < cfg.BatchSize) {
			break
		}
	}
	logger.Info("retention_run_complete", "purged", total, "dry_run", cfg.DryRun, "took", time.Since(start).String())
	return nil
}
