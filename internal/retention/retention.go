// Package retention purges stale empty chats on a cron schedule. A chat
// that was created but never received a message carries no conversation;
// sweeping those out of band keeps listings and storage clean.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"charchat/pkg/config"
	"charchat/pkg/logger"
	"charchat/pkg/store"
)

const (
	defaultCron   = "0 2 * * *"
	defaultMinAge = 24 * time.Hour
)

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.RetentionConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "min_age", cfg.MinAge.Duration().String(), "dry_run", cfg.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the configured cron expression
// with gronx and sleeps until then.
func runScheduler(ctx context.Context, cfg config.RetentionConfig, cronExpr string) {
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
			if _, err := RunOnce(cfg); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce sweeps all chats and deletes those with zero messages whose
// creation is older than the configured minimum age. It returns how many
// chats were removed (or would have been, under dry run).
func RunOnce(cfg config.RetentionConfig) (int, error) {
	minAge := cfg.MinAge.Duration()
	if minAge <= 0 {
		minAge = defaultMinAge
	}
	cutoff := time.Now().UTC().Add(-minAge).UnixNano()

	chats, err := store.ListChats("")
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, c := range chats {
		if c.CreatedTS > cutoff {
			continue
		}
		n, err := store.CountMessages(c.ID)
		if err != nil {
			return purged, err
		}
		if n > 0 {
			continue
		}
		if cfg.DryRun {
			logger.Info("retention_would_purge", "chat", c.ID)
			purged++
			continue
		}
		if err := store.DeleteChat(c.ID); err != nil {
			return purged, err
		}
		logger.Info("retention_purged", "chat", c.ID)
		purged++
		if cfg.BatchSize > 0 && purged >= cfg.BatchSize {
			break
		}
	}
	logger.Info("retention_run_complete", "purged", purged, "dry_run", cfg.DryRun)
	return purged, nil
}
