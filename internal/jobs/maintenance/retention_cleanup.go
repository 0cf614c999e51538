// Package maintenance runs the periodic cleanup work: attempt log
// retention and expired block eviction. With redis available the loop
// is leader elected so only one replica does the sweeping; without it
// the loop runs locally.
package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hivetrap/internal/attemptlog"
	"hivetrap/internal/config"
	"hivetrap/internal/database"
	"hivetrap/internal/support"
)

const cleanupLockKey = "hivetrap:leader:cleanup"

func StartCleanupRoutine(ctx context.Context, client *redis.Client, db *gorm.DB, attempts *attemptlog.Log) {
	if ctx == nil {
		ctx = context.Background()
	}

	if client == nil {
		log.Warn("Cleanup routine running without leader election")
		runCleanupLoop(ctx, db, attempts)
		return
	}

	err := support.RunWithLeader(ctx, client, cleanupLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runCleanupLoop(leaderCtx, db, attempts)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Cleanup routine stopped", "error", err)
	}
}

// runCleanupLoop sweeps on the configured interval and follows interval
// changes pushed through the configuration.
func runCleanupLoop(ctx context.Context, db *gorm.DB, attempts *attemptlog.Log) {
	intervalUpdates := config.CleanupIntervalUpdates()

	ticker := time.NewTicker(config.GetCleanupInterval())
	defer ticker.Stop()

	runCleanup(ctx, db, attempts)

	for {
		select {
		case <-ctx.Done():
			return
		case interval := <-intervalUpdates:
			ticker.Reset(interval)
			log.Debug("Cleanup interval updated", "interval", interval)
		case <-ticker.C:
			runCleanup(ctx, db, attempts)
		}
	}
}

func runCleanup(ctx context.Context, db *gorm.DB, attempts *attemptlog.Log) {
	start := time.Now()

	var attemptsRemoved, blocksRemoved int64

	days := config.GetConfig().Retention.Days
	if removed, err := attempts.PurgeOlderThanDays(ctx, days); err != nil {
		log.Error("Failed to purge old attempts", "error", err)
	} else {
		attemptsRemoved = removed
	}

	if removed, err := database.DeleteExpiredBlockedIPs(ctx, db, time.Now()); err != nil {
		log.Error("Failed to evict expired blocks", "error", err)
	} else {
		blocksRemoved = removed
	}

	if attemptsRemoved > 0 || blocksRemoved > 0 {
		log.Info("Cleanup finished",
			"attempts_removed", attemptsRemoved,
			"blocks_removed", blocksRemoved,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	}
}
