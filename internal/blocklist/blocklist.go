// Package blocklist manages time-boxed IP blocks. Per IP the state machine
// is Unblocked -> Blocked (threshold crossed) -> Unblocked (TTL expiry or
// manual unblock); transitions are evaluated lazily at read time, there is
// no scheduler.
package blocklist

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"hivetrap/internal/database"
)

type attemptCounter interface {
	CountByIP(ctx context.Context, ip string, window time.Duration) (int64, error)
}

// List is the gorm-backed block list.
type List struct {
	db       *gorm.DB
	attempts attemptCounter
	now      func() time.Time
}

func New(db *gorm.DB, attempts attemptCounter) *List {
	return &List{db: db, attempts: attempts, now: time.Now}
}

// IsBlocked reports whether ip has an unexpired block entry. Entries past
// expiry are treated as absent and removed opportunistically. An unreadable
// block list fails open: availability over strict enforcement, consistent
// with the registry policy (operators: a storage outage disables blocking).
func (l *List) IsBlocked(ctx context.Context, ip string) bool {
	entry, err := database.GetBlockedIP(ctx, l.db, ip)
	if errors.Is(err, database.ErrBlockNotFound) {
		return false
	}
	if err != nil {
		log.Warn("Block list read failed, allowing request", "ip", ip, "error", err)
		return false
	}

	if !l.now().Before(entry.ExpiresAt()) {
		if err := database.DeleteBlockedIP(ctx, l.db, ip); err != nil {
			log.Warn("Failed to evict expired block entry", "ip", ip, "error", err)
		}
		return false
	}
	return true
}

// Block upserts a block entry for ip. Re-blocking resets the timer: the
// most recent offense wins.
func (l *List) Block(ctx context.Context, ip string, ttlHours int) error {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	if err := database.UpsertBlockedIP(ctx, l.db, ip, l.now(), ttlHours); err != nil {
		log.Error("Failed to block IP", "ip", ip, "error", err)
		return err
	}
	log.Info("IP blocked", "ip", ip, "ttl_hours", ttlHours)
	return nil
}

// Unblock removes the entry for ip regardless of remaining TTL. Idempotent.
func (l *List) Unblock(ctx context.Context, ip string) error {
	return database.DeleteBlockedIP(ctx, l.db, ip)
}

// ShouldBlock reports whether ip crossed the attempt threshold within the
// window. Count failures answer false so a storage outage cannot start
// blocking traffic.
func (l *List) ShouldBlock(ctx context.Context, ip string, threshold int, window time.Duration) bool {
	if threshold <= 0 {
		return false
	}

	count, err := l.attempts.CountByIP(ctx, ip, window)
	if err != nil {
		log.Warn("Attempt count failed during block evaluation", "ip", ip, "error", err)
		return false
	}
	return count >= int64(threshold)
}
