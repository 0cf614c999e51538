// Package attemptlog is the append-only record of detected spam events.
// It feeds both the risk scorer (windowed counts) and operator reporting.
package attemptlog

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"hivetrap/internal/database"
	"hivetrap/internal/domain"
)

// Log appends and counts spam attempts. Entries are insert-only; nothing
// here updates a row after it is written.
type Log struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Log {
	return &Log{db: db, now: time.Now}
}

// Record appends one attempt. The error is surfaced for operator
// visibility but callers must not let it override a rejection already
// decided: a failed log write never un-blocks spam.
func (l *Log) Record(ctx context.Context, attempt *domain.SpamAttempt) error {
	if err := database.InsertSpamAttempt(ctx, l.db, attempt); err != nil {
		log.Error("Failed to record spam attempt", "ip", attempt.IP, "error", err)
		return err
	}
	return nil
}

// CountByIP counts attempts for ip within the window, measured against the
// persisted created_at rather than caller wall clocks.
func (l *Log) CountByIP(ctx context.Context, ip string, window time.Duration) (int64, error) {
	return database.CountAttemptsByIPSince(ctx, l.db, ip, l.now().Add(-window))
}

// CountByEmail counts attempts for email within the window. An empty
// email contributes no signal and counts zero.
func (l *Log) CountByEmail(ctx context.Context, email string, window time.Duration) (int64, error) {
	return database.CountAttemptsByEmailSince(ctx, l.db, email, l.now().Add(-window))
}

// validRetentionDays mirrors the accepted operator retention periods; any
// other value falls back to 30 days.
var validRetentionDays = map[int]struct{}{1: {}, 7: {}, 30: {}}

// PurgeOlderThanDays removes attempts older than the given retention
// period and reports the rows removed. Irreversible.
func (l *Log) PurgeOlderThanDays(ctx context.Context, days int) (int64, error) {
	if _, ok := validRetentionDays[days]; !ok {
		days = 30
	}
	cutoff := l.now().AddDate(0, 0, -days)
	return database.PurgeAttemptsOlderThan(ctx, l.db, cutoff)
}

// PurgeAll truncates the attempt log. Irreversible.
func (l *Log) PurgeAll(ctx context.Context) (int64, error) {
	return database.PurgeAllAttempts(ctx, l.db)
}
