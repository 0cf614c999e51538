package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hivetrap/internal/domain"
)

// AttemptSummary is one day's bucket of detected spam activity, ordered
// most recent first by the queries that produce it.
type AttemptSummary struct {
	Date          string `json:"date"`
	Attempts      int64  `json:"attempts"`
	UniqueIPs     int64  `json:"unique_ips"`
	UniqueEmails  int64  `json:"unique_emails"`
	FormsAffected int64  `json:"forms_affected"`
}

// InsertSpamAttempt appends one attempt row. Duplicates are expected and
// valid: the same IP spamming repeatedly produces identical metadata.
func InsertSpamAttempt(ctx context.Context, db *gorm.DB, attempt *domain.SpamAttempt) error {
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("insert spam attempt: %w", err)
	}
	return nil
}

// CountAttemptsByIPSince counts attempts recorded for ip with a persisted
// created_at on or after cutoff.
func CountAttemptsByIPSince(ctx context.Context, db *gorm.DB, ip string, cutoff time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.SpamAttempt{}).
		Where("ip = ? AND created_at >= ?", ip, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count attempts by ip: %w", err)
	}
	return count, nil
}

// CountAttemptsByEmailSince counts attempts recorded for email since cutoff.
// An empty email never matches anything.
func CountAttemptsByEmailSince(ctx context.Context, db *gorm.DB, email string, cutoff time.Time) (int64, error) {
	if email == "" {
		return 0, nil
	}

	var count int64
	err := db.WithContext(ctx).Model(&domain.SpamAttempt{}).
		Where("email = ? AND created_at >= ?", email, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count attempts by email: %w", err)
	}
	return count, nil
}

// PurgeAttemptsOlderThan deletes attempts older than cutoff and returns the
// number of rows removed. Irreversible.
func PurgeAttemptsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.SpamAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeAllAttempts empties the attempt log. Irreversible.
func PurgeAllAttempts(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.SpamAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge all attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountAllAttempts returns the total number of logged attempts.
func CountAllAttempts(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.SpamAttempt{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// RecentAttempts returns one page of attempts ordered newest first. Pages
// are 1-based; out-of-range pages return an empty slice.
func RecentAttempts(ctx context.Context, db *gorm.DB, page, pageSize int) ([]domain.SpamAttempt, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var attempts []domain.SpamAttempt
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	return attempts, nil
}

// DailyAttemptSummaries buckets the last days of the log by calendar
// day, newest day first.
func DailyAttemptSummaries(ctx context.Context, db *gorm.DB, days int) ([]AttemptSummary, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var summaries []AttemptSummary
	err := db.WithContext(ctx).Model(&domain.SpamAttempt{}).
		Where("created_at >= ?", cutoff).
		Select(
			"DATE(created_at) AS date",
			"COUNT(*) AS attempts",
			"COUNT(DISTINCT ip) AS unique_ips",
			"COUNT(DISTINCT email) AS unique_emails",
			"COUNT(DISTINCT form_id) AS forms_affected",
		).
		Group("DATE(created_at)").
		Order("date DESC").
		Limit(days).
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("daily attempt summaries: %w", err)
	}
	return summaries, nil
}
