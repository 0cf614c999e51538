package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hivetrap/internal/domain"
)

// ErrBlockNotFound is returned when no block entry exists for an IP.
var ErrBlockNotFound = errors.New("block entry not found")

// UpsertBlockedIP inserts or overwrites the block entry for ip. The single
// row per IP means a repeat offense always resets the timer.
func UpsertBlockedIP(ctx context.Context, db *gorm.DB, ip string, blockedAt time.Time, ttlHours int) error {
	entry := domain.BlockedIP{
		IP:        ip,
		BlockedAt: blockedAt,
		TTLHours:  ttlHours,
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}},
		DoUpdates: clause.AssignmentColumns([]string{"blocked_at", "ttl_hours"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("upsert blocked ip: %w", err)
	}
	return nil
}

// GetBlockedIP loads the block entry for ip, expired or not.
func GetBlockedIP(ctx context.Context, db *gorm.DB, ip string) (domain.BlockedIP, error) {
	var entry domain.BlockedIP
	err := db.WithContext(ctx).Where("ip = ?", ip).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.BlockedIP{}, ErrBlockNotFound
	}
	if err != nil {
		return domain.BlockedIP{}, fmt.Errorf("get blocked ip: %w", err)
	}
	return entry, nil
}

// DeleteBlockedIP removes the block entry for ip, if any. Idempotent.
func DeleteBlockedIP(ctx context.Context, db *gorm.DB, ip string) error {
	err := db.WithContext(ctx).Where("ip = ?", ip).Delete(&domain.BlockedIP{}).Error
	if err != nil {
		return fmt.Errorf("delete blocked ip: %w", err)
	}
	return nil
}

// ListBlockedIPs returns every block entry, newest block first, including
// entries past expiry that have not been swept yet.
func ListBlockedIPs(ctx context.Context, db *gorm.DB) ([]domain.BlockedIP, error) {
	var entries []domain.BlockedIP
	err := db.WithContext(ctx).Order("blocked_at DESC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list blocked ips: %w", err)
	}
	return entries, nil
}

// DeleteExpiredBlockedIPs sweeps entries whose TTL elapsed before now.
// Purely memory hygiene: reads already treat expired entries as absent.
// Expiry is evaluated in Go so the query stays portable across dialects.
func DeleteExpiredBlockedIPs(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	entries, err := ListBlockedIPs(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("delete expired blocked ips: %w", err)
	}

	var expired []string
	for _, entry := range entries {
		if !now.Before(entry.ExpiresAt()) {
			expired = append(expired, entry.IP)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	res := db.WithContext(ctx).Where("ip IN ?", expired).Delete(&domain.BlockedIP{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired blocked ips: %w", res.Error)
	}
	return res.RowsAffected, nil
}
