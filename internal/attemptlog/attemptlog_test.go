package attemptlog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hivetrap/internal/domain"
)

func setupAttemptTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}

	if err := db.AutoMigrate(&domain.SpamAttempt{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	return db
}

func insertAttempt(t *testing.T, db *gorm.DB, ip, email string, createdAt time.Time) {
	t.Helper()

	attempt := domain.SpamAttempt{
		FormID:         42,
		IP:             ip,
		Email:          email,
		TriggeredField: "field_a1",
		RiskScore:      0,
		CreatedAt:      createdAt,
	}
	if err := db.Create(&attempt).Error; err != nil {
		t.Fatalf("insert attempt: %v", err)
	}
}

func TestRecordAllowsDuplicates(t *testing.T) {
	db := setupAttemptTestDB(t)
	l := New(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		attempt := domain.SpamAttempt{
			FormID:         7,
			IP:             "203.0.113.9",
			Email:          "bot@example.com",
			UserAgent:      "curl/8.0",
			TriggeredField: "field_b2",
			RiskScore:      30,
		}
		if err := l.Record(ctx, &attempt); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&domain.SpamAttempt{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("attempt rows = %d, want 3", count)
	}
}

func TestCountsUsePersistedTimestamps(t *testing.T) {
	db := setupAttemptTestDB(t)
	l := New(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	insertAttempt(t, db, "203.0.113.5", "a@spam.test", base.Add(-time.Hour))
	insertAttempt(t, db, "203.0.113.5", "a@spam.test", base.Add(-23*time.Hour))
	insertAttempt(t, db, "203.0.113.5", "", base.Add(-25*time.Hour))
	insertAttempt(t, db, "198.51.100.1", "b@spam.test", base.Add(-time.Hour))

	ipCount, err := l.CountByIP(ctx, "203.0.113.5", 24*time.Hour)
	if err != nil {
		t.Fatalf("count by ip: %v", err)
	}
	if ipCount != 2 {
		t.Fatalf("ip count = %d, want 2 (25h-old row outside window)", ipCount)
	}

	emailCount, err := l.CountByEmail(ctx, "a@spam.test", 24*time.Hour)
	if err != nil {
		t.Fatalf("count by email: %v", err)
	}
	if emailCount != 2 {
		t.Fatalf("email count = %d, want 2", emailCount)
	}

	emptyCount, err := l.CountByEmail(ctx, "", 24*time.Hour)
	if err != nil {
		t.Fatalf("count by empty email: %v", err)
	}
	if emptyCount != 0 {
		t.Fatalf("empty email count = %d, want 0", emptyCount)
	}
}

func TestPurgeOlderThanDays(t *testing.T) {
	db := setupAttemptTestDB(t)
	l := New(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	insertAttempt(t, db, "203.0.113.5", "", base.AddDate(0, 0, -40))
	insertAttempt(t, db, "203.0.113.5", "", base.AddDate(0, 0, -10))
	insertAttempt(t, db, "203.0.113.5", "", base.Add(-time.Hour))

	removed, err := l.PurgeOlderThanDays(ctx, 30)
	if err != nil {
		t.Fatalf("purge 30d: %v", err)
	}
	if removed != 1 {
		t.Fatalf("purge 30d removed %d rows, want 1", removed)
	}

	// Unsupported retention periods fall back to 30 days.
	removed, err = l.PurgeOlderThanDays(ctx, 999)
	if err != nil {
		t.Fatalf("purge fallback: %v", err)
	}
	if removed != 0 {
		t.Fatalf("purge fallback removed %d rows, want 0", removed)
	}

	removed, err = l.PurgeOlderThanDays(ctx, 7)
	if err != nil {
		t.Fatalf("purge 7d: %v", err)
	}
	if removed != 1 {
		t.Fatalf("purge 7d removed %d rows, want 1", removed)
	}

	removed, err = l.PurgeAll(ctx)
	if err != nil {
		t.Fatalf("purge all: %v", err)
	}
	if removed != 1 {
		t.Fatalf("purge all removed %d rows, want 1", removed)
	}

	var count int64
	if err := db.Model(&domain.SpamAttempt{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rows remaining = %d, want 0", count)
	}
}
