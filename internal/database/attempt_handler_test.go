package database

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
	db, err := SetupDB(
		WithDialector(sqlite.Open(dsn)),
		WithLogger(silentLogger()),
		WithSeedDefaults(false),
	)
	if err != nil {
		t.Fatalf("failed to set up test database: %v", err)
	}
	return db
}

func insertAttemptAt(t *testing.T, db *gorm.DB, ip, email string, formID int64, createdAt time.Time) {
	t.Helper()
	attempt := domain.SpamAttempt{
		FormID:         formID,
		IP:             ip,
		Email:          email,
		TriggeredField: "field_a1",
		CreatedAt:      createdAt,
	}
	if err := db.Create(&attempt).Error; err != nil {
		t.Fatalf("failed to insert attempt: %v", err)
	}
}

func TestRecentAttemptsPagination(t *testing.T) {
	db := setupAttemptTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		insertAttemptAt(t, db, fmt.Sprintf("203.0.113.%d", i), "", 1, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := RecentAttempts(ctx, db, 1, 10)
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if len(first) != 10 {
		t.Fatalf("page 1 size = %d, want 10", len(first))
	}
	// Newest first.
	if first[0].IP != "203.0.113.14" {
		t.Fatalf("page 1 starts with %s, want the newest attempt", first[0].IP)
	}

	second, err := RecentAttempts(ctx, db, 2, 10)
	if err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}
	if len(second) != 5 {
		t.Fatalf("page 2 size = %d, want 5", len(second))
	}
}

func TestDailyAttemptSummaries(t *testing.T) {
	db := setupAttemptTestDB(t)
	ctx := context.Background()

	today := time.Now()
	insertAttemptAt(t, db, "203.0.113.1", "a@example.com", 1, today)
	insertAttemptAt(t, db, "203.0.113.1", "a@example.com", 2, today)
	insertAttemptAt(t, db, "203.0.113.2", "b@example.com", 1, today)

	summaries, err := DailyAttemptSummaries(ctx, db, 7)
	if err != nil {
		t.Fatalf("summaries failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1 day", len(summaries))
	}

	s := summaries[0]
	if s.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", s.Attempts)
	}
	if s.UniqueIPs != 2 {
		t.Fatalf("unique ips = %d, want 2", s.UniqueIPs)
	}
	if s.UniqueEmails != 2 {
		t.Fatalf("unique emails = %d, want 2", s.UniqueEmails)
	}
	if s.FormsAffected != 2 {
		t.Fatalf("forms affected = %d, want 2", s.FormsAffected)
	}
}

func TestDailyAttemptSummariesWindow(t *testing.T) {
	db := setupAttemptTestDB(t)
	ctx := context.Background()

	insertAttemptAt(t, db, "203.0.113.3", "", 1, time.Now().AddDate(0, 0, -40))
	insertAttemptAt(t, db, "203.0.113.4", "", 1, time.Now())

	summaries, err := DailyAttemptSummaries(ctx, db, 7)
	if err != nil {
		t.Fatalf("summaries failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want only the recent day", len(summaries))
	}
}
