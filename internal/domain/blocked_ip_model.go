package domain

import "time"

// BlockedIP is a time-boxed IP block. One row per IP; repeat offenses
// overwrite BlockedAt and TTLHours so the most recent offense wins.
type BlockedIP struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IP string `gorm:"size:45;uniqueIndex;not null"`

	BlockedAt time.Time `gorm:"not null"`
	TTLHours  int       `gorm:"not null"`
}

// ExpiresAt returns the instant the block stops applying.
func (b BlockedIP) ExpiresAt() time.Time {
	return b.BlockedAt.Add(time.Duration(b.TTLHours) * time.Hour)
}
