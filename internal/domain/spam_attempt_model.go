package domain

import "time"

// SpamAttempt is one detected spam event. Rows are append-only; they are
// never updated, only removed by operator-triggered retention cleanup.
type SpamAttempt struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	FormID int64 `gorm:"not null;index"`

	IP    string `gorm:"size:45;not null;index"`
	Email string `gorm:"size:255;index"`

	UserAgent   string `gorm:"size:512"`
	ReferrerURL string `gorm:"size:512"`

	// TriggeredField is the decoy field id that was filled, or
	// "country_block" when the submission was rejected by country.
	TriggeredField string `gorm:"size:50;not null"`

	// RiskScore is the 0-100 velocity score computed at detection time.
	RiskScore uint8 `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}
