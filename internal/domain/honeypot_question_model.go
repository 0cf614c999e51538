package domain

import "time"

// HoneypotQuestion is a decoy field injected into outgoing forms. Bots that
// answer it reveal themselves; humans never see it.
type HoneypotQuestion struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	// FieldID is the form input name the decoy is rendered under. It must
	// never collide with a legitimate form field name; the naming convention
	// (field_a1 .. field_t20, field_fallback_*) guarantees that.
	FieldID string `gorm:"size:50;uniqueIndex;not null"`

	Question string `gorm:"type:text;not null"`

	// Answer is the plausible human answer, stored lowercase. It only exists
	// to make the decoy look like a real challenge in markup.
	Answer string `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
