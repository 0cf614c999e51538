package dto

import "time"

type BlockedIPInfo struct {
	IP        string    `json:"ip"`
	BlockedAt time.Time `json:"blocked_at"`
	TTLHours  int       `json:"ttl_hours"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BlockRequest struct {
	IP       string `json:"ip"`
	TTLHours int    `json:"ttl_hours,omitempty"`
}
