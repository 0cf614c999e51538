package dto

import "time"

type DashboardInfo struct {
	TotalAttempts   int64  `json:"total_attempts"`
	BlockedIPs      int64  `json:"blocked_ips"`
	AttemptsToday   int64  `json:"attempts_today"`
	TopTriggerField string `json:"top_trigger_field,omitempty"`
}

type DailySummary struct {
	Date          string `json:"date"`
	Attempts      int64  `json:"attempts"`
	UniqueIPs     int64  `json:"unique_ips"`
	UniqueEmails  int64  `json:"unique_emails"`
	FormsAffected int64  `json:"forms_affected"`
}

type AttemptRow struct {
	ID             uint64    `json:"id"`
	FormID         int64     `json:"form_id"`
	IP             string    `json:"ip"`
	Email          string    `json:"email,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	ReferrerURL    string    `json:"referrer_url,omitempty"`
	TriggeredField string    `json:"triggered_field"`
	RiskScore      uint8     `json:"risk_score"`
	CreatedAt      time.Time `json:"created_at"`
}

type PurgeRequest struct {
	// Days selects rows older than the given retention period. Zero or
	// negative means purge everything.
	Days int `json:"days"`
}

type PurgeResult struct {
	Deleted int64 `json:"deleted"`
}
