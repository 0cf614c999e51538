package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"hivetrap/internal/api/dto"
	"hivetrap/internal/database"
	"hivetrap/internal/domain"
)

func (a *API) getDashboardInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := database.CountAllAttempts(ctx, a.DB)
	if err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	var blocked int64
	if err := a.DB.WithContext(ctx).Model(&domain.BlockedIP{}).Count(&blocked).Error; err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)
	var today int64
	if err := a.DB.WithContext(ctx).Model(&domain.SpamAttempt{}).
		Where("created_at >= ?", startOfDay).
		Count(&today).Error; err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	info := dto.DashboardInfo{
		TotalAttempts: total,
		BlockedIPs:    blocked,
		AttemptsToday: today,
	}

	var top struct {
		TriggeredField string
	}
	err = a.DB.WithContext(ctx).Model(&domain.SpamAttempt{}).
		Select("triggered_field").
		Group("triggered_field").
		Order("COUNT(*) DESC").
		Limit(1).
		Scan(&top).Error
	if err != nil {
		log.Warn("Dashboard: top trigger field query failed", "error", err)
	} else {
		info.TopTriggerField = top.TriggeredField
	}

	writeJSON(w, http.StatusOK, info)
}

func (a *API) getDailySummaries(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	summaries, err := database.DailyAttemptSummaries(r.Context(), a.DB, days)
	if err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	out := make([]dto.DailySummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.DailySummary{
			Date:          s.Date,
			Attempts:      s.Attempts,
			UniqueIPs:     s.UniqueIPs,
			UniqueEmails:  s.UniqueEmails,
			FormsAffected: s.FormsAffected,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (a *API) getAttemptPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		writeError(w, "Invalid page", http.StatusBadRequest)
		return
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	attempts, err := database.RecentAttempts(r.Context(), a.DB, page, pageSize)
	if err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	rows := make([]dto.AttemptRow, 0, len(attempts))
	for _, attempt := range attempts {
		rows = append(rows, dto.AttemptRow{
			ID:             attempt.ID,
			FormID:         attempt.FormID,
			IP:             attempt.IP,
			Email:          attempt.Email,
			UserAgent:      attempt.UserAgent,
			ReferrerURL:    attempt.ReferrerURL,
			TriggeredField: attempt.TriggeredField,
			RiskScore:      attempt.RiskScore,
			CreatedAt:      attempt.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, rows)
}

func (a *API) purgeAttempts(w http.ResponseWriter, r *http.Request) {
	var req dto.PurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var deleted int64
	var err error
	if req.Days <= 0 {
		deleted, err = a.Attempts.PurgeAll(r.Context())
	} else {
		deleted, err = a.Attempts.PurgeOlderThanDays(r.Context(), req.Days)
	}
	if err != nil {
		writeError(w, "Failed to purge attempts", http.StatusInternalServerError)
		return
	}

	log.Info("Attempt log purged", "days", req.Days, "deleted", deleted)
	writeJSON(w, http.StatusOK, dto.PurgeResult{Deleted: deleted})
}
