package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"hivetrap/internal/api/dto"
	"hivetrap/internal/database"
	"hivetrap/internal/domain"
)

func (a *API) getQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := database.ListHoneypotQuestions(r.Context(), a.DB)
	if err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	out := make([]dto.Question, 0, len(questions))
	for _, q := range questions {
		out = append(out, dto.Question{
			FieldID:  q.FieldID,
			Question: q.Question,
			Answer:   q.Answer,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// saveQuestions replaces the decoy question pool and invalidates the
// registry cache so the new field set takes effect immediately. Posting
// an empty list restores the built-in defaults.
func (a *API) saveQuestions(w http.ResponseWriter, r *http.Request) {
	var input []dto.Question
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	questions := make([]domain.HoneypotQuestion, 0, len(input))
	for _, q := range input {
		questions = append(questions, domain.HoneypotQuestion{
			FieldID:  q.FieldID,
			Question: q.Question,
			Answer:   q.Answer,
		})
	}

	if err := database.ReplaceHoneypotQuestions(r.Context(), a.DB, questions); err != nil {
		writeError(w, "Failed to save questions", http.StatusBadRequest)
		return
	}

	a.Registry.Invalidate()
	log.Info("Honeypot questions replaced", "count", len(questions))

	writeJSON(w, http.StatusOK, map[string]string{"message": "Questions saved successfully"})
}
