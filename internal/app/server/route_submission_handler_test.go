package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hivetrap/internal/api/dto"
	"hivetrap/internal/attemptlog"
	"hivetrap/internal/blocklist"
	"hivetrap/internal/config"
	"hivetrap/internal/domain"
	"hivetrap/internal/engine"
	"hivetrap/internal/geo"
	"hivetrap/internal/registry"
)

type staticStore struct {
	questions []domain.HoneypotQuestion
}

func (s staticStore) ListHoneypotQuestions(context.Context) ([]domain.HoneypotQuestion, error) {
	return s.questions, nil
}

func setupTestAPI(t *testing.T) (*API, *gorm.DB) {
	t.Helper()
	t.Chdir(t.TempDir())
	config.SetConfig(config.Config{})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.SpamAttempt{}, &domain.BlockedIP{}, &domain.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	attempts := attemptlog.New(db)
	blocks := blocklist.New(db, attempts)
	reg := registry.New(staticStore{questions: []domain.HoneypotQuestion{
		{FieldID: "field_a1", Question: "What is the capital of Italy?", Answer: "rome"},
	}}, config.GetRegistryCacheTTL)

	api := NewAPI(db, engine.New(reg, attempts, blocks), reg, attempts, blocks)
	api.ResolveCountry = func(string) string { return geo.UnknownCountry }
	return api, db
}

func postSubmission(t *testing.T, api *API, req dto.SubmissionRequest, remoteAddr string) dto.DecisionResponse {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	httpReq := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewReader(body))
	httpReq.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	api.evaluateSubmission(rec, httpReq)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var decision dto.DecisionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return decision
}

func TestEvaluateEndpointSpam(t *testing.T) {
	api, db := setupTestAPI(t)

	decision := postSubmission(t, api, dto.SubmissionRequest{
		FormID: 9,
		Fields: []dto.SubmissionField{
			{Key: "your-name", Value: "Bob"},
			{Key: "your-email", Value: "bob@example.com"},
			{Key: "field_a1", Value: "rome"},
		},
	}, "203.0.113.5:44210")

	if decision.Decision != string(engine.Spam) {
		t.Fatalf("decision = %q, want %q", decision.Decision, engine.Spam)
	}
	if decision.TriggeredField != "field_a1" {
		t.Fatalf("triggered field = %q, want field_a1", decision.TriggeredField)
	}

	var attempt domain.SpamAttempt
	if err := db.First(&attempt).Error; err != nil {
		t.Fatalf("no attempt recorded: %v", err)
	}
	if attempt.IP != "203.0.113.5" {
		t.Fatalf("recorded IP = %q, want port stripped", attempt.IP)
	}
	if attempt.Email != "bob@example.com" {
		t.Fatalf("recorded email = %q, want sniffed from fields", attempt.Email)
	}
}

func TestEvaluateEndpointAllow(t *testing.T) {
	api, db := setupTestAPI(t)

	decision := postSubmission(t, api, dto.SubmissionRequest{
		FormID: 9,
		Fields: []dto.SubmissionField{
			{Key: "your-name", Value: "Alice"},
		},
	}, "203.0.113.6:44210")

	if decision.Decision != string(engine.Allow) {
		t.Fatalf("decision = %q, want %q", decision.Decision, engine.Allow)
	}

	var count int64
	if err := db.Model(&domain.SpamAttempt{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count attempts: %v", err)
	}
	if count != 0 {
		t.Fatalf("attempt rows = %d, want 0", count)
	}
}

func TestGetDisplayQuestion(t *testing.T) {
	api, _ := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/honeypot/question", nil)
	rec := httptest.NewRecorder()
	api.getDisplayQuestion(rec, req)

	var question dto.DisplayQuestion
	if err := json.Unmarshal(rec.Body.Bytes(), &question); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if question.FieldID != "field_a1" {
		t.Fatalf("field id = %q, want field_a1", question.FieldID)
	}
	if question.Question == "" {
		t.Fatal("question text missing")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"plain", "203.0.113.7:1234", "", "203.0.113.7"},
		{"forwarded single", "10.0.0.1:80", "198.51.100.3", "198.51.100.3"},
		{"forwarded list uses first hop", "10.0.0.1:80", "198.51.100.3, 10.0.0.2", "198.51.100.3"},
		{"ipv6 loopback folded", "[::1]:9000", "", "127.0.0.1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(r); got != tc.want {
				t.Fatalf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSniffEmail(t *testing.T) {
	fields := []dto.SubmissionField{
		{Key: "your-name", Value: "Bob"},
		{Key: "contact-email", Value: " bot@spam.example "},
	}
	if got := sniffEmail(fields); got != "bot@spam.example" {
		t.Fatalf("sniffEmail = %q", got)
	}

	if got := sniffEmail([]dto.SubmissionField{{Key: "your-email", Value: ""}}); got != "" {
		t.Fatalf("sniffEmail on empty value = %q, want empty", got)
	}
}

func TestNormalizeCountries(t *testing.T) {
	got := normalizeCountries([]string{" ru ", "CN", "cn", "XX", "USA", ""})
	want := []string{"RU", "CN"}
	if len(got) != len(want) {
		t.Fatalf("normalizeCountries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("normalizeCountries = %v, want %v", got, want)
		}
	}
}
