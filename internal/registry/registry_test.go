package registry

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"hivetrap/internal/domain"
)

type fakeStore struct {
	questions []domain.HoneypotQuestion
	err       error
	loads     int
}

func (f *fakeStore) ListHoneypotQuestions(context.Context) ([]domain.HoneypotQuestion, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

func staticTTL(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

func TestFieldIDsCachesWithinTTL(t *testing.T) {
	store := &fakeStore{questions: []domain.HoneypotQuestion{
		{FieldID: "field_a1", Question: "What is the capital of Italy?"},
		{FieldID: "field_b2", Question: "What is 2 + 2?"},
	}}
	r := New(store, staticTTL(12*time.Hour))

	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	ids := r.FieldIDs(context.Background())
	if len(ids) != 2 {
		t.Fatalf("field ids = %d, want 2", len(ids))
	}
	if _, ok := ids["field_a1"]; !ok {
		t.Fatal("field_a1 missing from registry")
	}

	// Reads within the TTL are served from cache.
	for i := 0; i < 5; i++ {
		r.FieldIDs(context.Background())
	}
	if store.loads != 1 {
		t.Fatalf("store loads = %d, want 1 (cache not honored)", store.loads)
	}

	// Past the TTL the next read reloads.
	current = current.Add(12*time.Hour + time.Minute)
	r.FieldIDs(context.Background())
	if store.loads != 2 {
		t.Fatalf("store loads = %d, want 2 after TTL expiry", store.loads)
	}
}

func TestInvalidateForcesReloadWithinTTL(t *testing.T) {
	store := &fakeStore{questions: []domain.HoneypotQuestion{
		{FieldID: "field_a1"},
	}}
	r := New(store, staticTTL(12*time.Hour))

	if _, ok := r.FieldIDs(context.Background())["field_a1"]; !ok {
		t.Fatal("initial load missing field_a1")
	}

	// Storage changes, cache is invalidated well within the TTL window.
	store.questions = []domain.HoneypotQuestion{{FieldID: "field_z9"}}
	r.Invalidate()

	ids := r.FieldIDs(context.Background())
	if _, ok := ids["field_z9"]; !ok {
		t.Fatal("registry stale after Invalidate")
	}
	if _, ok := ids["field_a1"]; ok {
		t.Fatal("removed field still present after Invalidate")
	}
}

func TestReloadFailureFailsOpen(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("storage unavailable")}
	r := New(store, staticTTL(time.Hour))

	ids := r.FieldIDs(context.Background())
	if len(ids) != 0 {
		t.Fatalf("failed reload returned %d ids, want empty set", len(ids))
	}

	// The failure is not cached: recovery is picked up immediately.
	store.err = nil
	store.questions = []domain.HoneypotQuestion{{FieldID: "field_a1"}}
	if _, ok := r.FieldIDs(context.Background())["field_a1"]; !ok {
		t.Fatal("registry did not recover after storage came back")
	}
}

func TestPickDisplayQuestion(t *testing.T) {
	store := &fakeStore{questions: []domain.HoneypotQuestion{
		{FieldID: "field_a1", Question: "What is the capital of Italy?", Answer: "rome"},
		{FieldID: "field_b2", Question: "What is 2 + 2?", Answer: "4"},
		{FieldID: "field_c3", Question: "What color is grass?", Answer: "green"},
	}}
	r := New(store, staticTTL(time.Hour))

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		q := r.PickDisplayQuestion(context.Background())
		if q.FieldID == "" || q.Question == "" {
			t.Fatalf("picked incomplete question: %+v", q)
		}
		seen[q.FieldID] = struct{}{}
	}
	if len(seen) != 3 {
		t.Fatalf("random pick over 200 draws hit %d of 3 questions", len(seen))
	}
}

func TestPickDisplayQuestionFallback(t *testing.T) {
	store := &fakeStore{}
	r := New(store, staticTTL(time.Hour))

	q := r.PickDisplayQuestion(context.Background())
	if !strings.HasPrefix(q.FieldID, "field_fallback_") {
		t.Fatalf("fallback field id = %q, want field_fallback_ prefix", q.FieldID)
	}
	if q.Question != FallbackQuestion.Question {
		t.Fatalf("fallback question = %q, want %q", q.Question, FallbackQuestion.Question)
	}
}
