// Package registry caches the working set of decoy field identifiers.
//
// The persistent question table is the source of truth; a TTL cache in
// front of it keeps submission handling free of per-request storage reads.
// When a reload fails the registry serves an empty set: submissions pass
// through undetected for that request rather than all traffic being
// rejected. That trade-off (availability over detection completeness) is
// deliberate and mirrors the block list's fail-open policy.
package registry

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"hivetrap/internal/database"
	"hivetrap/internal/domain"
)

// FallbackQuestion is served when the registry is empty so a form render
// never goes out without a decoy.
var FallbackQuestion = domain.HoneypotQuestion{
	Question: "What is 2 + 2?",
	Answer:   "4",
}

// Store loads the decoy question set from persistent storage.
type Store interface {
	ListHoneypotQuestions(ctx context.Context) ([]domain.HoneypotQuestion, error)
}

type dbStore struct {
	db *gorm.DB
}

func (s dbStore) ListHoneypotQuestions(ctx context.Context) ([]domain.HoneypotQuestion, error) {
	return database.ListHoneypotQuestions(ctx, s.db)
}

// NewDBStore adapts a gorm handle to the registry's Store interface.
func NewDBStore(db *gorm.DB) Store {
	return dbStore{db: db}
}

type snapshot struct {
	ids       map[string]struct{}
	questions []domain.HoneypotQuestion
	expires   time.Time
}

// Registry is the shared, read-mostly decoy cache. Concurrent readers and
// the occasional racing reload are fine: reloads are idempotent and the
// last writer wins.
type Registry struct {
	store  Store
	ttl    func() time.Duration
	cached atomic.Value
	reload singleflight.Group
	now    func() time.Time
}

// New builds a registry over store. ttl is read per refresh so a
// configuration change applies on the next reload.
func New(store Store, ttl func() time.Duration) *Registry {
	r := &Registry{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
	r.cached.Store(snapshot{})
	return r
}

// FieldIDs returns the current set of decoy field identifiers. Callers
// must treat the map as read-only.
func (r *Registry) FieldIDs(ctx context.Context) map[string]struct{} {
	return r.current(ctx).ids
}

// Questions returns the current decoy question set for rendering.
func (r *Registry) Questions(ctx context.Context) []domain.HoneypotQuestion {
	return r.current(ctx).questions
}

// PickDisplayQuestion chooses one decoy uniformly at random for injection
// into an outgoing form, falling back to a generated decoy when the
// registry is empty or unreadable.
func (r *Registry) PickDisplayQuestion(ctx context.Context) domain.HoneypotQuestion {
	questions := r.Questions(ctx)
	if len(questions) == 0 {
		fallback := FallbackQuestion
		fallback.FieldID = fmt.Sprintf("field_fallback_%d", 1000+rand.Intn(9000))
		return fallback
	}
	return questions[rand.Intn(len(questions))]
}

// Invalidate drops the cache. It must be called whenever the question set
// changes so the next read reflects storage regardless of remaining TTL.
func (r *Registry) Invalidate() {
	r.cached.Store(snapshot{})
}

func (r *Registry) current(ctx context.Context) snapshot {
	if snap, ok := r.cached.Load().(snapshot); ok && snap.ids != nil && r.now().Before(snap.expires) {
		return snap
	}

	result, err, _ := r.reload.Do("reload", func() (interface{}, error) {
		questions, err := r.store.ListHoneypotQuestions(ctx)
		if err != nil {
			return snapshot{}, err
		}

		ids := make(map[string]struct{}, len(questions))
		for _, q := range questions {
			ids[q.FieldID] = struct{}{}
		}

		snap := snapshot{
			ids:       ids,
			questions: questions,
			expires:   r.now().Add(r.ttl()),
		}
		r.cached.Store(snap)
		return snap, nil
	})
	if err != nil {
		// Fail open: no detection this request, but submissions keep flowing.
		log.Warn("Decoy registry reload failed, serving empty set", "error", err)
		return snapshot{ids: map[string]struct{}{}}
	}
	return result.(snapshot)
}
