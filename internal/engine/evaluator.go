// Package engine evaluates form submissions against the honeypot decoy
// registry, the block list and the attempt log, producing a Decision.
package engine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"hivetrap/internal/config"
	"hivetrap/internal/domain"
	"hivetrap/internal/risk"
)

// UnknownIP is recorded when the client address could not be determined.
const UnknownIP = "UNKNOWN"

// TriggeredCountryBlock marks attempts rejected by country rules rather
// than by a decoy field.
const TriggeredCountryBlock = "country_block"

// Field is a single submitted form field. Fields keep their submission
// order so the first filled decoy wins deterministically.
type Field struct {
	Key   string
	Value string
}

// Submission carries everything the evaluator needs about one inbound
// form post. CountryCode is resolved by the caller and may be "XX" when
// unknown.
type Submission struct {
	FormID      int64
	Fields      []Field
	IP          string
	Email       string
	UserAgent   string
	ReferrerURL string
	CountryCode string
}

// DecoyRegistry supplies the currently valid decoy field identifiers.
type DecoyRegistry interface {
	FieldIDs(ctx context.Context) map[string]struct{}
}

// AttemptLog records spam attempts and answers windowed counts.
type AttemptLog interface {
	Record(ctx context.Context, attempt *domain.SpamAttempt) error
	CountByIP(ctx context.Context, ip string, window time.Duration) (int64, error)
	CountByEmail(ctx context.Context, email string, window time.Duration) (int64, error)
}

// BlockList answers and mutates per-IP blocks.
type BlockList interface {
	IsBlocked(ctx context.Context, ip string) bool
	ShouldBlock(ctx context.Context, ip string, threshold int, window time.Duration) bool
	Block(ctx context.Context, ip string, ttlHours int) error
}

type Evaluator struct {
	registry DecoyRegistry
	attempts AttemptLog
	blocks   BlockList
}

func New(registry DecoyRegistry, attempts AttemptLog, blocks BlockList) *Evaluator {
	return &Evaluator{
		registry: registry,
		attempts: attempts,
		blocks:   blocks,
	}
}

// Evaluate runs the ordered checks for one submission. First match wins:
// blocked IP, blocked country, tripped decoy field, allow. Side effects
// (log write, possible block escalation) only happen for country and
// decoy rejections; repeat submissions from an already blocked IP are
// rejected without another log row.
func (e *Evaluator) Evaluate(ctx context.Context, s Submission) Decision {
	ip := s.IP
	if ip == "" {
		ip = UnknownIP
	}

	if e.blocks.IsBlocked(ctx, ip) {
		return Decision{Kind: BlockedIP}
	}

	if config.IsCountryBlocked(s.CountryCode) {
		score := e.recordAttempt(ctx, s, ip, TriggeredCountryBlock)
		e.maybeEscalate(ctx, ip)
		return Decision{Kind: BlockedCountry, TriggeredField: TriggeredCountryBlock, RiskScore: score}
	}

	decoys := e.registry.FieldIDs(ctx)
	for _, field := range s.Fields {
		if field.Value == "" {
			continue
		}
		if _, ok := decoys[field.Key]; !ok {
			continue
		}

		score := e.recordAttempt(ctx, s, ip, field.Key)
		e.maybeEscalate(ctx, ip)
		return Decision{Kind: Spam, TriggeredField: field.Key, RiskScore: score}
	}

	return Decision{Kind: Allow}
}

// recordAttempt scores the attempt from recent activity and appends it
// to the log. Count failures degrade to zero so a storage hiccup lowers
// the score instead of failing the rejection; a failed log write is
// reported but never turns a rejection back into an allow.
func (e *Evaluator) recordAttempt(ctx context.Context, s Submission, ip, triggeredField string) int {
	window := config.GetRiskWindow()

	ipCount, err := e.attempts.CountByIP(ctx, ip, window)
	if err != nil {
		log.Warn("Counting attempts by IP failed, scoring without it", "ip", ip, "error", err)
		ipCount = 0
	}

	emailCount, err := e.attempts.CountByEmail(ctx, s.Email, window)
	if err != nil {
		log.Warn("Counting attempts by email failed, scoring without it", "error", err)
		emailCount = 0
	}

	thresholds := config.GetConfig().Risk.Thresholds.Normalize()
	score := risk.Score(thresholds, int(ipCount), int(emailCount))

	attempt := &domain.SpamAttempt{
		FormID:         s.FormID,
		IP:             ip,
		Email:          s.Email,
		UserAgent:      s.UserAgent,
		ReferrerURL:    s.ReferrerURL,
		TriggeredField: triggeredField,
		RiskScore:      uint8(score),
	}
	if err := e.attempts.Record(ctx, attempt); err != nil {
		log.Error("Recording spam attempt failed", "ip", ip, "field", triggeredField, "error", err)
	}

	return score
}

// maybeEscalate blocks the IP when auto blocking is enabled and the
// attempt count inside the block window has reached the threshold.
func (e *Evaluator) maybeEscalate(ctx context.Context, ip string) {
	cfg := config.GetConfig()
	if !cfg.Protection.AutoBlock {
		return
	}

	if !e.blocks.ShouldBlock(ctx, ip, cfg.Protection.BlockThreshold, config.GetBlockWindow()) {
		return
	}

	if err := e.blocks.Block(ctx, ip, config.BlockDurationHours()); err != nil {
		log.Error("Auto blocking IP failed", "ip", ip, "error", err)
	}
}
