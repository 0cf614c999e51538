package engine

// Kind classifies the outcome of evaluating a submission.
type Kind string

const (
	Allow          Kind = "allow"
	BlockedIP      Kind = "reject_blocked_ip"
	BlockedCountry Kind = "reject_blocked_country"
	Spam           Kind = "reject_spam"
)

// Decision is the result of evaluating a single submission. The caller
// is responsible for interpreting reject kinds (skip mail, skip export,
// render an error page); the engine itself only records and blocks.
type Decision struct {
	Kind           Kind
	TriggeredField string
	RiskScore      int
}

// Rejected reports whether the submission should be dropped.
func (d Decision) Rejected() bool {
	return d.Kind != Allow
}
