// Package risk turns recent submission velocity into a 0-100 score.
//
// Two independent signals contribute: IP velocity (up to 60 points across a
// warn and a flood threshold) and email velocity (up to 40 points the same
// way). The thresholds are coarse on purpose so an operator can reproduce
// any score by hand from the attempt log.
package risk

// Thresholds are the attempt counts above which each weight is added.
// They are configuration input, not constants; DefaultThresholds matches
// the shipped settings file.
type Thresholds struct {
	IPWarn     int `json:"ip_warn"`
	IPFlood    int `json:"ip_flood"`
	EmailWarn  int `json:"email_warn"`
	EmailFlood int `json:"email_flood"`
}

// DefaultThresholds is used wherever configuration supplies none.
var DefaultThresholds = Thresholds{
	IPWarn:     5,
	IPFlood:    10,
	EmailWarn:  3,
	EmailFlood: 7,
}

const (
	ipWarnWeight     = 30
	ipFloodWeight    = 30
	emailWarnWeight  = 20
	emailFloodWeight = 20

	// MaxScore caps the sum; the raw maximum would be 120.
	MaxScore = 100
)

// Normalize replaces non-positive thresholds with the defaults so a
// hand-edited settings file cannot disable scoring by accident.
func (t Thresholds) Normalize() Thresholds {
	if t.IPWarn <= 0 {
		t.IPWarn = DefaultThresholds.IPWarn
	}
	if t.IPFlood <= 0 {
		t.IPFlood = DefaultThresholds.IPFlood
	}
	if t.EmailWarn <= 0 {
		t.EmailWarn = DefaultThresholds.EmailWarn
	}
	if t.EmailFlood <= 0 {
		t.EmailFlood = DefaultThresholds.EmailFlood
	}
	return t
}

// Score computes the risk score for one detected attempt given the number
// of attempts recorded for the same IP and email over the scoring window.
// A missing email signal (count 0) simply contributes nothing.
func Score(t Thresholds, ipAttempts, emailAttempts int) int {
	t = t.Normalize()

	score := 0
	if ipAttempts > t.IPWarn {
		score += ipWarnWeight
	}
	if ipAttempts > t.IPFlood {
		score += ipFloodWeight
	}
	if emailAttempts > t.EmailWarn {
		score += emailWarnWeight
	}
	if emailAttempts > t.EmailFlood {
		score += emailFloodWeight
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}
