package dto

// SubmissionField is one submitted form field. Fields arrive as an
// ordered list so the engine sees them in the order the form posted
// them.
type SubmissionField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type SubmissionRequest struct {
	FormID      int64             `json:"form_id"`
	Fields      []SubmissionField `json:"fields"`
	Email       string            `json:"email,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	ReferrerURL string            `json:"referrer_url,omitempty"`
}

type DecisionResponse struct {
	Decision       string `json:"decision"`
	TriggeredField string `json:"triggered_field,omitempty"`
	RiskScore      int    `json:"risk_score"`
}

type DisplayQuestion struct {
	FieldID  string `json:"field_id"`
	Question string `json:"question"`
}
