package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"hivetrap/internal/api/dto"
	"hivetrap/internal/engine"
	"hivetrap/internal/geo"
)

const countryLookupTimeout = 500 * time.Millisecond

func (a *API) evaluateSubmission(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	fields := make([]engine.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, engine.Field{Key: f.Key, Value: f.Value})
	}

	ip := clientIP(r)
	email := req.Email
	if email == "" {
		email = sniffEmail(req.Fields)
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	referrer := req.ReferrerURL
	if referrer == "" {
		referrer = r.Referer()
	}

	decision := a.Evaluator.Evaluate(r.Context(), engine.Submission{
		FormID:      req.FormID,
		Fields:      fields,
		IP:          ip,
		Email:       email,
		UserAgent:   userAgent,
		ReferrerURL: referrer,
		CountryCode: a.resolveCountryBounded(ip),
	})

	writeJSON(w, http.StatusOK, dto.DecisionResponse{
		Decision:       string(decision.Kind),
		TriggeredField: decision.TriggeredField,
		RiskScore:      decision.RiskScore,
	})
}

func (a *API) getDisplayQuestion(w http.ResponseWriter, r *http.Request) {
	question := a.Registry.PickDisplayQuestion(r.Context())
	writeJSON(w, http.StatusOK, dto.DisplayQuestion{
		FieldID:  question.FieldID,
		Question: question.Question,
	})
}

// resolveCountryBounded runs the country lookup with a hard deadline so
// a stalled resolver can never delay a submission. Timeouts degrade to
// the unknown country, which is never blocked.
func (a *API) resolveCountryBounded(ip string) string {
	resolve := a.ResolveCountry
	if resolve == nil {
		resolve = geo.ResolveCountry
	}

	done := make(chan string, 1)
	go func() {
		done <- resolve(ip)
	}()

	select {
	case code := <-done:
		return code
	case <-time.After(countryLookupTimeout):
		return geo.UnknownCountry
	}
}

// clientIP picks the first hop of X-Forwarded-For when present, falling
// back to the connection address. Loopback IPv6 is folded into IPv4 so
// local submissions share one block list entry.
func clientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		parts := strings.Split(ip, ",")
		ip = strings.TrimSpace(parts[0])
	}

	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}

	if ip == "::1" {
		ip = "127.0.0.1"
	}
	return ip
}

// sniffEmail pulls an address out of the submitted fields when the
// caller did not pass one explicitly.
func sniffEmail(fields []dto.SubmissionField) string {
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(f.Key), "email") {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}
