package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"hivetrap/internal/config"
)

func getGlobalSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.GetConfig())
}

// saveSettings applies an operator configuration update. Country codes
// are normalized to upper case before the blocked list is stored; the
// unknown sentinel is dropped since it can never match.
func (a *API) saveSettings(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		log.Error("Error decoding request body:", err)
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	newConfig.Protection.BlockedCountries = normalizeCountries(newConfig.Protection.BlockedCountries)

	config.SetConfig(newConfig)
	a.Registry.Invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuration updated successfully"})
}

func normalizeCountries(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 2 || code == "XX" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
