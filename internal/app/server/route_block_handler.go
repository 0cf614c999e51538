package server

import (
	"encoding/json"
	"net"
	"net/http"

	"hivetrap/internal/api/dto"
	"hivetrap/internal/database"
)

func (a *API) listBlockedIPs(w http.ResponseWriter, r *http.Request) {
	entries, err := database.ListBlockedIPs(r.Context(), a.DB)
	if err != nil {
		writeError(w, "Failed to query database", http.StatusInternalServerError)
		return
	}

	out := make([]dto.BlockedIPInfo, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.BlockedIPInfo{
			IP:        entry.IP,
			BlockedAt: entry.BlockedAt,
			TTLHours:  entry.TTLHours,
			ExpiresAt: entry.ExpiresAt(),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (a *API) blockIP(w http.ResponseWriter, r *http.Request) {
	var req dto.BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if net.ParseIP(req.IP) == nil {
		writeError(w, "Invalid IP address", http.StatusBadRequest)
		return
	}

	if err := a.Blocks.Block(r.Context(), req.IP, req.TTLHours); err != nil {
		writeError(w, "Failed to block IP", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (a *API) unblockIP(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	if ip == "" {
		writeError(w, "Missing IP", http.StatusBadRequest)
		return
	}

	if err := a.Blocks.Unblock(r.Context(), ip); err != nil {
		writeError(w, "Failed to unblock IP", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
