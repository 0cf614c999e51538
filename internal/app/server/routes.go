package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"hivetrap/internal/attemptlog"
	"hivetrap/internal/auth"
	"hivetrap/internal/blocklist"
	"hivetrap/internal/engine"
	"hivetrap/internal/geo"
	"hivetrap/internal/registry"
)

// API bundles the engine components the handlers operate on. Country
// resolution is injectable so tests do not need a GeoLite database.
type API struct {
	DB             *gorm.DB
	Evaluator      *engine.Evaluator
	Registry       *registry.Registry
	Attempts       *attemptlog.Log
	Blocks         *blocklist.List
	ResolveCountry func(ip string) string
}

func NewAPI(db *gorm.DB, evaluator *engine.Evaluator, reg *registry.Registry, attempts *attemptlog.Log, blocks *blocklist.List) *API {
	return &API{
		DB:             db,
		Evaluator:      evaluator,
		Registry:       reg,
		Attempts:       attempts,
		Blocks:         blocks,
		ResolveCountry: geo.ResolveCountry,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *API) Routes() http.Handler {
	router := http.NewServeMux()

	// Form pipeline endpoints, called by the protected site itself.
	router.HandleFunc("POST /evaluate", a.evaluateSubmission)
	router.HandleFunc("GET /honeypot/question", a.getDisplayQuestion)

	router.HandleFunc("GET /version", getVersion)

	router.HandleFunc("POST /register", a.registerUser)
	router.HandleFunc("POST /login", a.loginUser)
	router.Handle("GET /checkLogin", auth.RequireAuth(http.HandlerFunc(checkLogin)))
	router.Handle("POST /changePassword", auth.RequireAuth(http.HandlerFunc(a.changePassword)))

	router.Handle("GET /getDashboardInfo", auth.RequireAuth(http.HandlerFunc(a.getDashboardInfo)))
	router.Handle("GET /stats/daily", auth.RequireAuth(http.HandlerFunc(a.getDailySummaries)))
	router.Handle("GET /stats/attempts/{page}", auth.RequireAuth(http.HandlerFunc(a.getAttemptPage)))
	router.Handle("POST /stats/purge", auth.IsAdmin(http.HandlerFunc(a.purgeAttempts)))

	router.Handle("GET /blocklist", auth.RequireAuth(http.HandlerFunc(a.listBlockedIPs)))
	router.Handle("POST /blocklist", auth.IsAdmin(http.HandlerFunc(a.blockIP)))
	router.Handle("DELETE /blocklist/{ip}", auth.IsAdmin(http.HandlerFunc(a.unblockIP)))

	router.Handle("GET /questions", auth.RequireAuth(http.HandlerFunc(a.getQuestions)))
	router.Handle("POST /questions", auth.IsAdmin(http.HandlerFunc(a.saveQuestions)))

	router.Handle("GET /global/settings", auth.IsAdmin(http.HandlerFunc(getGlobalSettings)))
	router.Handle("POST /saveSettings", auth.IsAdmin(http.HandlerFunc(a.saveSettings)))

	return enableCORS(router)
}

func (a *API) OpenRoutes(port int) error {
	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: a.Routes(),
	}

	log.Infof("Starting hivetrap backend on port :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
