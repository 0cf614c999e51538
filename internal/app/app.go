package app

import (
	"context"
	"flag"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"hivetrap/internal/app/bootstrap"
	"hivetrap/internal/app/server"
	"hivetrap/internal/config"
	"hivetrap/internal/geo"
	"hivetrap/internal/jobs/maintenance"
	"hivetrap/internal/support"
)

const defaultBackendPort = 8082

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	log.SetLevel(log.DebugLevel)

	backendPortFlag := flag.Int("backend-port", defaultBackendPort, "Port for API server")
	productionFlag := flag.Bool("production", false, "Run in production mode")
	flag.Parse()

	config.SetProductionMode(*productionFlag)
	if *productionFlag {
		log.SetLevel(log.InfoLevel)
	}

	backendPort := resolvePort("BACKEND_PORT", *backendPortFlag)

	// Redis is optional: without it the instance runs standalone, with
	// local-only configuration and no leader election.
	redisClient, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable, running standalone", "error", err)
		redisClient = nil
	} else {
		defer support.CloseRedisClient()
	}

	components, err := bootstrap.Setup()
	if err != nil {
		log.Fatalf("failed to set up database: %v", err)
	}

	if redisClient != nil {
		config.EnableRedisSynchronization(context.Background(), redisClient)
	}

	go maintenance.StartCleanupRoutine(context.Background(), redisClient, components.DB, components.Attempts)
	go geo.StartUpdateRoutine(context.Background())

	api := server.NewAPI(components.DB, components.Evaluator, components.Registry, components.Attempts, components.Blocks)
	return api.OpenRoutes(backendPort)
}

func resolvePort(envKey string, fallback int) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return fallback
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return fallback
	}
	return port
}
