package bootstrap

import (
	"context"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"hivetrap/internal/attemptlog"
	"hivetrap/internal/blocklist"
	"hivetrap/internal/config"
	"hivetrap/internal/database"
	"hivetrap/internal/engine"
	"hivetrap/internal/registry"
)

// Components holds the wired engine. Everything hangs off the one
// database handle; the evaluator owns no state of its own.
type Components struct {
	DB        *gorm.DB
	Registry  *registry.Registry
	Attempts  *attemptlog.Log
	Blocks    *blocklist.List
	Evaluator *engine.Evaluator
}

func Setup() (*Components, error) {
	config.ReadSettings()

	db, err := database.SetupDB()
	if err != nil {
		return nil, err
	}

	attempts := attemptlog.New(db)
	blocks := blocklist.New(db, attempts)
	reg := registry.New(registry.NewDBStore(db), config.GetRegistryCacheTTL)

	// Registry reloads on configuration changes so a new question pool
	// or TTL does not have to wait out the old cache.
	go func() {
		for range config.ConfigUpdates() {
			reg.Invalidate()
		}
	}()

	warmRegistry(reg)

	return &Components{
		DB:        db,
		Registry:  reg,
		Attempts:  attempts,
		Blocks:    blocks,
		Evaluator: engine.New(reg, attempts, blocks),
	}, nil
}

func warmRegistry(reg *registry.Registry) {
	ids := reg.FieldIDs(context.Background())
	if len(ids) == 0 {
		log.Warn("Decoy registry warmed up empty")
		return
	}
	log.Infof("Decoy registry warmed with %d fields", len(ids))
}
