// Package server provides the public entry point for initializing the
// sqlsage query service.
//
// This package exists in pkg/ (not internal/) so embedders can compose the
// assembled handler with their own outer middleware.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sqlsage/sqlsage/internal/analyst"
	"github.com/sqlsage/sqlsage/internal/api"
	"github.com/sqlsage/sqlsage/internal/api/handlers"
	"github.com/sqlsage/sqlsage/internal/catalog"
	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/gate"
	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/internal/orchestrator"
	"github.com/sqlsage/sqlsage/internal/store"
	"github.com/sqlsage/sqlsage/internal/telemetry"
)

// Server holds the assembled sqlsage service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Adapter is the configured datastore, nil when DATABASE_URL is unset.
	// Exposed so embedders can close it or swap in a fixture.
	Adapter store.Adapter

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment config and returns a
// ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	// Datastore is optional. Without one, conversational queries still work
	// and data questions fail with a clear error.
	var adapter store.Adapter
	if cfg.Database.URL != "" {
		pg := store.NewPostgres(cfg.Database.URL)
		if err := pg.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Datastore unreachable at startup, continuing anyway")
		}
		adapter = pg
		log.Info().Str("source", pg.Identity()).Msg("✅ Postgres adapter initialized")
	} else {
		log.Info().Msg("No DATABASE_URL set, running without a datastore")
	}

	completer, err := llm.New(cfg.Model.Provider, llm.Settings{
		Model:       cfg.Model.Model,
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init model driver: %w", err)
	}
	log.Info().Str("provider", completer.Kind()).Str("model", cfg.Model.Model).Msg("✅ Model driver initialized")

	suite := analyst.New(completer, analyst.Config{RowLimit: cfg.Engine.RowLimit})
	cache := catalog.NewCache(cfg.Database.CatalogTTL)
	orch := orchestrator.New(suite, gate.New(adapter), adapter, cache, orchestrator.Config{
		MaxIterations:            cfg.Engine.MaxIterations,
		OptimisticClassification: cfg.Engine.OptimisticClassification,
		OptimisticEvaluation:     cfg.Engine.OptimisticEvaluation,
	})
	log.Info().Int("max_iterations", cfg.Engine.MaxIterations).Msg("✅ Orchestrator initialized")

	h := handlers.New(orch, cache, adapter)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Adapter:      adapter,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
