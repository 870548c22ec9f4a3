// Package app wires configuration, storage, the AI provider, and the HTTP
// server into one runnable unit. Entry points call Setup, then Run, then
// Close.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lanternai/lantern/api"
	"github.com/lanternai/lantern/internal/chat"
	"github.com/lanternai/lantern/internal/chunk"
	"github.com/lanternai/lantern/internal/config"
	"github.com/lanternai/lantern/internal/knowledge"
	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/project"
	"github.com/lanternai/lantern/internal/provider"
	"github.com/lanternai/lantern/internal/session"
	"github.com/lanternai/lantern/internal/sqlc"
)

// App is the assembled application.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool      *pgxpool.Pool
	Provider  *provider.Provider
	Projects  *project.Store
	Sessions  *session.Store
	Knowledge *knowledge.Store
	Engine    *chat.Engine
	Server    *api.Server
	Limiter   *api.RateLimiter

	otelCleanup func()
}

// Setup initializes every component in dependency order. On failure,
// everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first so the provider's TracerProvider is ready before Genkit
	// initializes.
	a.otelCleanup = provideTracing(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	prov, err := provider.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Provider = prov

	querier := sqlc.New(pool)
	a.Projects = project.New(querier, pool, logger)
	a.Sessions = session.New(querier, logger)

	splitter, err := chunk.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating splitter: %w", err)
	}
	a.Knowledge = knowledge.New(querier, prov.Embedder, splitter, logger)

	engine, err := chat.New(chat.Config{
		Genkit:      prov.Genkit,
		ModelName:   prov.ModelName,
		Projects:    a.Projects,
		Sessions:    a.Sessions,
		Retriever:   a.Knowledge,
		SearchLimit: cfg.SearchLimit,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat engine: %w", err)
	}
	a.Engine = engine

	a.Limiter = api.NewRateLimiter(cfg.RatePerSecond, cfg.RateBurst)

	server, err := api.NewServer(api.Config{
		Projects:   a.Projects,
		Sessions:   a.Sessions,
		Knowledge:  a.Knowledge,
		Engine:     a.Engine,
		Pool:       pool,
		AdminToken: cfg.AdminToken,
		Limiter:    a.Limiter,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	a.Server = server

	return a, nil
}

// Run serves HTTP until the context is cancelled. The rate limiter's
// eviction loop runs for the same lifetime.
func (a *App) Run(ctx context.Context) error {
	go a.Limiter.Run(ctx)
	return a.Server.Run(ctx, a.Config.ListenAddr)
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
