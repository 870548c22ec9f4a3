package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lanternai/lantern/db"
	"github.com/lanternai/lantern/internal/config"
	"github.com/lanternai/lantern/internal/log"
)

// provideTracing sets up OTLP HTTP trace export and returns a shutdown
// function. An empty endpoint disables tracing; the returned function is
// then a no-op.
//
// Spans are exported to a local collector over OTLP HTTP. The collector
// handles authentication, buffering, and forwarding to the backend.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	tc := cfg.Tracing
	if tc.Endpoint == "" {
		logger.Debug("tracing disabled, no endpoint configured")
		return func() {}
	}

	// SAFETY: os.Setenv is not concurrent-safe, but this runs exactly once
	// during startup, before goroutines are spawned. Genkit's
	// TracerProvider picks these up.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(tc.Endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", tc.Endpoint,
		"service", tc.ServiceName,
		"environment", tc.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
