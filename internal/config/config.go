// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (LANTERN_* plus DATABASE_URL)
//  2. Config file (./config.yaml or /etc/lantern/config.yaml)
//  3. Default values
//
// Main categories:
//   - AI: generation/embedding provider and models
//   - RAG: chunking parameters and retrieval limit
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: listen address, admin token, rate limits
//   - Tracing: optional OTLP trace export
//
// Validation lives in validation.go and uses sentinel errors so callers can
// branch with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration problems.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder produces vectors
	// incompatible with the stored vector schema.
	ErrInvalidEmbedderDimension = errors.New("incompatible embedder dimension")

	// ErrInvalidChunkSize indicates the ingestion chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the overlap is negative or >= chunk size.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidSearchLimit indicates the retrieval limit is out of range.
	ErrInvalidSearchLimit = errors.New("invalid search limit")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidListenAddr indicates the server listen address is invalid.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrMissingAdminToken indicates admin endpoints are enabled without a token.
	ErrMissingAdminToken = errors.New("missing admin token")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"

	// ProviderMock wires deterministic in-process embedding and generation
	// doubles. Meant for local development and pipelines with no network.
	ProviderMock = "mock"
)

// VectorDimension is the embedding dimension of the documents table.
// Fixed at deployment time by the schema; ingestion and query embeddings
// must both produce vectors of this length.
const VectorDimension = 384

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider"`       // "googleai" (default), "ollama", "mock"
	ModelName     string `mapstructure:"model_name"`     // provider-qualified generation model
	EmbedderModel string `mapstructure:"embedder_model"` // embedding model identifier
	OllamaHost    string `mapstructure:"ollama_host"`    // only used when provider is "ollama"

	// RAG configuration
	ChunkSize    int `mapstructure:"chunk_size"`    // characters per ingested chunk
	ChunkOverlap int `mapstructure:"chunk_overlap"` // characters shared by consecutive chunks
	SearchLimit  int `mapstructure:"search_limit"`  // top-K documents fed into the prompt

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Server configuration
	ListenAddr string `mapstructure:"listen_addr"`
	AdminToken string `mapstructure:"admin_token"` // bearer token for project CRUD and conversation listing

	// Per-API-key rate limiting for ingestion and chat.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`

	// Tracing configuration (optional OTLP export)
	Tracing TracingConfig `mapstructure:"tracing"`

	// Logging
	LogJSON  bool   `mapstructure:"log_json"`
	LogLevel string `mapstructure:"log_level"` // debug|info|warn|error
}

// TracingConfig configures OTLP HTTP trace export. Empty endpoint disables it.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"` // host:port of the OTLP collector
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// Load loads configuration.
// Priority: Environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/lantern")

	setDefaults(v)

	v.SetEnvPrefix("LANTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults plus env apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "googleai/gemini-2.5-flash")
	v.SetDefault("embedder_model", "text-embedding-004")
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("search_limit", 4)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lantern")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "lantern")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("admin_token", "")

	v.SetDefault("rate_per_second", 5.0)
	v.SetDefault("rate_burst", 10)

	v.SetDefault("log_json", false)
	v.SetDefault("log_level", "info")
}

// SlogLevel maps the configured log level string to a slog.Level.
// Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
