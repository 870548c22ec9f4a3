package config

import (
	"fmt"
	"net"
)

// Validate checks the configuration for invalid values.
// All returned errors wrap one of the package sentinel errors so callers can
// branch with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGoogleAI, ProviderOllama, ProviderMock:
	default:
		return fmt.Errorf("%w: %q (supported: googleai, ollama, mock)", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.ChunkSize < 1 || c.ChunkSize > 100_000 {
		return fmt.Errorf("%w: must be between 1 and 100000, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: cannot be negative, got %d", ErrInvalidChunkOverlap, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			ErrInvalidChunkOverlap, c.ChunkOverlap, c.ChunkSize)
	}
	if c.SearchLimit < 1 || c.SearchLimit > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidSearchLimit, c.SearchLimit)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidListenAddr, c.ListenAddr, err)
	}

	return nil
}
