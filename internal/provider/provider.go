// Package provider wires the configured AI backend into Genkit and exposes
// the generation model name and embedder the rest of the application uses.
//
// Three backends are supported:
//   - googleai: Gemini models via the Google AI plugin (default)
//   - ollama: a local Ollama server, models registered explicitly
//   - mock: deterministic in-process doubles, no network
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/lanternai/lantern/internal/config"
	"github.com/lanternai/lantern/internal/log"
)

// ErrUnavailable indicates the provider could not be initialized, usually a
// missing API key or an unreachable Ollama server.
var ErrUnavailable = errors.New("provider unavailable")

// mockModelName is the Genkit registration name of the mock chat model.
const mockModelName = "mock/chat-model"

// Provider bundles the initialized Genkit instance with the model name and
// embedder resolved from configuration.
type Provider struct {
	Genkit *genkit.Genkit

	// ModelName is passed to generation calls via ai.WithModelName.
	ModelName string

	// Embedder produces vectors for ingestion and retrieval queries.
	Embedder ai.Embedder
}

// New initializes Genkit with the configured backend and resolves the
// generation model and embedder.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*Provider, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return newOllama(ctx, cfg, logger)
	case config.ProviderMock:
		return newMock(ctx, cfg, logger)
	default:
		return newGoogleAI(ctx, cfg, logger)
	}
}

func newGoogleAI(ctx context.Context, cfg *config.Config, logger log.Logger) (*Provider, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, fmt.Errorf("%w: initializing genkit with googleai", ErrUnavailable)
	}

	logger.Info("initialized googleai provider",
		"model", cfg.ModelName, "embedder", cfg.EmbedderModel)

	return &Provider{
		Genkit:    g,
		ModelName: cfg.ModelName,
		Embedder:  googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel),
	}, nil
}

func newOllama(ctx context.Context, cfg *config.Config, logger log.Logger) (*Provider, error) {
	plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
	g := genkit.Init(ctx, genkit.WithPlugins(plugin))
	if g == nil {
		return nil, fmt.Errorf("%w: initializing genkit with ollama", ErrUnavailable)
	}

	// Ollama requires explicit registration (no auto-discovery).
	plugin.DefineModel(g, ollama.ModelDefinition{
		Name: cfg.ModelName,
		Type: "chat",
	}, nil)
	plugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)

	logger.Info("initialized ollama provider",
		"model", cfg.ModelName, "host", cfg.OllamaHost)

	return &Provider{
		Genkit:    g,
		ModelName: cfg.ModelName,
		Embedder:  ollama.Embedder(g, cfg.OllamaHost),
	}, nil
}

func newMock(ctx context.Context, cfg *config.Config, logger log.Logger) (*Provider, error) {
	g := genkit.Init(ctx)
	if g == nil {
		return nil, fmt.Errorf("%w: initializing genkit for mock provider", ErrUnavailable)
	}

	registerMockModel(g)
	embedder := registerMockEmbedder(g, config.VectorDimension)

	logger.Info("initialized mock provider", "dimension", config.VectorDimension)

	return &Provider{
		Genkit:    g,
		ModelName: mockModelName,
		Embedder:  embedder,
	}, nil
}
