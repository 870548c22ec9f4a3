package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lanternai/lantern/internal/provider"
)

// ModelName is the registration name of the scripted test model.
const ModelName = "test/chat-model"

// ScriptedModel streams a fixed sequence of fragments per call, optionally
// failing after them. Calls are recorded for assertions.
//
// Thread-safe for concurrent use.
type ScriptedModel struct {
	mu        sync.Mutex
	fragments []string
	failWith  error
	calls     int
}

// NewScriptedModel creates a model double that streams the given fragments.
func NewScriptedModel(fragments ...string) *ScriptedModel {
	return &ScriptedModel{fragments: fragments}
}

// FailWith makes every subsequent generation return err after streaming the
// configured fragments. Use nil to clear.
func (m *ScriptedModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Calls reports how many generations ran.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Register registers the double under ModelName on the given Genkit
// instance.
func (m *ScriptedModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ModelName, &ai.ModelOptions{
		Label:    "Scripted Test Model",
		Supports: &ai.ModelSupports{Multiturn: true, SystemRole: true},
	}, m.generate)
}

func (m *ScriptedModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	m.mu.Lock()
	fragments := m.fragments
	failWith := m.failWith
	m.calls++
	m.mu.Unlock()

	var full strings.Builder
	for _, f := range fragments {
		full.WriteString(f)
		if cb != nil {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(f)},
			}); err != nil {
				return nil, err
			}
		}
	}
	if failWith != nil {
		return nil, failWith
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(full.String())},
		},
	}, nil
}

// NewEmbedder registers a deterministic embedder on the given Genkit
// instance. Identical text always embeds to the identical vector.
func NewEmbedder(g *genkit.Genkit, dim int) ai.Embedder {
	return genkit.DefineEmbedder(g, "test/embedder", &ai.EmbedderOptions{
		Label:      "Deterministic Test Embedder",
		Dimensions: dim,
	}, func(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
		embeddings := make([]*ai.Embedding, len(req.Input))
		for i, doc := range req.Input {
			var sb strings.Builder
			for _, p := range doc.Content {
				if p.Kind == ai.PartText {
					sb.WriteString(p.Text)
				}
			}
			embeddings[i] = &ai.Embedding{
				Embedding: provider.DeterministicVector(sb.String(), dim),
			}
		}
		return &ai.EmbedResponse{Embeddings: embeddings}, nil
	})
}
