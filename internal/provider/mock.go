package provider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// registerMockModel registers a deterministic chat model. It echoes the last
// user message back word by word through the streaming callback, which is
// enough to exercise the full chat pipeline without a real backend.
func registerMockModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, mockModelName, &ai.ModelOptions{
		Label: "Mock Chat Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
		},
	}, mockGenerate)
}

func mockGenerate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	response := fmt.Sprintf("You said: %s", userText)

	if cb != nil {
		for _, word := range strings.SplitAfter(response, " ") {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(word)},
			}); err != nil {
				return nil, err
			}
		}
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(response)},
		},
	}, nil
}

// registerMockEmbedder registers a deterministic embedder. Vectors are seeded
// from a SHA-256 hash of the input text, so identical text always embeds to
// the identical vector across runs and processes.
func registerMockEmbedder(g *genkit.Genkit, dim int) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/embedder", &ai.EmbedderOptions{
		Label:      "Mock Embedder",
		Dimensions: dim,
	}, func(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
		embeddings := make([]*ai.Embedding, len(req.Input))
		for i, doc := range req.Input {
			embeddings[i] = &ai.Embedding{
				Embedding: DeterministicVector(documentText(doc), dim),
			}
		}
		return &ai.EmbedResponse{Embeddings: embeddings}, nil
	})
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// DeterministicVector generates a unit vector of the given dimension seeded
// from a SHA-256 hash of content. The same content always produces the same
// vector.
func DeterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
