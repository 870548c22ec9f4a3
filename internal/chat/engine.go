package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/lanternai/lantern/internal/knowledge"
	"github.com/lanternai/lantern/internal/project"
	"github.com/lanternai/lantern/internal/session"
)

// defaultSystemPrompt is used when a project has no system prompt configured.
const defaultSystemPrompt = "You are a helpful AI assistant."

// HandleMessage processes one inbound chat message through the full turn:
//
//  1. Resolve the project and session. An unknown project aborts the turn
//     with an error frame; nothing is persisted.
//  2. Persist the user message. The latency epoch starts here.
//  3. Retrieve knowledge context, best effort. A retrieval failure degrades
//     to an empty context, it never fails the turn.
//  4. Stream the model response, emitting a token frame per non-empty
//     fragment. The first non-empty fragment fixes the first-token latency.
//  5. Finalize exactly once: persist the assistant message, record latency
//     in the session metadata, and emit the terminal frame. This runs on
//     the success, degraded, and error paths alike.
//
// Every processed message ends with a done frame; an error turn sends an
// error frame first. HandleMessage returns the persisted turn and the
// generation error, if any, so the transport can log it. A non-nil Turn
// with a non-nil error means the turn finalized in degraded form.
func (e *Engine) HandleMessage(ctx context.Context, projectID, sessionID uuid.UUID, message string, emit EmitFunc) (*Turn, error) {
	if strings.TrimSpace(message) == "" {
		e.emitErrorDone(emit, "message cannot be empty", "")
		return nil, ErrEmptyMessage
	}

	proj, err := e.projects.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			e.emitErrorDone(emit, "project not found", "")
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		e.emitErrorDone(emit, "internal error", "")
		return nil, fmt.Errorf("resolving project %s: %w", projectID, err)
	}

	sess, err := e.sessions.GetOrCreate(ctx, projectID, sessionID)
	if err != nil {
		e.emitErrorDone(emit, "internal error", "")
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	turn := &Turn{Session: sess}

	userMsg, err := e.sessions.AppendMessage(ctx, sess.ID, session.RoleUser, message)
	if err != nil {
		e.emitErrorDone(emit, "internal error", sess.ID.String())
		return turn, fmt.Errorf("persisting user message: %w", err)
	}
	turn.UserMessage = userMsg

	// Latency epoch: after the user message is durable, before retrieval.
	t0 := time.Now()

	var (
		accumulated strings.Builder
		firstToken  time.Duration
		genErr      error
	)
	// Guaranteed cleanup: once the user message is persisted, the turn
	// always finalizes, whether generation succeeds, degrades, or panics.
	defer func() {
		e.finalize(ctx, turn, accumulated.String(), firstToken, genErr, emit)
	}()

	results, err := e.retriever.Search(ctx, projectID, message, e.searchLimit)
	if err != nil {
		e.logger.Warn("context retrieval failed, continuing without context",
			"project_id", projectID, "session_id", sess.ID, "error", err)
		results = nil
	}

	systemPrompt := proj.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	if block := contextBlock(results); block != "" {
		systemPrompt += "\n\nRelevant Context:\n" + block + "\n\nAnswer based on the context above."
	}

	streamCb := func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
		text := chunk.Text()
		if text == "" {
			return nil
		}
		if firstToken == 0 {
			firstToken = time.Since(t0)
		}
		accumulated.WriteString(text)
		return emit(Frame{Type: FrameToken, Content: text})
	}

	var resp *ai.ModelResponse
	resp, genErr = genkit.Generate(ctx, e.g,
		ai.WithModelName(e.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(ai.NewUserTextMessage(message)),
		ai.WithStreaming(streamCb),
	)

	// Some backends return the full text without invoking the stream
	// callback. Treat that as a single fragment.
	if genErr == nil && accumulated.Len() == 0 && resp != nil {
		if text := resp.Text(); text != "" {
			firstToken = time.Since(t0)
			accumulated.WriteString(text)
			if err := emit(Frame{Type: FrameToken, Content: text}); err != nil {
				e.logger.Debug("emitting buffered response", "error", err)
			}
		}
	}

	if genErr != nil {
		return turn, fmt.Errorf("%w: %v", ErrGenerationFailed, genErr)
	}
	return turn, nil
}

// finalize persists the assistant message, records latency, and emits the
// terminal frames. It runs exactly once per turn, on every branch that got
// past user-message persistence. Storage failures here are logged and
// swallowed so the transport always receives its done frame.
func (e *Engine) finalize(ctx context.Context, turn *Turn, accumulated string, firstToken time.Duration, genErr error, emit EmitFunc) {
	// The client may already be gone on the error path; finalization still
	// has to persist the turn.
	ctx = context.WithoutCancel(ctx)

	content := strings.TrimSpace(accumulated)
	if content == "" && genErr != nil {
		content = fmt.Sprintf("Error generating response: %v", genErr)
	}

	assistantMsg, err := e.sessions.AppendMessage(ctx, turn.Session.ID, session.RoleAssistant, content)
	if err != nil {
		e.logger.Error("persisting assistant message",
			"session_id", turn.Session.ID, "error", err)
	} else {
		turn.AssistantMessage = assistantMsg
	}

	if firstToken > 0 {
		turn.FirstTokenMillis = firstToken.Milliseconds()
		if err := e.sessions.RecordLatency(ctx, turn.Session.ID, turn.FirstTokenMillis); err != nil {
			e.logger.Error("recording response latency",
				"session_id", turn.Session.ID, "error", err)
		}
	}

	if genErr != nil {
		e.emitErrorDone(emit, "generation failed", turn.Session.ID.String())
		return
	}
	e.emitDone(emit, turn.Session.ID.String())
}

func (e *Engine) emitErrorDone(emit EmitFunc, message, sessionID string) {
	if err := emit(Frame{Type: FrameError, Error: message}); err != nil {
		e.logger.Debug("emitting error frame", "error", err)
	}
	e.emitDone(emit, sessionID)
}

func (e *Engine) emitDone(emit EmitFunc, sessionID string) {
	if err := emit(Frame{Type: FrameDone, SessionID: sessionID}); err != nil {
		e.logger.Debug("emitting done frame", "error", err)
	}
}

// contextBlock formats retrieved chunks for prompt injection, each chunk
// delimited so the model can tell document boundaries apart.
func contextBlock(results []knowledge.Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = "---\n" + r.Content + "\n---"
	}
	return strings.Join(parts, "\n")
}
