// ABOUTME: Assistant bridge calling an OpenAI-compatible completion service
// ABOUTME: Stateless adapter - one system framing plus the user's text per call

package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyReply is returned when the completion service answers
// successfully but produces no usable text.
var ErrEmptyReply = errors.New("assistant returned an empty reply")

// defaultSystemPrompt frames every completion call. The bridge keeps no
// history window: each call carries this framing plus the user's text as
// the sole conversational turn.
const defaultSystemPrompt = "You are a helpful assistant participating in a text conversation. " +
	"Reply to the user's message conversationally and concisely."

// CompletionModel is the slice of the langchaingo model surface the
// bridge needs. Satisfied by *openai.LLM and by test fakes.
type CompletionModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Config holds the completion service connection settings.
type Config struct {
	BaseURL      string // optional: OpenAI-compatible endpoint override
	APIKey       string
	Model        string
	SystemPrompt string // optional: overrides the default framing
}

// Bridge adapts an outbound user message into an assistant reply.
// It holds no conversational state.
type Bridge struct {
	model        CompletionModel
	systemPrompt string
	logger       *slog.Logger
}

// New creates a bridge backed by an OpenAI-compatible completion service.
func New(cfg Config, logger *slog.Logger) (*Bridge, error) {
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}

	return NewWithModel(model, cfg.SystemPrompt, logger), nil
}

// NewWithModel creates a bridge over an existing model. Used by tests
// and by callers that configure the client themselves.
func NewWithModel(model CompletionModel, systemPrompt string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &Bridge{
		model:        model,
		systemPrompt: systemPrompt,
		logger:       logger.With("component", "assistant"),
	}
}

// Respond invokes the completion service with the user's text and
// returns the generated reply. Any transport failure, non-success
// upstream response, or empty/malformed reply is reported as an error;
// the caller decides whether to log or drop. The call is bounded by ctx.
func (b *Bridge) Respond(ctx context.Context, userText string) (string, error) {
	resp, err := b.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, b.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userText),
	})
	if err != nil {
		return "", fmt.Errorf("completion call: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	b.logger.Debug("assistant reply generated", "chars", len(reply))
	return reply, nil
}
