package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/answerdesk/answerdesk/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete generates a full answer for the request.
func (c *Completer) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	messages := buildMessages(req)

	c.logger.Debug("generating completion",
		"history", len(req.History), "contextChars", len(req.Context))

	resp, err := c.client.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", wrapCompletionErr(err)
	}

	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyCompletion
	}

	answer := strings.TrimSpace(resp.Choices[0].Content)
	if answer == "" {
		return "", ai.ErrEmptyCompletion
	}

	return answer, nil
}

// CompleteStream generates an answer incrementally.
// The returned channel is closed after a final chunk with Done set; a
// mid-stream provider failure is delivered on that chunk's Err field.
func (c *Completer) CompleteStream(ctx context.Context, req ai.CompletionRequest) (<-chan ai.StreamChunk, error) {
	messages := buildMessages(req)
	ch := make(chan ai.StreamChunk, 64)

	go func() {
		defer close(ch)

		_, err := c.client.GenerateContent(ctx, messages,
			llms.WithTemperature(c.temperature),
			llms.WithMaxTokens(c.maxTokens),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case ch <- ai.StreamChunk{Content: string(chunk)}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			ch <- ai.StreamChunk{Done: true, Err: wrapCompletionErr(err)}
			return
		}
		ch <- ai.StreamChunk{Done: true}
	}()

	return ch, nil
}

// buildMessages assembles the chat transcript: system instruction with the
// knowledge context, then recent history, then the visitor question.
func buildMessages(req ai.CompletionRequest) []llms.MessageContent {
	system := req.SystemPrompt
	if req.Context != "" {
		system += "\n\nKnowledge base:\n" + req.Context
	}

	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))

	for _, msg := range req.History {
		role := llms.ChatMessageTypeHuman
		if msg.Role == ai.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}

	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Question))
	return messages
}

func wrapCompletionErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ai.ErrCompletionTimeout, err)
	}
	return fmt.Errorf("%w: %w", ai.ErrCompletionFailed, err)
}
