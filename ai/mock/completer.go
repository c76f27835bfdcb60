package mock

import (
	"context"

	"github.com/answerdesk/answerdesk/ai"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns a canned answer echoing the question.
	CompleteFunc func(ctx context.Context, req ai.CompletionRequest) (string, error)

	// CompleteStreamFunc is called by CompleteStream if set.
	// If nil, streams the canned answer in a single chunk.
	CompleteStreamFunc func(ctx context.Context, req ai.CompletionRequest) (<-chan ai.StreamChunk, error)

	callCount int
	requests  []ai.CompletionRequest
}

// NewMockCompleter creates a mock completer with default canned behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete returns the injected answer or a canned one.
func (m *MockCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	m.callCount++
	m.requests = append(m.requests, req)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}

	return "mock answer to: " + req.Question, nil
}

// CompleteStream streams the injected or canned answer.
func (m *MockCompleter) CompleteStream(ctx context.Context, req ai.CompletionRequest) (<-chan ai.StreamChunk, error) {
	m.callCount++
	m.requests = append(m.requests, req)

	if m.CompleteStreamFunc != nil {
		return m.CompleteStreamFunc(ctx, req)
	}

	ch := make(chan ai.StreamChunk, 2)
	ch <- ai.StreamChunk{Content: "mock answer to: " + req.Question}
	ch <- ai.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

// CallCount returns the number of times any method was called.
func (m *MockCompleter) CallCount() int {
	return m.callCount
}

// LastRequest returns the most recent request, or a zero value if none.
func (m *MockCompleter) LastRequest() ai.CompletionRequest {
	if len(m.requests) == 0 {
		return ai.CompletionRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears the call count, recorded requests, and injected behavior.
func (m *MockCompleter) Reset() {
	m.callCount = 0
	m.requests = nil
	m.CompleteFunc = nil
	m.CompleteStreamFunc = nil
}
