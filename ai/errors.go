package ai

import "errors"

var (
	// ErrEmbeddingUnavailable indicates the embedding provider failed or
	// timed out. Callers treat this as a degraded-mode condition, not a
	// fatal error: chunks are stored without vectors and answer lookups
	// fall back to hash-only matching.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrCompletionFailed indicates the LLM provider returned an error.
	// The failure is retryable at the caller's discretion and is never cached.
	ErrCompletionFailed = errors.New("completion failed")

	// ErrCompletionTimeout indicates the LLM call exceeded its deadline.
	ErrCompletionTimeout = errors.New("completion timed out")

	// ErrEmptyCompletion indicates the provider returned no choices.
	ErrEmptyCompletion = errors.New("completion returned no content")
)
