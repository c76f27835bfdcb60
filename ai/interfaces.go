package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// Embedder failures are non-fatal by contract: callers store chunks without
// vectors and fall back to hash-only answer matching. Implementations do not
// retry internally; retry policy belongs to callers, since embedding sits on
// the hot path of answering a live chat message.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error wrapping ErrEmbeddingUnavailable if the provider
	// fails or times out.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error wrapping ErrEmbeddingUnavailable if any embedding fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates chat answers from a knowledge context.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete generates a full answer for the request.
	// The caller bounds the call with a context deadline; on expiry the
	// returned error wraps ErrCompletionTimeout.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// CompleteStream generates an answer incrementally. The returned channel
	// yields text chunks as they arrive and is closed after a final chunk
	// with Done set. A mid-stream provider failure is delivered on the
	// final chunk's Err field.
	CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the answer generation service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
