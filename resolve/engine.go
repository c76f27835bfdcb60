// Copyright 2025 AnswerDesk Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package resolve

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/answerdesk/answerdesk/ai"
	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

const (
	defaultSemanticThreshold = 0.85
	defaultRetrievalFloor    = 0.35
	defaultMaxTopK           = 8
	defaultMaxContextChars   = 6000
	defaultCompletionTimeout = 30 * time.Second

	defaultSystemPrompt = "You are a helpful customer support assistant. " +
		"Answer the visitor's question using only the provided knowledge context. " +
		"If the context does not contain the answer, say you don't know and suggest contacting support."

	followUpPrompt = "Based on the conversation so far, suggest up to 3 short follow-up " +
		"questions the visitor might ask next. Reply with one question per line and nothing else."
)

// AnswerSource identifies which resolution tier produced an answer.
type AnswerSource int

const (
	// AnswerSourceOverride is a human-authored override answer.
	AnswerSourceOverride AnswerSource = iota + 1
	// AnswerSourceCache is a previously generated cached answer.
	AnswerSourceCache
	// AnswerSourceGenerated is a fresh LLM answer over retrieved knowledge.
	AnswerSourceGenerated
)

// String returns the lowercase name of the answer source.
func (s AnswerSource) String() string {
	switch s {
	case AnswerSourceOverride:
		return "override"
	case AnswerSourceCache:
		return "cache"
	case AnswerSourceGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// Answer is a resolved response to a visitor question.
type Answer struct {
	Text      string
	Source    AnswerSource
	FollowUps []string
	Escalated bool                  // answer admitted inability to help
	Matches   []*storage.ChunkMatch // retrieval context behind a generated answer
}

// Engine resolves visitor questions through tiered lookup: manual
// overrides first, then the automated answer cache, then hybrid
// retrieval over knowledge chunks feeding an LLM completion.
type Engine struct {
	chunks    storage.ChunkRepository
	cache     storage.CacheRepository
	overrides storage.OverrideRepository
	embedder  ai.Embedder
	completer ai.Completer
	pool      *ants.Pool
	logger    *slog.Logger

	semanticThreshold float32
	retrievalFloor    float32
	maxTopK           int
	vectorWeight      float32
	lexicalWeight     float32
	maxContextChars   int
	systemPrompt      string
	escalationPhone   string
	completionTimeout time.Duration
	followUps         bool
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithSemanticThreshold sets the minimum cosine similarity for a cache
// or override paraphrase hit. Default is 0.85.
func WithSemanticThreshold(threshold float32) Option {
	return func(e *Engine) error {
		e.semanticThreshold = threshold
		return nil
	}
}

// WithRetrievalFloor sets the minimum cosine similarity for a chunk to
// enter hybrid ranking. Default is 0.35.
func WithRetrievalFloor(floor float32) Option {
	return func(e *Engine) error {
		e.retrievalFloor = floor
		return nil
	}
}

// WithMaxTopK caps how many chunks feed the completion context.
// Default is 8.
func WithMaxTopK(k int) Option {
	return func(e *Engine) error {
		if k < 1 {
			k = 1
		}
		e.maxTopK = k
		return nil
	}
}

// WithHybridWeights sets the blend between semantic similarity and
// lexical overlap during chunk ranking. Defaults are 0.7 and 0.3.
func WithHybridWeights(vector, lexical float32) Option {
	return func(e *Engine) error {
		e.vectorWeight = vector
		e.lexicalWeight = lexical
		return nil
	}
}

// WithMaxContextChars bounds the knowledge context passed to the model.
// Default is 6000.
func WithMaxContextChars(chars int) Option {
	return func(e *Engine) error {
		if chars < 1 {
			chars = 1
		}
		e.maxContextChars = chars
		return nil
	}
}

// WithSystemPrompt replaces the default system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) error {
		if prompt != "" {
			e.systemPrompt = prompt
		}
		return nil
	}
}

// WithEscalationPhone sets the contact number appended to answers that
// admit inability to help. Empty disables the contact line.
func WithEscalationPhone(phone string) Option {
	return func(e *Engine) error {
		e.escalationPhone = phone
		return nil
	}
}

// WithCompletionTimeout bounds each LLM call. Default is 30s.
func WithCompletionTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout > 0 {
			e.completionTimeout = timeout
		}
		return nil
	}
}

// WithFollowUps toggles asynchronous follow-up question generation for
// freshly cached answers. Default is enabled.
func WithFollowUps(enabled bool) Option {
	return func(e *Engine) error {
		e.followUps = enabled
		return nil
	}
}

// WithPoolSize sets the worker pool size for asynchronous bookkeeping
// (counter bumps, cache writes, follow-up generation).
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// NewEngine creates a new resolution engine.
func NewEngine(
	chunks storage.ChunkRepository,
	cache storage.CacheRepository,
	overrides storage.OverrideRepository,
	provider ai.Provider,
	opts ...Option,
) (*Engine, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if cache == nil {
		return nil, ErrCacheRepositoryRequired
	}
	if overrides == nil {
		return nil, ErrOverrideRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		chunks:            chunks,
		cache:             cache,
		overrides:         overrides,
		embedder:          provider.Embedder(),
		completer:         provider.Completer(),
		pool:              pool,
		logger:            slog.Default(),
		semanticThreshold: defaultSemanticThreshold,
		retrievalFloor:    defaultRetrievalFloor,
		maxTopK:           defaultMaxTopK,
		vectorWeight:      0.7,
		lexicalWeight:     0.3,
		maxContextChars:   defaultMaxContextChars,
		systemPrompt:      defaultSystemPrompt,
		completionTimeout: defaultCompletionTimeout,
		followUps:         true,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.pool.Release()
			return nil, err
		}
	}

	return e, nil
}

// Release releases the worker pool. Asynchronous bookkeeping submitted
// before Release may be dropped. The engine must not be used afterwards.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Resolve answers a visitor question for one chatbot.
func (e *Engine) Resolve(ctx context.Context, chatbotID, question string, history []ai.Message) (*Answer, error) {
	return e.ResolveWithMonitor(ctx, chatbotID, question, history, nil)
}

// ResolveWithMonitor answers a visitor question with monitoring hooks.
// Resolution tiers apply in strict precedence, each short-circuiting on
// a hit: override by hash, override by similarity, cache by hash, cache
// by similarity, then retrieval plus completion. Embedding failure
// skips the semantic tiers instead of failing the resolution.
func (e *Engine) ResolveWithMonitor(ctx context.Context, chatbotID, question string, history []ai.Message, monitor ResolutionMonitor) (*Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	normalized := core.NormalizeQuestion(question)
	if normalized == "" {
		return nil, ErrEmptyQuestion
	}
	hash := core.HashText(normalized)
	monitor.Start(chatbotID, normalized)

	answer, err := e.resolve(ctx, chatbotID, question, normalized, hash, history, monitor)
	monitor.Finish(answer, err)
	return answer, err
}

func (e *Engine) resolve(ctx context.Context, chatbotID, question, normalized string, hash core.Hash, history []ai.Message, monitor ResolutionMonitor) (*Answer, error) {
	// Tier 1: manual override by hash.
	override, err := e.overrides.GetOverride(ctx, chatbotID, hash)
	if err == nil {
		monitor.OverrideHit(override, 1.0)
		e.recordOverrideUse(chatbotID, override.Hash)
		return &Answer{Text: override.Answer, Source: AnswerSourceOverride}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// Embed once for every semantic tier. Failure degrades resolution
	// to hash-only matching and lexical retrieval.
	vector, embedErr := e.embedder.EmbedText(ctx, normalized)
	if embedErr != nil {
		e.logger.Warn("embedding unavailable, degrading to hash-only matching",
			"chatbot", chatbotID, "err", embedErr)
		monitor.EmbeddingUnavailable(embedErr)
		vector = nil
	}
	// Stored vectors are unit length; the query must be too for dot
	// products to mean cosine similarity.
	vector = core.NormalizeVector(vector)

	// Tier 2: manual override by similarity.
	if len(vector) > 0 {
		matches, err := e.overrides.FindSimilarOverrides(ctx, chatbotID, vector, e.semanticThreshold, 1)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			match := matches[0]
			monitor.OverrideHit(match.Override, match.Score)
			e.recordOverrideUse(chatbotID, match.Override.Hash)
			return &Answer{Text: match.Override.Answer, Source: AnswerSourceOverride}, nil
		}
	}

	// Tier 3: cache by hash.
	entry, err := e.cache.GetEntry(ctx, chatbotID, hash)
	if err == nil {
		monitor.CacheHit(entry, 1.0)
		e.touchCacheEntry(chatbotID, entry.Hash)
		return &Answer{Text: entry.Answer, Source: AnswerSourceCache, FollowUps: entry.FollowUps}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// Tier 4: cache by similarity.
	if len(vector) > 0 {
		matches, err := e.cache.FindSimilarEntries(ctx, chatbotID, vector, e.semanticThreshold, 1)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			match := matches[0]
			monitor.CacheHit(match.Entry, match.Score)
			e.touchCacheEntry(chatbotID, match.Entry.Hash)
			return &Answer{Text: match.Entry.Answer, Source: AnswerSourceCache, FollowUps: match.Entry.FollowUps}, nil
		}
	}

	// Tier 5: hybrid retrieval feeding a completion.
	matches, knowledgeContext, err := e.buildKnowledgeContext(ctx, chatbotID, normalized, vector)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieval(matches)

	cctx, cancel := context.WithTimeout(ctx, e.completionTimeout)
	defer cancel()

	text, err := e.completer.Complete(cctx, ai.CompletionRequest{
		SystemPrompt: e.systemPrompt,
		Context:      knowledgeContext,
		History:      history,
		Question:     question,
	})
	if err != nil {
		return nil, err
	}

	escalated := ShouldEscalate(text)
	if escalated {
		text = appendContact(text, e.escalationPhone)
	}

	e.cacheAnswer(chatbotID, normalized, hash, vector, text, history, question)

	return &Answer{
		Text:      text,
		Source:    AnswerSourceGenerated,
		Escalated: escalated,
		Matches:   matches,
	}, nil
}

// ResolveStream answers a visitor question as a stream of text chunks.
// Override and cache hits arrive as a single chunk; generated answers
// stream as the model produces them, with the escalation contact line
// (when triggered) delivered in its own chunk before the final one.
func (e *Engine) ResolveStream(ctx context.Context, chatbotID, question string, history []ai.Message) (<-chan ai.StreamChunk, error) {
	normalized := core.NormalizeQuestion(question)
	if normalized == "" {
		return nil, ErrEmptyQuestion
	}
	hash := core.HashText(normalized)

	// Non-generative tiers resolve before any stream is opened, so a hit
	// costs one channel send.
	answer, vector, err := e.resolveCached(ctx, chatbotID, normalized, hash)
	if err != nil {
		return nil, err
	}
	if answer != nil {
		out := make(chan ai.StreamChunk, 2)
		out <- ai.StreamChunk{Content: answer.Text}
		out <- ai.StreamChunk{Done: true}
		close(out)
		return out, nil
	}

	_, knowledgeContext, err := e.buildKnowledgeContext(ctx, chatbotID, normalized, vector)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, e.completionTimeout)
	stream, err := e.completer.CompleteStream(cctx, ai.CompletionRequest{
		SystemPrompt: e.systemPrompt,
		Context:      knowledgeContext,
		History:      history,
		Question:     question,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan ai.StreamChunk)
	go func() {
		defer close(out)
		defer cancel()

		var sb strings.Builder
		for chunk := range stream {
			if chunk.Done {
				text := sb.String()
				if chunk.Err == nil {
					if ShouldEscalate(text) {
						withContact := appendContact(text, e.escalationPhone)
						if extra := strings.TrimPrefix(withContact, text); extra != "" {
							out <- ai.StreamChunk{Content: extra}
						}
						text = withContact
					}
					e.cacheAnswer(chatbotID, normalized, hash, vector, text, history, question)
				}
				out <- chunk
				return
			}
			sb.WriteString(chunk.Content)
			out <- chunk
		}
	}()
	return out, nil
}

// resolveCached runs the non-generative tiers. Returns a nil answer on
// full miss, along with the question embedding for the retrieval stage.
func (e *Engine) resolveCached(ctx context.Context, chatbotID, normalized string, hash core.Hash) (*Answer, []float32, error) {
	override, err := e.overrides.GetOverride(ctx, chatbotID, hash)
	if err == nil {
		e.recordOverrideUse(chatbotID, override.Hash)
		return &Answer{Text: override.Answer, Source: AnswerSourceOverride}, nil, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, err
	}

	vector, embedErr := e.embedder.EmbedText(ctx, normalized)
	if embedErr != nil {
		e.logger.Warn("embedding unavailable, degrading to hash-only matching",
			"chatbot", chatbotID, "err", embedErr)
		vector = nil
	}
	vector = core.NormalizeVector(vector)

	if len(vector) > 0 {
		matches, err := e.overrides.FindSimilarOverrides(ctx, chatbotID, vector, e.semanticThreshold, 1)
		if err != nil {
			return nil, nil, err
		}
		if len(matches) > 0 {
			e.recordOverrideUse(chatbotID, matches[0].Override.Hash)
			return &Answer{Text: matches[0].Override.Answer, Source: AnswerSourceOverride}, vector, nil
		}
	}

	entry, err := e.cache.GetEntry(ctx, chatbotID, hash)
	if err == nil {
		e.touchCacheEntry(chatbotID, entry.Hash)
		return &Answer{Text: entry.Answer, Source: AnswerSourceCache, FollowUps: entry.FollowUps}, vector, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, err
	}

	if len(vector) > 0 {
		matches, err := e.cache.FindSimilarEntries(ctx, chatbotID, vector, e.semanticThreshold, 1)
		if err != nil {
			return nil, nil, err
		}
		if len(matches) > 0 {
			e.touchCacheEntry(chatbotID, matches[0].Entry.Hash)
			return &Answer{Text: matches[0].Entry.Answer, Source: AnswerSourceCache, FollowUps: matches[0].Entry.FollowUps}, vector, nil
		}
	}

	return nil, vector, nil
}

// buildKnowledgeContext ranks chunks for the question and renders the
// completion context. When ranking yields nothing but the chatbot has
// stored content, a truncated concatenation of the raw content is used
// so the model is never called with an empty knowledge base.
func (e *Engine) buildKnowledgeContext(ctx context.Context, chatbotID, normalized string, vector []float32) ([]*storage.ChunkMatch, string, error) {
	matches, err := e.retrieve(ctx, chatbotID, normalized, vector)
	if err != nil {
		return nil, "", err
	}
	if len(matches) > 0 {
		return matches, buildContext(matches, e.maxContextChars), nil
	}

	chunks, err := e.chunks.GetChunks(ctx, chatbotID)
	if err != nil {
		return nil, "", err
	}
	fallback := buildFallbackContext(chunks, e.maxContextChars)
	if fallback == "" {
		return nil, "", ErrNoKnowledge
	}
	e.logger.Debug("retrieval yielded nothing, using raw content fallback",
		"chatbot", chatbotID, "chunks", len(chunks))
	return nil, fallback, nil
}

// retrieve runs hybrid ranking: cosine similarity blended with lexical
// overlap. Without an embedding, ranking is lexical only.
func (e *Engine) retrieve(ctx context.Context, chatbotID, normalized string, vector []float32) ([]*storage.ChunkMatch, error) {
	count, err := e.chunks.CountChunks(ctx, chatbotID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	// K grows with the knowledge base but stays capped.
	topK := 3 + count/20
	if topK > e.maxTopK {
		topK = e.maxTopK
	}

	var candidates []*storage.ChunkMatch
	if len(vector) > 0 {
		candidates, err = e.chunks.FindSimilarChunks(ctx, chatbotID, vector, e.retrievalFloor, topK*4)
		if err != nil {
			return nil, err
		}
		for _, candidate := range candidates {
			candidate.Score = e.vectorWeight*candidate.Score +
				e.lexicalWeight*lexicalOverlap(candidate.Chunk.Text, normalized)
		}
	} else {
		chunks, err := e.chunks.GetChunks(ctx, chatbotID)
		if err != nil {
			return nil, err
		}
		for _, chunk := range chunks {
			score := lexicalOverlap(chunk.Text, normalized)
			if score > 0 {
				candidates = append(candidates, &storage.ChunkMatch{Chunk: chunk, Score: score})
			}
		}
	}

	slices.SortFunc(candidates, func(a, b *storage.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// cacheAnswer persists a freshly generated answer asynchronously and
// kicks off follow-up generation. Failures are logged, never surfaced:
// the visitor already has their answer.
func (e *Engine) cacheAnswer(chatbotID, normalized string, hash core.Hash, vector []float32, text string, history []ai.Message, question string) {
	e.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.completionTimeout)
		defer cancel()

		entry := &core.CacheEntry{
			ChatbotID: chatbotID,
			Question:  normalized,
			Hash:      hash,
			Vector:    vector,
			Answer:    text,
		}
		if err := e.cache.PutEntry(ctx, entry); err != nil {
			e.logger.Error("error caching answer", "chatbot", chatbotID, "err", err)
			return
		}

		if !e.followUps {
			return
		}
		followUps, err := e.generateFollowUps(ctx, history, question, text)
		if err != nil {
			e.logger.Debug("follow-up generation failed", "chatbot", chatbotID, "err", err)
			return
		}
		if len(followUps) == 0 {
			return
		}
		if err := e.cache.SetFollowUps(ctx, chatbotID, hash, followUps); err != nil {
			e.logger.Error("error storing follow-ups", "chatbot", chatbotID, "err", err)
		}
	})
}

// generateFollowUps asks the model for likely next questions, one per line.
func (e *Engine) generateFollowUps(ctx context.Context, history []ai.Message, question, answer string) ([]string, error) {
	extended := make([]ai.Message, 0, len(history)+2)
	extended = append(extended, history...)
	extended = append(extended,
		ai.Message{Role: ai.RoleVisitor, Content: question},
		ai.Message{Role: ai.RoleAssistant, Content: answer},
	)

	text, err := e.completer.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: e.systemPrompt,
		History:      extended,
		Question:     followUpPrompt,
	})
	if err != nil {
		return nil, err
	}

	var followUps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		followUps = append(followUps, line)
		if len(followUps) == 3 {
			break
		}
	}
	return followUps, nil
}

func (e *Engine) recordOverrideUse(chatbotID string, hash core.Hash) {
	e.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.overrides.RecordUse(ctx, chatbotID, hash); err != nil {
			e.logger.Error("error recording override use", "chatbot", chatbotID, "err", err)
		}
	})
}

func (e *Engine) touchCacheEntry(chatbotID string, hash core.Hash) {
	e.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.cache.TouchEntry(ctx, chatbotID, hash); err != nil {
			e.logger.Error("error touching cache entry", "chatbot", chatbotID, "err", err)
		}
	})
}

// submit runs fn on the bookkeeping pool, falling back to inline
// execution when the pool is saturated or released.
func (e *Engine) submit(fn func()) {
	if err := e.pool.Submit(fn); err != nil {
		fn()
	}
}
