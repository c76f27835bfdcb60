package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

func newTestStore(t *testing.T) *KnowledgeStore {
	t.Helper()
	store, err := NewMemoryKnowledgeStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func makeChunks(texts ...string) []*core.KnowledgeChunk {
	chunks := make([]*core.KnowledgeChunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.KnowledgeChunk{
			Index: i,
			Text:  text,
			Hash:  core.HashText(text),
		}
	}
	return chunks
}

func TestReplaceSourceBasics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	source := core.SourceRef{Type: core.SourceTypeWebsite, Locator: "https://example.com/faq"}

	err := store.Chunks.ReplaceSource(ctx, "bot-1", source, makeChunks("first", "second", "third"))
	if err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}

	chunks, err := store.Chunks.GetSourceChunks(ctx, "bot-1", source)
	if err != nil {
		t.Fatalf("Failed to get source chunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("Expected ordinal order, got index %d at position %d", chunk.Index, i)
		}
		if chunk.ChatbotID != "bot-1" {
			t.Fatalf("Expected chatbot ID to be set, got %q", chunk.ChatbotID)
		}
		if chunk.InsertedAt.IsZero() || chunk.UpdatedAt.IsZero() {
			t.Fatal("Expected timestamps to be set")
		}
	}
}

func TestReplaceSourceShrinksAndPreservesTimestamps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	source := core.SourceRef{Type: core.SourceTypeWebsite, Locator: "https://example.com"}

	if err := store.Chunks.ReplaceSource(ctx, "bot-1", source, makeChunks("one", "two", "three")); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}
	before, err := store.Chunks.GetSourceChunks(ctx, "bot-1", source)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}

	// Second pass: first slot unchanged, second slot new text, third gone.
	if err := store.Chunks.ReplaceSource(ctx, "bot-1", source, makeChunks("one", "changed")); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}

	after, err := store.Chunks.GetSourceChunks(ctx, "bot-1", source)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("Expected stale chunk to be removed, got %d chunks", len(after))
	}

	// Unchanged slot keeps both timestamps, changed slot keeps InsertedAt only.
	if !after[0].UpdatedAt.Equal(before[0].UpdatedAt) {
		t.Fatal("Expected unchanged chunk to keep UpdatedAt")
	}
	if !after[1].InsertedAt.Equal(before[1].InsertedAt) {
		t.Fatal("Expected reused slot to keep InsertedAt")
	}
}

func TestSourceHashes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	source := core.SourceRef{Type: core.SourceTypeDocument, Locator: "handbook.md"}

	hashes, err := store.Chunks.SourceHashes(ctx, "bot-1", source)
	if err != nil {
		t.Fatalf("Failed to get hashes: %v", err)
	}
	if len(hashes) != 0 {
		t.Fatalf("Expected no hashes for unindexed source, got %d", len(hashes))
	}

	if err := store.Chunks.ReplaceSource(ctx, "bot-1", source, makeChunks("alpha", "beta")); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}

	hashes, err = store.Chunks.SourceHashes(ctx, "bot-1", source)
	if err != nil {
		t.Fatalf("Failed to get hashes: %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("Expected 2 hashes, got %d", len(hashes))
	}
	if hashes[0] != core.HashText("alpha") || hashes[1] != core.HashText("beta") {
		t.Fatal("Expected hashes in ordinal order")
	}
}

func TestChunkScoping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	source := core.SourceRef{Type: core.SourceTypeWebsite, Locator: "https://example.com"}

	if err := store.Chunks.ReplaceSource(ctx, "bot-1", source, makeChunks("bot one text")); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}
	if err := store.Chunks.ReplaceSource(ctx, "bot-2", source, makeChunks("bot two text", "more")); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}

	count, err := store.Chunks.CountChunks(ctx, "bot-1")
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 chunk for bot-1, got %d", count)
	}

	if err := store.Chunks.DeleteChatbotChunks(ctx, "bot-2"); err != nil {
		t.Fatalf("Failed to delete chunks: %v", err)
	}
	count, err = store.Chunks.CountChunks(ctx, "bot-2")
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected bot-2 chunks to be gone, got %d", count)
	}
	count, _ = store.Chunks.CountChunks(ctx, "bot-1")
	if count != 1 {
		t.Fatalf("Expected bot-1 chunks untouched, got %d", count)
	}
}

func TestFindSimilarChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	source := core.SourceRef{Type: core.SourceTypeWebsite, Locator: "https://example.com"}

	chunks := makeChunks("exact", "close", "far", "unembedded")
	chunks[0].Vector = []float32{1, 0, 0}
	chunks[1].Vector = []float32{0.9, 0.43589, 0}
	chunks[2].Vector = []float32{0, 1, 0}
	// chunks[3] has no vector and must be skipped

	if err := store.Chunks.ReplaceSource(ctx, "bot-1", source, chunks); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}

	matches, err := store.Chunks.FindSimilarChunks(ctx, "bot-1", []float32{1, 0, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("Failed to find similar chunks: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].Chunk.Text != "exact" {
		t.Fatalf("Expected best match first, got %q", matches[0].Chunk.Text)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatal("Expected descending score order")
	}

	// Limit applies after sorting.
	matches, err = store.Chunks.FindSimilarChunks(ctx, "bot-1", []float32{1, 0, 0}, 0.5, 1)
	if err != nil {
		t.Fatalf("Failed to find similar chunks: %v", err)
	}
	if len(matches) != 1 || matches[0].Chunk.Text != "exact" {
		t.Fatal("Expected limit to keep the best match")
	}
}

func TestDeleteSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	kept := core.SourceRef{Type: core.SourceTypeWebsite, Locator: "https://example.com/a"}
	removed := core.SourceRef{Type: core.SourceTypeWebsite, Locator: "https://example.com/b"}

	if err := store.Chunks.ReplaceSource(ctx, "bot-1", kept, makeChunks("keep me")); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}
	if err := store.Chunks.ReplaceSource(ctx, "bot-1", removed, makeChunks("remove me")); err != nil {
		t.Fatalf("Failed to replace source: %v", err)
	}

	if err := store.Chunks.DeleteSource(ctx, "bot-1", removed); err != nil {
		t.Fatalf("Failed to delete source: %v", err)
	}

	chunks, err := store.Chunks.GetChunks(ctx, "bot-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "keep me" {
		t.Fatalf("Expected only the kept source to remain, got %d chunks", len(chunks))
	}
}

func TestCacheEntryLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	question := core.NormalizeQuestion("Do you ship to Canada?")
	entry := &core.CacheEntry{
		ChatbotID: "bot-1",
		Question:  question,
		Hash:      core.HashText(question),
		Answer:    "Yes, within 5 business days.",
	}

	if err := store.Cache.PutEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}

	got, err := store.Cache.GetEntry(ctx, "bot-1", entry.Hash)
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if got.Answer != entry.Answer {
		t.Fatalf("Expected stored answer, got %q", got.Answer)
	}
	if got.InsertedAt.IsZero() {
		t.Fatal("Expected InsertedAt to be stamped")
	}

	if err := store.Cache.TouchEntry(ctx, "bot-1", entry.Hash); err != nil {
		t.Fatalf("Failed to touch entry: %v", err)
	}
	got, _ = store.Cache.GetEntry(ctx, "bot-1", entry.Hash)
	if got.HitCount != 1 {
		t.Fatalf("Expected hit count 1, got %d", got.HitCount)
	}

	if err := store.Cache.SetFollowUps(ctx, "bot-1", entry.Hash, []string{"What does shipping cost?"}); err != nil {
		t.Fatalf("Failed to set follow-ups: %v", err)
	}
	got, _ = store.Cache.GetEntry(ctx, "bot-1", entry.Hash)
	if len(got.FollowUps) != 1 {
		t.Fatalf("Expected 1 follow-up, got %d", len(got.FollowUps))
	}

	_, err = store.Cache.GetEntry(ctx, "bot-1", core.HashText("missing"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCachePurgeChatbot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"question one", "question two", "question three"} {
		entry := &core.CacheEntry{
			ChatbotID: "bot-1",
			Question:  q,
			Hash:      core.HashText(q),
			Answer:    "answer",
		}
		if err := store.Cache.PutEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to put entry: %v", err)
		}
	}
	other := &core.CacheEntry{ChatbotID: "bot-2", Question: "other", Hash: core.HashText("other"), Answer: "a"}
	if err := store.Cache.PutEntry(ctx, other); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}

	purged, err := store.Cache.PurgeChatbot(ctx, "bot-1")
	if err != nil {
		t.Fatalf("Failed to purge: %v", err)
	}
	if purged != 3 {
		t.Fatalf("Expected 3 purged entries, got %d", purged)
	}

	if _, err := store.Cache.GetEntry(ctx, "bot-2", other.Hash); err != nil {
		t.Fatalf("Expected bot-2 entry to survive, got %v", err)
	}
}

func TestOverrideLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	question := core.NormalizeQuestion("What is your refund policy?")
	override := &core.ManualOverride{
		ChatbotID:      "bot-1",
		Question:       question,
		Hash:           core.HashText(question),
		Answer:         "Refunds within 30 days.",
		PreviousAnswer: "I'm not sure.",
	}

	if err := store.Overrides.PutOverride(ctx, override); err != nil {
		t.Fatalf("Failed to put override: %v", err)
	}
	if err := store.Overrides.RecordUse(ctx, "bot-1", override.Hash); err != nil {
		t.Fatalf("Failed to record use: %v", err)
	}

	// Re-author the answer: use count and InsertedAt must survive.
	updated := &core.ManualOverride{
		ChatbotID: "bot-1",
		Question:  question,
		Hash:      override.Hash,
		Answer:    "Refunds within 60 days.",
	}
	if err := store.Overrides.PutOverride(ctx, updated); err != nil {
		t.Fatalf("Failed to update override: %v", err)
	}

	got, err := store.Overrides.GetOverride(ctx, "bot-1", override.Hash)
	if err != nil {
		t.Fatalf("Failed to get override: %v", err)
	}
	if got.Answer != "Refunds within 60 days." {
		t.Fatalf("Expected updated answer, got %q", got.Answer)
	}
	if got.UseCount != 1 {
		t.Fatalf("Expected use count to survive update, got %d", got.UseCount)
	}

	if err := store.Overrides.DeleteOverride(ctx, "bot-1", override.Hash); err != nil {
		t.Fatalf("Failed to delete override: %v", err)
	}
	err = store.Overrides.DeleteOverride(ctx, "bot-1", override.Hash)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestFindSimilarOverridesTieBreak(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vector := []float32{1, 0, 0}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	answers := []string{"oldest answer", "middle answer", "newest answer"}
	for i, answer := range answers {
		question := core.NormalizeQuestion("variant " + answer)
		override := &core.ManualOverride{
			ChatbotID:  "bot-1",
			Question:   question,
			Hash:       core.HashText(question),
			Answer:     answer,
			Vector:     vector,
			InsertedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Overrides.PutOverride(ctx, override); err != nil {
			t.Fatalf("Failed to put override: %v", err)
		}
	}

	matches, err := store.Overrides.FindSimilarOverrides(ctx, "bot-1", vector, 0.9, 3)
	if err != nil {
		t.Fatalf("Failed to find overrides: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(matches))
	}
	// Identical scores: newest creation wins, not key order.
	if matches[0].Override.Answer != "newest answer" {
		t.Fatalf("Expected newest override first, got %q", matches[0].Override.Answer)
	}
	if matches[2].Override.Answer != "oldest answer" {
		t.Fatalf("Expected oldest override last, got %q", matches[2].Override.Answer)
	}
}

func TestFindSimilarEntriesTieBreak(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vector := []float32{0, 1, 0}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	answers := []string{"oldest answer", "middle answer", "newest answer"}
	for i, answer := range answers {
		question := core.NormalizeQuestion("variant " + answer)
		entry := &core.CacheEntry{
			ChatbotID:  "bot-1",
			Question:   question,
			Hash:       core.HashText(question),
			Answer:     answer,
			Vector:     vector,
			InsertedAt: base.Add(time.Duration(i) * time.Hour),
			LastUsedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Cache.PutEntry(ctx, entry); err != nil {
			t.Fatalf("Failed to put entry: %v", err)
		}
	}

	matches, err := store.Cache.FindSimilarEntries(ctx, "bot-1", vector, 0.9, 3)
	if err != nil {
		t.Fatalf("Failed to find entries: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(matches))
	}
	if matches[0].Entry.Answer != "newest answer" {
		t.Fatalf("Expected newest entry first, got %q", matches[0].Entry.Answer)
	}
	if matches[2].Entry.Answer != "oldest answer" {
		t.Fatalf("Expected oldest entry last, got %q", matches[2].Entry.Answer)
	}
}
