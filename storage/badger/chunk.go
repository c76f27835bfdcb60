package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close releases repository resources.
func (r *ChunkRepository) Close() error {
	return nil
}

// ReplaceSource atomically replaces all chunks of one source.
// InsertedAt is preserved for chunk slots that already existed; UpdatedAt
// is only refreshed when the slot's content hash actually changed.
func (r *ChunkRepository) ReplaceSource(ctx context.Context, chatbotID string, source core.SourceRef, chunks []*core.KnowledgeChunk) error {
	now := time.Now().UTC()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		old := make(map[int]*core.KnowledgeChunk)
		var staleKeys [][]byte

		prefix := makeChunkSourcePrefix(chatbotID, source)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			var chunk *core.KnowledgeChunk
			err := item.Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				iter.Close()
				return err
			}
			old[chunk.Index] = chunk
			if chunk.Index >= len(chunks) {
				staleKeys = append(staleKeys, item.KeyCopy(nil))
			}
		}
		iter.Close()

		for _, key := range staleKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		for _, chunk := range chunks {
			chunk.ChatbotID = chatbotID
			chunk.Source = source
			chunk.InsertedAt = now
			chunk.UpdatedAt = now
			if prev, ok := old[chunk.Index]; ok {
				chunk.InsertedAt = prev.InsertedAt
				if prev.Hash == chunk.Hash {
					chunk.UpdatedAt = prev.UpdatedAt
				}
			}

			key := makeChunkKey(chatbotID, source, chunk.Index)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// GetSourceChunks retrieves a source's chunks in ordinal order.
func (r *ChunkRepository) GetSourceChunks(ctx context.Context, chatbotID string, source core.SourceRef) ([]*core.KnowledgeChunk, error) {
	var results []*core.KnowledgeChunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readChunks(tx, makeChunkSourcePrefix(chatbotID, source))
		return err
	}, false)
	return results, err
}

// GetChunks retrieves all chunks of a chatbot, grouped by source in
// ordinal order.
func (r *ChunkRepository) GetChunks(ctx context.Context, chatbotID string) ([]*core.KnowledgeChunk, error) {
	var results []*core.KnowledgeChunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readChunks(tx, makeChunkBotPrefix(chatbotID))
		return err
	}, false)
	return results, err
}

// CountChunks returns the number of stored chunks for a chatbot.
func (r *ChunkRepository) CountChunks(ctx context.Context, chatbotID string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkBotPrefix(chatbotID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// SourceHashes returns the content hashes of a source's chunks in
// ordinal order.
func (r *ChunkRepository) SourceHashes(ctx context.Context, chatbotID string, source core.SourceRef) ([]core.Hash, error) {
	chunks, err := r.GetSourceChunks(ctx, chatbotID, source)
	if err != nil {
		return nil, err
	}
	hashes := make([]core.Hash, len(chunks))
	for i, chunk := range chunks {
		hashes[i] = chunk.Hash
	}
	return hashes, nil
}

// DeleteSource removes all chunks of one source.
func (r *ChunkRepository) DeleteSource(ctx context.Context, chatbotID string, source core.SourceRef) error {
	return r.deletePrefix(makeChunkSourcePrefix(chatbotID, source))
}

// DeleteChatbotChunks removes every chunk owned by a chatbot.
func (r *ChunkRepository) DeleteChatbotChunks(ctx context.Context, chatbotID string) error {
	return r.deletePrefix(makeChunkBotPrefix(chatbotID))
}

// FindSimilarChunks finds chunks similar to the given vector, scoped to
// one chatbot. Chunks without embeddings are skipped.
func (r *ChunkRepository) FindSimilarChunks(ctx context.Context, chatbotID string, vector []float32, minSimilarity float32, limit int) ([]*storage.ChunkMatch, error) {
	var results []*storage.ChunkMatch

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkBotPrefix(chatbotID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.KnowledgeChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(chunk.Vector) == 0 {
				continue
			}

			similarity := dotProduct(vector, chunk.Vector)
			if similarity >= minSimilarity {
				results = append(results, &storage.ChunkMatch{
					Chunk: chunk,
					Score: similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *storage.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// deletePrefix removes all keys under a prefix in one transaction.
func (r *ChunkRepository) deletePrefix(prefix []byte) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		keys, err := collectKeys(tx, prefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readChunks reads all chunks under a key prefix, in key order.
func readChunks(tx *badger.Txn, prefix []byte) ([]*core.KnowledgeChunk, error) {
	var results []*core.KnowledgeChunk
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var chunk *core.KnowledgeChunk
		err := iter.Item().Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		results = append(results, chunk)
	}
	return results, nil
}

// collectKeys gathers all keys under a prefix.
func collectKeys(tx *badger.Txn, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}
