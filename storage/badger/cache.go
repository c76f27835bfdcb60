package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

// CacheRepository implements storage.CacheRepository for BadgerDB.
type CacheRepository struct {
	backend *Backend
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(backend *Backend) *CacheRepository {
	return &CacheRepository{backend: backend}
}

// Close releases repository resources.
func (r *CacheRepository) Close() error {
	return nil
}

// PutEntry upserts an entry keyed by (chatbot, question hash).
func (r *CacheRepository) PutEntry(ctx context.Context, entry *core.CacheEntry) error {
	now := time.Now().UTC()
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = now
	}
	if entry.LastUsedAt.IsZero() {
		entry.LastUsedAt = now
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheKey(entry.ChatbotID, entry.Hash)
		if err := tx.Set(key, storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetEntry retrieves an entry by question hash.
func (r *CacheRepository) GetEntry(ctx context.Context, chatbotID string, hash core.Hash) (*core.CacheEntry, error) {
	var result *core.CacheEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCacheEntry(tx, makeCacheKey(chatbotID, hash))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// TouchEntry increments the hit counter and refreshes the last-used
// timestamp.
func (r *CacheRepository) TouchEntry(ctx context.Context, chatbotID string, hash core.Hash) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheKey(chatbotID, hash)
		entry, err := readCacheEntry(tx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return storage.ErrNotFound
		}

		entry.HitCount++
		entry.LastUsedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// SetFollowUps stores derived follow-up questions on an existing entry.
func (r *CacheRepository) SetFollowUps(ctx context.Context, chatbotID string, hash core.Hash, followUps []string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheKey(chatbotID, hash)
		entry, err := readCacheEntry(tx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return storage.ErrNotFound
		}

		entry.FollowUps = followUps
		if err := tx.Set(key, storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilarEntries finds entries whose question embedding is similar
// to the given vector. Entries without embeddings are skipped.
func (r *CacheRepository) FindSimilarEntries(ctx context.Context, chatbotID string, vector []float32, minSimilarity float32, limit int) ([]*storage.CacheMatch, error) {
	var results []*storage.CacheMatch

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCacheBotPrefix(chatbotID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.CacheEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalCacheEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(entry.Vector) == 0 {
				continue
			}

			similarity := dotProduct(vector, entry.Vector)
			if similarity >= minSimilarity {
				results = append(results, &storage.CacheMatch{
					Entry: entry,
					Score: similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *storage.CacheMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		// Equal scores: the most recently created entry wins.
		return b.Entry.InsertedAt.Compare(a.Entry.InsertedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// PurgeChatbot bulk-deletes every cache entry of a chatbot.
func (r *CacheRepository) PurgeChatbot(ctx context.Context, chatbotID string) (int, error) {
	purged := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		keys, err := collectKeys(tx, makeCacheBotPrefix(chatbotID))
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		purged = len(keys)
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// readCacheEntry reads a cache entry from the transaction.
// Returns nil without error when the key is absent.
func readCacheEntry(tx *badger.Txn, key []byte) (*core.CacheEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.CacheEntry
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		entry, unmarshalErr = storage.UnmarshalCacheEntry(val)
		return unmarshalErr
	})
	return entry, err
}
