package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

// OverrideRepository implements storage.OverrideRepository for BadgerDB.
type OverrideRepository struct {
	backend *Backend
}

var _ storage.OverrideRepository = (*OverrideRepository)(nil)

// NewOverrideRepository creates a new OverrideRepository.
func NewOverrideRepository(backend *Backend) *OverrideRepository {
	return &OverrideRepository{backend: backend}
}

// Close releases repository resources.
func (r *OverrideRepository) Close() error {
	return nil
}

// PutOverride upserts an override keyed by (chatbot, question hash).
// InsertedAt is preserved when the override already exists.
func (r *OverrideRepository) PutOverride(ctx context.Context, override *core.ManualOverride) error {
	now := time.Now().UTC()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeOverrideKey(override.ChatbotID, override.Hash)
		old, err := readOverride(tx, key)
		if err != nil {
			return err
		}

		override.UpdatedAt = now
		if old != nil {
			override.InsertedAt = old.InsertedAt
			override.UseCount = old.UseCount
		} else if override.InsertedAt.IsZero() {
			override.InsertedAt = now
		}

		if err := tx.Set(key, storage.MarshalOverride(override)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetOverride retrieves an override by question hash.
func (r *OverrideRepository) GetOverride(ctx context.Context, chatbotID string, hash core.Hash) (*core.ManualOverride, error) {
	var result *core.ManualOverride
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readOverride(tx, makeOverrideKey(chatbotID, hash))
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

// DeleteOverride removes an override.
func (r *OverrideRepository) DeleteOverride(ctx context.Context, chatbotID string, hash core.Hash) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeOverrideKey(chatbotID, hash)
		old, err := readOverride(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListOverrides retrieves all overrides of a chatbot.
func (r *OverrideRepository) ListOverrides(ctx context.Context, chatbotID string) ([]*core.ManualOverride, error) {
	var results []*core.ManualOverride
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeOverrideBotPrefix(chatbotID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var override *core.ManualOverride
			err := iter.Item().Value(func(val []byte) error {
				var err error
				override, err = storage.UnmarshalOverride(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, override)
		}
		return nil
	}, false)
	return results, err
}

// RecordUse increments the use counter of an override.
func (r *OverrideRepository) RecordUse(ctx context.Context, chatbotID string, hash core.Hash) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeOverrideKey(chatbotID, hash)
		override, err := readOverride(tx, key)
		if err != nil {
			return err
		}
		if override == nil {
			return storage.ErrNotFound
		}

		override.UseCount++
		if err := tx.Set(key, storage.MarshalOverride(override)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilarOverrides finds overrides whose question embedding is
// similar to the given vector. Overrides without embeddings are skipped.
func (r *OverrideRepository) FindSimilarOverrides(ctx context.Context, chatbotID string, vector []float32, minSimilarity float32, limit int) ([]*storage.OverrideMatch, error) {
	var results []*storage.OverrideMatch

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeOverrideBotPrefix(chatbotID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var override *core.ManualOverride
			err := iter.Item().Value(func(val []byte) error {
				var err error
				override, err = storage.UnmarshalOverride(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(override.Vector) == 0 {
				continue
			}

			similarity := dotProduct(vector, override.Vector)
			if similarity >= minSimilarity {
				results = append(results, &storage.OverrideMatch{
					Override: override,
					Score:    similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *storage.OverrideMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		// Equal scores: the most recently created override wins.
		return b.Override.InsertedAt.Compare(a.Override.InsertedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// readOverride reads an override from the transaction.
// Returns nil without error when the key is absent.
func readOverride(tx *badger.Txn, key []byte) (*core.ManualOverride, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var override *core.ManualOverride
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		override, unmarshalErr = storage.UnmarshalOverride(val)
		return unmarshalErr
	})
	return override, err
}
