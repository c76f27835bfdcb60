package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

// ScheduleRepository implements storage.ScheduleRepository for BadgerDB.
type ScheduleRepository struct {
	backend *Backend
}

var _ storage.ScheduleRepository = (*ScheduleRepository)(nil)

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(backend *Backend) *ScheduleRepository {
	return &ScheduleRepository{backend: backend}
}

// Close releases repository resources.
func (r *ScheduleRepository) Close() error {
	return nil
}

// PutSchedule upserts a chatbot's schedule.
func (r *ScheduleRepository) PutSchedule(ctx context.Context, sched *core.ReindexSchedule) error {
	sched.UpdatedAt = time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeScheduleKey(sched.ChatbotID)
		if err := tx.Set(key, storage.MarshalSchedule(sched)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSchedule retrieves a chatbot's schedule.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, chatbotID string) (*core.ReindexSchedule, error) {
	var result *core.ReindexSchedule
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeScheduleKey(chatbotID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalSchedule(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// DueSchedules returns schedules that are enabled, have a next-run time
// at or before now, and are not already running.
func (r *ScheduleRepository) DueSchedules(ctx context.Context, now time.Time) ([]*core.ReindexSchedule, error) {
	return r.filter(func(sched *core.ReindexSchedule) bool {
		if sched.Mode == core.ScheduleDisabled {
			return false
		}
		if sched.LastRunStatus == core.RunStatusRunning {
			return false
		}
		return !sched.NextRunAt.IsZero() && !sched.NextRunAt.After(now)
	})
}

// RunningSchedules returns schedules whose last run is still marked
// running, for completion reconciliation.
func (r *ScheduleRepository) RunningSchedules(ctx context.Context) ([]*core.ReindexSchedule, error) {
	return r.filter(func(sched *core.ReindexSchedule) bool {
		return sched.LastRunStatus == core.RunStatusRunning
	})
}

// DeleteSchedule removes a chatbot's schedule.
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, chatbotID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeScheduleKey(chatbotID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// filter scans every stored schedule and keeps those matching the
// predicate. Schedule counts are small (one per chatbot), so a full
// scan over the prefix is acceptable.
func (r *ScheduleRepository) filter(keep func(*core.ReindexSchedule) bool) ([]*core.ReindexSchedule, error) {
	var results []*core.ReindexSchedule
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(schedulePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var sched *core.ReindexSchedule
			err := iter.Item().Value(func(val []byte) error {
				var err error
				sched, err = storage.UnmarshalSchedule(val)
				return err
			})
			if err != nil {
				return err
			}
			if keep(sched) {
				results = append(results, sched)
			}
		}
		return nil
	}, false)
	return results, err
}
