package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
//
// All job and task mutations run inside a single transaction, which is
// what makes counter bookkeeping and job finalization safe under
// concurrent task settlement.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{backend: backend}
}

// Close releases repository resources.
func (r *JobRepository) Close() error {
	return nil
}

// CreateJob stores a new job and its tasks atomically.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.IndexingJob, tasks []*core.IndexingTask) error {
	now := time.Now().UTC()
	if job.Status == 0 {
		job.Status = core.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.TotalTasks = len(tasks)

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeJobKey(job.ID), storage.MarshalJob(job)); err != nil {
			return err
		}
		indexKey := makeJobBotKey(job.ChatbotID, job.CreatedAt, job.ID)
		if err := tx.Set(indexKey, []byte(job.ID)); err != nil {
			return err
		}

		for i, task := range tasks {
			task.JobID = job.ID
			if task.Status == 0 {
				task.Status = core.TaskStatusPending
			}
			if task.CreatedAt.IsZero() {
				task.CreatedAt = now
			}
			if err := tx.Set(makeTaskKey(job.ID, i), storage.MarshalTask(task)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a job by ID.
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*core.IndexingJob, error) {
	var result *core.IndexingJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readJob(tx, jobID)
		return err
	}, false)
	return result, err
}

// GetTasks retrieves all tasks of a job in creation order.
func (r *JobRepository) GetTasks(ctx context.Context, jobID string) ([]*core.IndexingTask, error) {
	var results []*core.IndexingTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeTaskPrefix(jobID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var task *core.IndexingTask
			err := iter.Item().Value(func(val []byte) error {
				var err error
				task, err = storage.UnmarshalTask(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, task)
		}
		return nil
	}, false)
	return results, err
}

// ListJobs retrieves a chatbot's jobs, newest first, up to limit.
func (r *JobRepository) ListJobs(ctx context.Context, chatbotID string, limit int) ([]*core.IndexingJob, error) {
	var results []*core.IndexingJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := makeJobBotPrefix(chatbotID)
		// Seek past every timestamped key under the prefix, then walk
		// backwards: newest first.
		startKey := append(slices.Clone(prefix), 0xFF)

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var jobID string
			if err := iter.Item().Value(func(val []byte) error {
				jobID = string(val)
				return nil
			}); err != nil {
				return err
			}

			job, err := readJob(tx, jobID)
			if err != nil {
				return err
			}
			results = append(results, job)
		}
		return nil
	}, false)
	return results, err
}

// UpdateJobStatus transitions a job to the given status.
// StartedAt is stamped on entering processing, CompletedAt on entering
// any terminal status.
func (r *JobRepository) UpdateJobStatus(ctx context.Context, jobID string, status core.JobStatus, errMsg string) (*core.IndexingJob, error) {
	var result *core.IndexingJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		job, err := readJob(tx, jobID)
		if err != nil {
			return err
		}
		if !job.Status.CanTransition(status) {
			return storage.ErrInvalidTransition
		}

		now := time.Now().UTC()
		job.Status = status
		if errMsg != "" {
			job.Error = errMsg
		}
		if status == core.JobStatusProcessing {
			job.StartedAt = now
		}
		if status.Terminal() {
			job.CompletedAt = now
		}

		if err := tx.Set(makeJobKey(job.ID), storage.MarshalJob(job)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = job
		return nil
	}, true)
	return result, err
}

// MarkTaskProcessing flips a pending task to processing. Reports false
// without error when the job has left the processing state or the task
// is no longer pending, so callers skip the work instead of running it.
func (r *JobRepository) MarkTaskProcessing(ctx context.Context, jobID, taskID string) (bool, error) {
	marked := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		job, err := readJob(tx, jobID)
		if err != nil {
			return err
		}
		if job.Status != core.JobStatusProcessing {
			return nil
		}

		task, key, err := findTask(tx, jobID, taskID)
		if err != nil {
			return err
		}
		if task.Status != core.TaskStatusPending {
			return nil
		}

		task.Status = core.TaskStatusProcessing
		if err := tx.Set(key, storage.MarshalTask(task)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		marked = true
		return nil
	}, true)
	return marked, err
}

// SettleTask marks a task terminal and updates the owning job in the
// same transaction. When the last task settles, the job is finalized:
// completed when every task succeeded, failed when none did, partial
// otherwise. A cancelled job keeps its status; only counters move.
func (r *JobRepository) SettleTask(ctx context.Context, jobID, taskID, taskErr string) (*core.IndexingJob, error) {
	var result *core.IndexingJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		task, key, err := findTask(tx, jobID, taskID)
		if err != nil {
			return err
		}
		if task.Status.Terminal() {
			return storage.ErrInvalidTransition
		}

		now := time.Now().UTC()
		task.Error = taskErr
		task.CompletedAt = now
		if taskErr == "" {
			task.Status = core.TaskStatusCompleted
		} else {
			task.Status = core.TaskStatusFailed
		}
		if err := tx.Set(key, storage.MarshalTask(task)); err != nil {
			return err
		}

		job, err := readJob(tx, jobID)
		if err != nil {
			return err
		}
		if task.Status == core.TaskStatusCompleted {
			job.CompletedTasks++
		} else {
			job.FailedTasks++
		}

		settled := job.CompletedTasks + job.FailedTasks
		if job.Status == core.JobStatusProcessing && settled >= job.TotalTasks {
			switch {
			case job.FailedTasks == 0:
				job.Status = core.JobStatusCompleted
			case job.CompletedTasks == 0:
				job.Status = core.JobStatusFailed
				job.Error = "all tasks failed"
			default:
				job.Status = core.JobStatusPartial
			}
			job.CompletedAt = now
		}

		if err := tx.Set(makeJobKey(job.ID), storage.MarshalJob(job)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = job
		return nil
	}, true)
	return result, err
}

// readJob reads a job from the transaction.
// Returns storage.ErrNotFound when the job is absent.
func readJob(tx *badger.Txn, jobID string) (*core.IndexingJob, error) {
	item, err := tx.Get(makeJobKey(jobID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var job *core.IndexingJob
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}

// findTask locates a task by ID within a job's task slots.
// Jobs carry one task per source, so a linear scan is cheap.
func findTask(tx *badger.Txn, jobID, taskID string) (*core.IndexingTask, []byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeTaskPrefix(jobID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var task *core.IndexingTask
		err := iter.Item().Value(func(val []byte) error {
			var err error
			task, err = storage.UnmarshalTask(val)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		if task.ID == taskID {
			return task, iter.Item().KeyCopy(nil), nil
		}
	}
	return nil, nil, storage.ErrNotFound
}
