package storage

import (
	"context"
	"time"

	"github.com/answerdesk/answerdesk/core"
)

// ChunkMatch is a knowledge chunk returned from similarity search.
type ChunkMatch struct {
	Chunk *core.KnowledgeChunk
	Score float32
}

// CacheMatch is a cache entry returned from similarity search.
type CacheMatch struct {
	Entry *core.CacheEntry
	Score float32
}

// OverrideMatch is a manual override returned from similarity search.
type OverrideMatch struct {
	Override *core.ManualOverride
	Score    float32
}

// ChunkRepository persists knowledge chunks. All operations are scoped to a
// single chatbot, so concurrent jobs for different chatbots never contend.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// ReplaceSource atomically replaces all chunks of one source with the
	// given sequence. Chunk identity keys on (chatbot, source, index), so
	// re-running a task fully re-derives and replaces its chunks.
	ReplaceSource(ctx context.Context, chatbotID string, source core.SourceRef, chunks []*core.KnowledgeChunk) error

	// GetSourceChunks retrieves a source's chunks in ordinal order.
	GetSourceChunks(ctx context.Context, chatbotID string, source core.SourceRef) ([]*core.KnowledgeChunk, error)

	// GetChunks retrieves all chunks of a chatbot, grouped by source in
	// ordinal order.
	GetChunks(ctx context.Context, chatbotID string) ([]*core.KnowledgeChunk, error)

	// CountChunks returns the number of stored chunks for a chatbot.
	CountChunks(ctx context.Context, chatbotID string) (int, error)

	// SourceHashes returns the content hashes of a source's chunks in
	// ordinal order. Used for no-op reindex detection; returns an empty
	// slice when the source has never been indexed.
	SourceHashes(ctx context.Context, chatbotID string, source core.SourceRef) ([]core.Hash, error)

	// DeleteSource removes all chunks of one source.
	DeleteSource(ctx context.Context, chatbotID string, source core.SourceRef) error

	// DeleteChatbotChunks removes every chunk owned by a chatbot.
	DeleteChatbotChunks(ctx context.Context, chatbotID string) error

	// FindSimilarChunks finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results,
	// ordered by similarity score (highest first). Chunks without vectors
	// are skipped.
	FindSimilarChunks(ctx context.Context, chatbotID string, vector []float32, minSimilarity float32, limit int) ([]*ChunkMatch, error)

	// Close closes the repository and releases resources.
	Close() error
}

// CacheRepository persists automated answer cache entries.
// Implementations must be thread-safe and support concurrent access.
type CacheRepository interface {
	// PutEntry upserts an entry keyed by (chatbot, question hash).
	// Concurrent identical writes are benign: the value is derived purely
	// from the question, so last writer wins.
	PutEntry(ctx context.Context, entry *core.CacheEntry) error

	// GetEntry retrieves an entry by question hash.
	// Returns ErrNotFound if no entry exists.
	GetEntry(ctx context.Context, chatbotID string, hash core.Hash) (*core.CacheEntry, error)

	// TouchEntry increments the hit counter and refreshes the last-used
	// timestamp. Missing entries return ErrNotFound.
	TouchEntry(ctx context.Context, chatbotID string, hash core.Hash) error

	// SetFollowUps stores derived follow-up questions on an existing entry.
	SetFollowUps(ctx context.Context, chatbotID string, hash core.Hash, followUps []string) error

	// FindSimilarEntries finds entries whose question embedding is similar
	// to the given vector. Entries without embeddings are skipped.
	FindSimilarEntries(ctx context.Context, chatbotID string, vector []float32, minSimilarity float32, limit int) ([]*CacheMatch, error)

	// PurgeChatbot bulk-deletes every cache entry of a chatbot and returns
	// how many were removed. Called when the knowledge base changes
	// materially.
	PurgeChatbot(ctx context.Context, chatbotID string) (int, error)

	// Close closes the repository and releases resources.
	Close() error
}

// OverrideRepository persists manual answer overrides.
// Implementations must be thread-safe and support concurrent access.
type OverrideRepository interface {
	// PutOverride upserts an override keyed by (chatbot, question hash).
	PutOverride(ctx context.Context, override *core.ManualOverride) error

	// GetOverride retrieves an override by question hash.
	// Returns ErrNotFound if no override exists.
	GetOverride(ctx context.Context, chatbotID string, hash core.Hash) (*core.ManualOverride, error)

	// DeleteOverride removes an override.
	// Returns ErrNotFound if no override exists.
	DeleteOverride(ctx context.Context, chatbotID string, hash core.Hash) error

	// ListOverrides retrieves all overrides of a chatbot.
	ListOverrides(ctx context.Context, chatbotID string) ([]*core.ManualOverride, error)

	// RecordUse increments the use counter of an override.
	RecordUse(ctx context.Context, chatbotID string, hash core.Hash) error

	// FindSimilarOverrides finds overrides whose question embedding is
	// similar to the given vector. Overrides without embeddings are skipped.
	FindSimilarOverrides(ctx context.Context, chatbotID string, vector []float32, minSimilarity float32, limit int) ([]*OverrideMatch, error)

	// Close closes the repository and releases resources.
	Close() error
}

// JobRepository persists indexing jobs and their tasks durably, so job
// state survives process restarts and supports multi-instance deployment.
// Implementations must be thread-safe and enforce monotonic status
// transitions: updates that would reopen a terminal job or task fail with
// ErrInvalidTransition.
type JobRepository interface {
	// CreateJob stores a new job and its tasks atomically.
	CreateJob(ctx context.Context, job *core.IndexingJob, tasks []*core.IndexingTask) error

	// GetJob retrieves a job by ID. Returns ErrNotFound if absent.
	GetJob(ctx context.Context, jobID string) (*core.IndexingJob, error)

	// GetTasks retrieves all tasks of a job in creation order.
	GetTasks(ctx context.Context, jobID string) ([]*core.IndexingTask, error)

	// ListJobs retrieves a chatbot's jobs, newest first, up to limit.
	ListJobs(ctx context.Context, chatbotID string, limit int) ([]*core.IndexingJob, error)

	// UpdateJobStatus transitions a job to the given status, recording the
	// error message and stamping StartedAt/CompletedAt as appropriate.
	// Returns the updated job, or ErrInvalidTransition if the move is not
	// allowed from the current status.
	UpdateJobStatus(ctx context.Context, jobID string, status core.JobStatus, errMsg string) (*core.IndexingJob, error)

	// MarkTaskProcessing flips a pending task to processing. It reports
	// false without error when the job has left the processing state
	// (cooperative cancellation: the task must not be dispatched).
	MarkTaskProcessing(ctx context.Context, jobID, taskID string) (bool, error)

	// SettleTask marks a task terminal: completed when taskErr is empty,
	// failed otherwise. Job counters are incremented atomically, and when
	// the last task settles the job itself is finalized (completed /
	// partial / failed) unless it was cancelled. Returns the updated job.
	SettleTask(ctx context.Context, jobID, taskID, taskErr string) (*core.IndexingJob, error)

	// Close closes the repository and releases resources.
	Close() error
}

// ScheduleRepository persists per-chatbot reindex schedules.
// Implementations must be thread-safe and support concurrent access.
type ScheduleRepository interface {
	// PutSchedule upserts a chatbot's schedule.
	PutSchedule(ctx context.Context, sched *core.ReindexSchedule) error

	// GetSchedule retrieves a chatbot's schedule.
	// Returns ErrNotFound if the chatbot has none.
	GetSchedule(ctx context.Context, chatbotID string) (*core.ReindexSchedule, error)

	// DueSchedules returns schedules that are enabled, have a next-run time
	// at or before now, and are not already running.
	DueSchedules(ctx context.Context, now time.Time) ([]*core.ReindexSchedule, error)

	// RunningSchedules returns schedules whose last run status is running,
	// for completion reconciliation.
	RunningSchedules(ctx context.Context) ([]*core.ReindexSchedule, error)

	// DeleteSchedule removes a chatbot's schedule.
	DeleteSchedule(ctx context.Context, chatbotID string) error

	// Close closes the repository and releases resources.
	Close() error
}
