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


package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/answerdesk/answerdesk/ai"
	"github.com/answerdesk/answerdesk/chunker"
	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/fetch"
	"github.com/answerdesk/answerdesk/storage"
)

const (
	defaultFetchAttempts = 3
	defaultFetchBackoff  = 2 * time.Second
)

// ProgressFunc receives the updated job after each task settles.
type ProgressFunc func(job *core.IndexingJob)

// Orchestrator runs indexing jobs: one task per knowledge source, each
// fetched, chunked, embedded, and persisted. Fetching and embedding run on
// separate worker pools so slow crawls do not starve the embedding
// provider's rate budget, and vice versa.
//
// Job and task state lives in the job repository, so a job survives a
// process restart and can be cancelled from another process: each task
// re-checks the job status before it starts work.
type Orchestrator struct {
	jobs     storage.JobRepository
	chunks   storage.ChunkRepository
	cache    storage.CacheRepository
	fetcher  fetch.Fetcher
	embedder ai.Embedder
	splitter *chunker.Splitter

	crawlPool *ants.Pool
	embedPool *ants.Pool

	fetchAttempts int
	fetchBackoff  time.Duration
	progress      ProgressFunc
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithCrawlPoolSize sets the number of sources fetched concurrently.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithCrawlPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.crawlPool != nil {
			o.crawlPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.crawlPool = pool
		return nil
	}
}

// WithEmbedPoolSize sets the number of concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithEmbedPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.embedPool != nil {
			o.embedPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.embedPool = pool
		return nil
	}
}

// WithFetchRetry sets the retry policy for transient fetch failures.
func WithFetchRetry(attempts int, backoff time.Duration) Option {
	return func(o *Orchestrator) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.fetchAttempts = attempts
		o.fetchBackoff = backoff
		return nil
	}
}

// WithCacheRepository sets the answer cache purged after a job that changed
// the knowledge base. Without it, stale cached answers survive a reindex.
func WithCacheRepository(cache storage.CacheRepository) Option {
	return func(o *Orchestrator) error {
		o.cache = cache
		return nil
	}
}

// WithSplitter sets a custom content splitter.
func WithSplitter(splitter *chunker.Splitter) Option {
	return func(o *Orchestrator) error {
		if splitter != nil {
			o.splitter = splitter
		}
		return nil
	}
}

// WithProgress sets a callback invoked after each task settles.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) error {
		o.progress = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a job orchestrator over the given repositories,
// fetcher, and embedder.
func NewOrchestrator(
	jobs storage.JobRepository,
	chunks storage.ChunkRepository,
	fetcher fetch.Fetcher,
	embedder ai.Embedder,
	opts ...Option,
) (*Orchestrator, error) {
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	crawlSize := runtime.NumCPU()
	if crawlSize < 1 {
		crawlSize = 1
	}
	embedSize := runtime.NumCPU() / 2
	if embedSize < 1 {
		embedSize = 1
	}

	crawlPool, err := ants.NewPool(crawlSize)
	if err != nil {
		return nil, err
	}
	embedPool, err := ants.NewPool(embedSize)
	if err != nil {
		crawlPool.Release()
		return nil, err
	}

	o := &Orchestrator{
		jobs:          jobs,
		chunks:        chunks,
		fetcher:       fetcher,
		embedder:      embedder,
		splitter:      chunker.NewSplitter(),
		crawlPool:     crawlPool,
		embedPool:     embedPool,
		fetchAttempts: defaultFetchAttempts,
		fetchBackoff:  defaultFetchBackoff,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// Release shuts down the worker pools. Jobs in flight should be awaited
// before calling Release.
func (o *Orchestrator) Release() {
	if o.crawlPool != nil {
		o.crawlPool.Release()
	}
	if o.embedPool != nil {
		o.embedPool.Release()
	}
}

// CreateJob stores a new pending job with one pending task per source.
// The source list must be non-empty and every source valid; nothing is
// persisted otherwise. The job is not started.
func (o *Orchestrator) CreateJob(ctx context.Context, chatbotID string, sources []core.SourceRef) (*core.IndexingJob, error) {
	return o.createJob(ctx, chatbotID, sources, "")
}

func (o *Orchestrator) createJob(ctx context.Context, chatbotID string, sources []core.SourceRef, retryOf string) (*core.IndexingJob, error) {
	if chatbotID == "" {
		return nil, core.ErrEmptyChatbotID
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	for _, source := range sources {
		if err := core.ValidateSourceRef(source); err != nil {
			return nil, fmt.Errorf("source %q: %w", source.Locator, err)
		}
	}

	now := time.Now().UTC()
	job := &core.IndexingJob{
		ID:         uuid.NewString(),
		ChatbotID:  chatbotID,
		Status:     core.JobStatusPending,
		TotalTasks: len(sources),
		RetryOf:    retryOf,
		CreatedAt:  now,
	}

	tasks := make([]*core.IndexingTask, len(sources))
	for i, source := range sources {
		tasks[i] = &core.IndexingTask{
			ID:        uuid.NewString(),
			JobID:     job.ID,
			Source:    source,
			Status:    core.TaskStatusPending,
			CreatedAt: now,
		}
	}

	if err := o.jobs.CreateJob(ctx, job, tasks); err != nil {
		return nil, err
	}

	o.logger.Info("indexing job created",
		"jobId", job.ID, "chatbotId", chatbotID, "sources", len(sources), "retryOf", retryOf)
	return job, nil
}

// RunJob executes a job's pending tasks and blocks until every one has
// settled, then returns the job in its final state. Running a job that is
// already terminal is a no-op returning the stored job, so a crashed run
// can be re-driven safely.
//
// Cancellation is cooperative: tasks already fetching finish their source,
// tasks not yet started are skipped.
func (o *Orchestrator) RunJob(ctx context.Context, jobID string) (*core.IndexingJob, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	if job.Status == core.JobStatusPending {
		job, err = o.jobs.UpdateJobStatus(ctx, jobID, core.JobStatusProcessing, "")
		if err != nil {
			// Lost the race against a concurrent cancel.
			if errors.Is(err, storage.ErrInvalidTransition) {
				return o.jobs.GetJob(ctx, jobID)
			}
			return nil, err
		}
	}

	tasks, err := o.jobs.GetTasks(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var changed atomic.Int64
	var wg sync.WaitGroup
	for _, task := range tasks {
		if task.Status.Terminal() {
			continue
		}
		task := task
		wg.Add(1)
		submitErr := o.crawlPool.Submit(func() {
			defer wg.Done()
			o.executeTask(ctx, job, task, &changed)
		})
		if submitErr != nil {
			wg.Done()
			o.logger.Error("task submission failed",
				"jobId", jobID, "taskId", task.ID, "error", submitErr)
			if _, settleErr := o.jobs.SettleTask(ctx, jobID, task.ID, submitErr.Error()); settleErr != nil {
				o.logger.Error("task settlement failed",
					"jobId", jobID, "taskId", task.ID, "error", settleErr)
			}
		}
	}
	wg.Wait()

	final, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// A reindex that changed stored chunks invalidates cached answers.
	if changed.Load() > 0 && o.cache != nil {
		purged, purgeErr := o.cache.PurgeChatbot(ctx, final.ChatbotID)
		if purgeErr != nil {
			o.logger.Warn("answer cache purge failed",
				"chatbotId", final.ChatbotID, "error", purgeErr)
		} else if purged > 0 {
			o.logger.Info("answer cache purged",
				"chatbotId", final.ChatbotID, "entries", purged)
		}
	}

	o.logger.Info("indexing job finished",
		"jobId", final.ID, "status", final.Status.String(),
		"completed", final.CompletedTasks, "failed", final.FailedTasks)
	return final, nil
}

// CancelJob requests cancellation of a pending or processing job. Tasks
// not yet started will not be dispatched; tasks in flight run to their own
// settlement. Cancelling an already cancelled job is a no-op; cancelling a
// job that finished returns ErrJobNotCancellable.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == core.JobStatusCancelled {
		return nil
	}

	_, err = o.jobs.UpdateJobStatus(ctx, jobID, core.JobStatusCancelled, "cancelled by user")
	if errors.Is(err, storage.ErrInvalidTransition) {
		// Lost a race: the job may have been cancelled by someone else.
		if current, getErr := o.jobs.GetJob(ctx, jobID); getErr == nil {
			if current.Status == core.JobStatusCancelled {
				return nil
			}
			return fmt.Errorf("%w: status is %s", ErrJobNotCancellable, current.Status)
		}
		return fmt.Errorf("%w: status is %s", ErrJobNotCancellable, job.Status)
	}
	if err != nil {
		return err
	}

	o.logger.Info("indexing job cancelled", "jobId", jobID)
	return nil
}

// RetryJob creates a new pending job over the failed tasks' sources of a
// failed or partial job. Completed tasks are not re-run. The new job
// records the original in RetryOf.
func (o *Orchestrator) RetryJob(ctx context.Context, jobID string) (*core.IndexingJob, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != core.JobStatusFailed && job.Status != core.JobStatusPartial {
		return nil, fmt.Errorf("%w: status is %s", ErrJobNotRetryable, job.Status)
	}

	tasks, err := o.jobs.GetTasks(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var sources []core.SourceRef
	for _, task := range tasks {
		if task.Status == core.TaskStatusFailed {
			sources = append(sources, task.Source)
		}
	}
	if len(sources) == 0 {
		return nil, ErrNoFailedTasks
	}

	return o.createJob(ctx, job.ChatbotID, sources, job.ID)
}

// executeTask claims one task and indexes its source. Claiming fails
// silently when the job has been cancelled in the meantime.
func (o *Orchestrator) executeTask(ctx context.Context, job *core.IndexingJob, task *core.IndexingTask, changed *atomic.Int64) {
	ok, err := o.jobs.MarkTaskProcessing(ctx, job.ID, task.ID)
	if err != nil {
		o.logger.Error("task claim failed",
			"jobId", job.ID, "taskId", task.ID, "error", err)
		return
	}
	if !ok {
		o.logger.Debug("task not dispatched",
			"jobId", job.ID, "taskId", task.ID, "source", task.Source.Locator)
		return
	}

	sourceChanged, taskErr := o.indexSource(ctx, job.ChatbotID, task.Source)
	if sourceChanged {
		changed.Add(1)
	}

	errMsg := ""
	if taskErr != nil {
		errMsg = taskErr.Error()
		o.logger.Warn("indexing task failed",
			"jobId", job.ID, "taskId", task.ID, "source", task.Source.Locator, "error", taskErr)
	}

	updated, err := o.jobs.SettleTask(ctx, job.ID, task.ID, errMsg)
	if err != nil {
		o.logger.Error("task settlement failed",
			"jobId", job.ID, "taskId", task.ID, "error", err)
		return
	}

	if o.progress != nil {
		o.progress(updated)
	}
}

// indexSource fetches, chunks, embeds, and persists one source. It reports
// whether the stored chunks actually changed, so unchanged content skips
// both the embedding spend and the cache purge.
func (o *Orchestrator) indexSource(ctx context.Context, chatbotID string, source core.SourceRef) (bool, error) {
	var content *fetch.Content
	err := RetryWithBackoff(ctx, func() error {
		var fetchErr error
		content, fetchErr = o.fetcher.Fetch(ctx, source)
		return fetchErr
	}, o.fetchAttempts, o.fetchBackoff)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", source.Locator, err)
	}

	chunks := o.splitter.Split(content.Text, content.Title)

	newHashes := make([]core.Hash, len(chunks))
	for i := range chunks {
		newHashes[i] = chunks[i].Hash
	}
	oldHashes, err := o.chunks.SourceHashes(ctx, chatbotID, source)
	if err == nil && len(oldHashes) > 0 && slices.Equal(oldHashes, newHashes) {
		o.logger.Debug("source content unchanged",
			"chatbotId", chatbotID, "source", source.Locator)
		return false, nil
	}

	stored := make([]*core.KnowledgeChunk, len(chunks))
	for i := range chunks {
		chunks[i].ChatbotID = chatbotID
		chunks[i].Source = source
		stored[i] = &chunks[i]
	}

	if len(stored) > 0 {
		texts := make([]string, len(stored))
		for i, chunk := range stored {
			texts[i] = chunk.Text
		}
		vectors, embedErr := o.embedTexts(ctx, texts)
		if embedErr != nil {
			// Degraded but not fatal: chunks are stored without vectors
			// and found by lexical matching until the next reindex.
			o.logger.Warn("embedding unavailable, storing chunks without vectors",
				"chatbotId", chatbotID, "source", source.Locator, "error", embedErr)
		} else {
			for i := range stored {
				if i < len(vectors) {
					stored[i].Vector = core.NormalizeVector(vectors[i])
				}
			}
		}
	}

	if err := o.chunks.ReplaceSource(ctx, chatbotID, source, stored); err != nil {
		return false, fmt.Errorf("persist chunks for %s: %w", source.Locator, err)
	}

	o.logger.Debug("source indexed",
		"chatbotId", chatbotID, "source", source.Locator, "chunks", len(stored))
	return true, nil
}

// embedTexts runs one embedding batch on the embed pool, so concurrent
// crawl tasks share the embedding concurrency budget.
func (o *Orchestrator) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	var embedErr error
	done := make(chan struct{})

	err := o.embedPool.Submit(func() {
		defer close(done)
		vectors, embedErr = o.embedder.EmbedTexts(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	<-done
	return vectors, embedErr
}
