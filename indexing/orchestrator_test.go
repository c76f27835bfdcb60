package indexing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answerdesk/answerdesk/ai/mock"
	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/fetch"
	"github.com/answerdesk/answerdesk/storage/badger"
)

type fixture struct {
	store        *badger.KnowledgeStore
	fetcher      *fetch.MockFetcher
	embedder     *mock.MockEmbedder
	orchestrator *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store, err := badger.NewMemoryKnowledgeStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fetcher := fetch.NewMockFetcher()
	embedder := mock.NewMockEmbedder()

	base := []Option{
		WithCacheRepository(store.Cache),
		WithFetchRetry(1, time.Millisecond),
	}
	orchestrator, err := NewOrchestrator(store.Jobs, store.Chunks, fetcher, embedder, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(orchestrator.Release)

	return &fixture{store: store, fetcher: fetcher, embedder: embedder, orchestrator: orchestrator}
}

func webSource(locator string) core.SourceRef {
	return core.SourceRef{Type: core.SourceTypeWebsite, Locator: locator}
}

func longText(topic string, sentences int) string {
	var sb strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&sb, "Everything you need to know about %s, part %d. ", topic, i)
	}
	return sb.String()
}

func TestCreateJobValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orchestrator.CreateJob(ctx, "bot-1", nil)
	assert.ErrorIs(t, err, ErrNoSources)

	_, err = f.orchestrator.CreateJob(ctx, "", []core.SourceRef{webSource("https://example.com")})
	assert.ErrorIs(t, err, core.ErrEmptyChatbotID)

	_, err = f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{{Type: core.SourceTypeWebsite}})
	assert.Error(t, err)

	// Nothing was persisted by the failed attempts.
	jobs, err := f.store.Jobs.ListJobs(ctx, "bot-1", 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestRunJobIndexesAllSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sources := []core.SourceRef{
		webSource("https://example.com/pricing"),
		webSource("https://example.com/faq"),
	}
	f.fetcher.SetContent("https://example.com/pricing", &fetch.Content{
		Text: longText("pricing", 30), Title: "Pricing",
	})
	f.fetcher.SetContent("https://example.com/faq", &fetch.Content{
		Text: longText("questions", 30), Title: "FAQ",
	})

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", sources)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.TotalTasks)

	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, final.Status)
	assert.Equal(t, 2, final.CompletedTasks)
	assert.Equal(t, 0, final.FailedTasks)
	assert.Equal(t, 100, final.Progress())
	assert.False(t, final.CompletedAt.IsZero())

	for _, source := range sources {
		chunks, err := f.store.Chunks.GetSourceChunks(ctx, "bot-1", source)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, chunk := range chunks {
			assert.NotEmpty(t, chunk.Vector, "chunks should carry embeddings")
		}
	}
}

func TestRunJobPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.SetContent("https://example.com/good", &fetch.Content{Text: longText("help", 20)})
	// No content for /bad, so its fetch fails.

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/good"),
		webSource("https://example.com/bad"),
	})
	require.NoError(t, err)

	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusPartial, final.Status)
	assert.Equal(t, 1, final.CompletedTasks)
	assert.Equal(t, 1, final.FailedTasks)

	tasks, err := f.store.Jobs.GetTasks(ctx, job.ID)
	require.NoError(t, err)
	for _, task := range tasks {
		if task.Source.Locator == "https://example.com/bad" {
			assert.Equal(t, core.TaskStatusFailed, task.Status)
			assert.Contains(t, task.Error, "fetch")
		} else {
			assert.Equal(t, core.TaskStatusCompleted, task.Status)
			assert.Empty(t, task.Error)
		}
	}
}

func TestRunJobAllFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/missing"),
	})
	require.NoError(t, err)

	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, final.Status)
	assert.Equal(t, 0, final.CompletedTasks)
	assert.Equal(t, 1, final.FailedTasks)
}

func TestRunJobEmbeddingFailureStoresChunksWithoutVectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}
	f.fetcher.SetContent("https://example.com/docs", &fetch.Content{Text: longText("setup", 20)})

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/docs"),
	})
	require.NoError(t, err)

	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, final.Status)

	chunks, err := f.store.Chunks.GetSourceChunks(ctx, "bot-1", webSource("https://example.com/docs"))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.Empty(t, chunk.Vector)
	}
}

func TestRunJobSkipsUnchangedContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := webSource("https://example.com/stable")
	f.fetcher.SetContent("https://example.com/stable", &fetch.Content{Text: longText("stable", 20)})

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{source})
	require.NoError(t, err)
	_, err = f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)

	embedCalls := f.embedder.CallCount()
	require.Greater(t, embedCalls, 0)

	// Second run over identical content: task completes without re-embedding.
	job2, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{source})
	require.NoError(t, err)
	final, err := f.orchestrator.RunJob(ctx, job2.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, final.Status)
	assert.Equal(t, embedCalls, f.embedder.CallCount())
}

func TestRunJobPurgesCacheWhenContentChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := &core.CacheEntry{
		ChatbotID: "bot-1",
		Question:  "what are your hours",
		Hash:      core.HashText("what are your hours"),
		Answer:    "We are open 9 to 5.",
	}
	require.NoError(t, f.store.Cache.PutEntry(ctx, entry))

	f.fetcher.SetContent("https://example.com/hours", &fetch.Content{Text: longText("hours", 20)})
	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/hours"),
	})
	require.NoError(t, err)
	_, err = f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)

	_, err = f.store.Cache.GetEntry(ctx, "bot-1", entry.Hash)
	assert.Error(t, err, "cache should be purged after knowledge changed")
}

func TestCancelJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/a"),
		webSource("https://example.com/b"),
	})
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.CancelJob(ctx, job.ID))
	// Idempotent.
	require.NoError(t, f.orchestrator.CancelJob(ctx, job.ID))

	got, err := f.store.Jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCancelled, got.Status)

	// Running a cancelled job does nothing.
	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCancelled, final.Status)
	assert.Equal(t, 0, f.fetcher.CallCount())
}

func TestCancelJobDuringRun(t *testing.T) {
	f := newFixture(t, WithCrawlPoolSize(1))
	ctx := context.Background()

	var once sync.Once
	release := make(chan struct{})
	f.fetcher.FetchFunc = func(ctx context.Context, source core.SourceRef) (*fetch.Content, error) {
		// First fetch blocks until the job is cancelled; the remaining
		// tasks must then be skipped, not fetched.
		once.Do(func() { <-release })
		return &fetch.Content{Text: longText("slow", 20)}, nil
	}

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/1"),
		webSource("https://example.com/2"),
		webSource("https://example.com/3"),
	})
	require.NoError(t, err)

	done := make(chan *core.IndexingJob, 1)
	go func() {
		final, runErr := f.orchestrator.RunJob(ctx, job.ID)
		assert.NoError(t, runErr)
		done <- final
	}()

	require.Eventually(t, func() bool {
		got, getErr := f.store.Jobs.GetJob(ctx, job.ID)
		return getErr == nil && got.Status == core.JobStatusProcessing
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.orchestrator.CancelJob(ctx, job.ID))
	close(release)

	final := <-done
	assert.Equal(t, core.JobStatusCancelled, final.Status)
	// Only the in-flight task settled; the rest were never dispatched.
	assert.Equal(t, 1, final.CompletedTasks+final.FailedTasks)
	assert.Equal(t, 1, f.fetcher.CallCount())
}

func TestCancelJobAfterCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.SetContent("https://example.com/done", &fetch.Content{Text: longText("done", 20)})
	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/done"),
	})
	require.NoError(t, err)
	_, err = f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)

	err = f.orchestrator.CancelJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobNotCancellable)
}

func TestRetryJobReRunsOnlyFailedSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.SetContent("https://example.com/good", &fetch.Content{Text: longText("good", 20)})

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/good"),
		webSource("https://example.com/flaky"),
	})
	require.NoError(t, err)
	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, core.JobStatusPartial, final.Status)

	// The flaky source recovers before the retry.
	f.fetcher.SetContent("https://example.com/flaky", &fetch.Content{Text: longText("flaky", 20)})

	retry, err := f.orchestrator.RetryJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retry.RetryOf)
	assert.Equal(t, 1, retry.TotalTasks)

	tasks, err := f.store.Jobs.GetTasks(ctx, retry.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "https://example.com/flaky", tasks[0].Source.Locator)

	retried, err := f.orchestrator.RunJob(ctx, retry.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, retried.Status)
}

func TestRetryJobInvalidStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.SetContent("https://example.com/ok", &fetch.Content{Text: longText("ok", 20)})

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/ok"),
	})
	require.NoError(t, err)

	// Pending jobs are not retryable.
	_, err = f.orchestrator.RetryJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobNotRetryable)

	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, core.JobStatusCompleted, final.Status)

	// Completed jobs are not retryable either.
	_, err = f.orchestrator.RetryJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobNotRetryable)
}

func TestRunJobReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	f := newFixture(t, WithProgress(func(job *core.IndexingJob) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Progress())
	}))
	ctx := context.Background()

	f.fetcher.SetContent("https://example.com/x", &fetch.Content{Text: longText("x", 20)})
	f.fetcher.SetContent("https://example.com/y", &fetch.Content{Text: longText("y", 20)})

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/x"),
		webSource("https://example.com/y"),
	})
	require.NoError(t, err)
	_, err = f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Contains(t, seen, 100)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	f := newFixture(t, WithFetchRetry(3, time.Millisecond))
	ctx := context.Background()

	var calls int
	var mu sync.Mutex
	f.fetcher.FetchFunc = func(ctx context.Context, source core.SourceRef) (*fetch.Content, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return nil, fetch.ErrFetchFailed
		}
		return &fetch.Content{Text: longText("retry", 20)}, nil
	}

	job, err := f.orchestrator.CreateJob(ctx, "bot-1", []core.SourceRef{
		webSource("https://example.com/transient"),
	})
	require.NoError(t, err)

	final, err := f.orchestrator.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, final.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}

func TestNewOrchestratorValidation(t *testing.T) {
	store, err := badger.NewMemoryKnowledgeStore()
	require.NoError(t, err)
	defer store.Close()

	fetcher := fetch.NewMockFetcher()
	embedder := mock.NewMockEmbedder()

	_, err = NewOrchestrator(nil, store.Chunks, fetcher, embedder)
	assert.ErrorIs(t, err, ErrJobRepositoryRequired)

	_, err = NewOrchestrator(store.Jobs, nil, fetcher, embedder)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewOrchestrator(store.Jobs, store.Chunks, nil, embedder)
	assert.ErrorIs(t, err, ErrFetcherRequired)

	_, err = NewOrchestrator(store.Jobs, store.Chunks, fetcher, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
