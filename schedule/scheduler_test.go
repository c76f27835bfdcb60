package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/notify"
	"github.com/answerdesk/answerdesk/storage/badger"
)

// fakeRunner drives created jobs straight to a configured outcome, so the
// scheduler's two passes can be tested deterministically.
type fakeRunner struct {
	store     *badger.KnowledgeStore
	taskError string // non-empty fails every task
	createErr error

	mu      sync.Mutex
	created []string
}

func (r *fakeRunner) CreateJob(ctx context.Context, chatbotID string, sources []core.SourceRef) (*core.IndexingJob, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}

	job := &core.IndexingJob{
		ID:         uuid.NewString(),
		ChatbotID:  chatbotID,
		Status:     core.JobStatusPending,
		TotalTasks: len(sources),
	}
	tasks := make([]*core.IndexingTask, len(sources))
	for i, source := range sources {
		tasks[i] = &core.IndexingTask{
			ID:     uuid.NewString(),
			JobID:  job.ID,
			Source: source,
			Status: core.TaskStatusPending,
		}
	}
	if err := r.store.Jobs.CreateJob(ctx, job, tasks); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.created = append(r.created, job.ID)
	r.mu.Unlock()
	return job, nil
}

func (r *fakeRunner) RunJob(ctx context.Context, jobID string) (*core.IndexingJob, error) {
	if _, err := r.store.Jobs.UpdateJobStatus(ctx, jobID, core.JobStatusProcessing, ""); err != nil {
		return nil, err
	}
	tasks, err := r.store.Jobs.GetTasks(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var job *core.IndexingJob
	for _, task := range tasks {
		if job, err = r.store.Jobs.SettleTask(ctx, jobID, task.ID, r.taskError); err != nil {
			return nil, err
		}
	}
	return job, nil
}

func (r *fakeRunner) createdJobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.created...)
}

type schedulerFixture struct {
	store     *badger.KnowledgeStore
	runner    *fakeRunner
	mailer    *notify.MockMailer
	inApp     *notify.MockInApp
	scheduler *Scheduler
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	store, err := badger.NewMemoryKnowledgeStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runner := &fakeRunner{store: store}
	// Dispatched jobs run in fire-and-forget goroutines; wait for them to
	// settle before the store is closed, or teardown races the job.
	t.Cleanup(func() {
		deadline := time.Now().Add(2 * time.Second)
		for _, jobID := range runner.createdJobs() {
			for time.Now().Before(deadline) {
				job, err := store.Jobs.GetJob(context.Background(), jobID)
				if err == nil && job.Status.Terminal() {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
		}
	})
	mailer := notify.NewMockMailer()
	inApp := notify.NewMockInApp()

	scheduler, err := NewScheduler(store.Schedules, store.Jobs, runner,
		WithNotifiers(mailer, inApp),
		WithInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	return &schedulerFixture{
		store: store, runner: runner, mailer: mailer, inApp: inApp, scheduler: scheduler,
	}
}

func dueSchedule(chatbotID string) *core.ReindexSchedule {
	return &core.ReindexSchedule{
		ChatbotID: chatbotID,
		OwnerID:   "owner-1",
		Mode:      core.ScheduleDaily,
		TimeOfDay: "03:00",
		Sources:   []core.SourceRef{{Type: core.SourceTypeWebsite, Locator: "https://example.com"}},
		NextRunAt: time.Now().Add(-time.Minute),
	}
}

func TestSchedulerTriggersAndReconcilesSuccess(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Schedules.PutSchedule(ctx, dueSchedule("bot-1")))

	now := time.Now()
	f.scheduler.Tick(ctx, now)

	sched, err := f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, f.runner.createdJobs(), 1)
	assert.NotEmpty(t, sched.LastJobID)
	assert.True(t, sched.NextRunAt.After(now), "next run should be planned")

	// The job runs asynchronously; wait for it to finish, then reconcile.
	require.Eventually(t, func() bool {
		job, getErr := f.store.Jobs.GetJob(ctx, sched.LastJobID)
		return getErr == nil && job.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	f.scheduler.Tick(ctx, time.Now())

	sched, err = f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSuccess, sched.LastRunStatus)
	assert.Empty(t, sched.LastRunError)
	assert.Empty(t, f.mailer.Emails())
	assert.Empty(t, f.inApp.Calls())

	// Still daily: exactly one job was created.
	assert.Len(t, f.runner.createdJobs(), 1)
}

func TestSchedulerNotifiesOnFailure(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.runner.taskError = "fetch blew up"
	// The email sink failing must not suppress the in-app notification.
	f.mailer.SendEmailFunc = func(ctx context.Context, to, subject, body string) error {
		return errors.New("smtp down")
	}

	require.NoError(t, f.store.Schedules.PutSchedule(ctx, dueSchedule("bot-1")))

	f.scheduler.Tick(ctx, time.Now())

	sched, err := f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, getErr := f.store.Jobs.GetJob(ctx, sched.LastJobID)
		return getErr == nil && job.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	f.scheduler.Tick(ctx, time.Now())

	sched, err = f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, sched.LastRunStatus)
	assert.NotEmpty(t, sched.LastRunError)

	require.Len(t, f.mailer.Emails(), 1)
	assert.Equal(t, "owner-1", f.mailer.Emails()[0].To)

	require.Len(t, f.inApp.Calls(), 1)
	assert.Equal(t, "owner-1", f.inApp.Calls()[0].UserID)
	assert.Equal(t, "bot-1", f.inApp.Calls()[0].Payload.ChatbotID)
}

func TestSchedulerOnceAutoDisables(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	sched := dueSchedule("bot-1")
	sched.Mode = core.ScheduleOnce
	sched.OnceDate = "2024-01-01"
	require.NoError(t, f.store.Schedules.PutSchedule(ctx, sched))

	f.scheduler.Tick(ctx, time.Now())

	got, err := f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, core.ScheduleDisabled, got.Mode)
	assert.True(t, got.NextRunAt.IsZero())
	assert.Len(t, f.runner.createdJobs(), 1)

	// Disabled now: later ticks do not trigger again.
	f.scheduler.Tick(ctx, time.Now())
	assert.Len(t, f.runner.createdJobs(), 1)
}

func TestSchedulerJobCreationFailureFailsRun(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.runner.createErr = errors.New("no sources configured")
	require.NoError(t, f.store.Schedules.PutSchedule(ctx, dueSchedule("bot-1")))

	now := time.Now()
	f.scheduler.Tick(ctx, now)

	sched, err := f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, sched.LastRunStatus)
	assert.Contains(t, sched.LastRunError, "no sources")
	assert.Empty(t, sched.LastJobID)
	assert.True(t, sched.NextRunAt.After(now), "failed run still plans the next one")

	require.Len(t, f.mailer.Emails(), 1)
	require.Len(t, f.inApp.Calls(), 1)
}

func TestSchedulerDoesNotRetriggerRunningSchedule(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	sched := dueSchedule("bot-1")
	sched.LastRunStatus = core.RunStatusRunning
	sched.LastJobID = "some-job"
	require.NoError(t, f.store.Schedules.PutSchedule(ctx, sched))

	f.scheduler.Tick(ctx, time.Now())
	assert.Empty(t, f.runner.createdJobs())
}

func TestSchedulerReconcilesMissingJobAsFailure(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	sched := dueSchedule("bot-1")
	sched.LastRunStatus = core.RunStatusRunning
	sched.LastJobID = "gone"
	sched.NextRunAt = time.Now().Add(time.Hour)
	require.NoError(t, f.store.Schedules.PutSchedule(ctx, sched))

	f.scheduler.Tick(ctx, time.Now())

	got, err := f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, got.LastRunStatus)
	assert.Contains(t, got.LastRunError, "not found")
}

func TestConfigureComputesNextRun(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	sched := &core.ReindexSchedule{
		ChatbotID: "bot-1",
		Mode:      core.ScheduleDaily,
		TimeOfDay: "03:00",
	}
	require.NoError(t, f.scheduler.Configure(ctx, sched))
	assert.False(t, sched.NextRunAt.IsZero())

	got, err := f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, sched.NextRunAt.UnixMicro(), got.NextRunAt.UnixMicro())

	// Invalid schedules are rejected before touching the store.
	err = f.scheduler.Configure(ctx, &core.ReindexSchedule{
		ChatbotID: "bot-2", Mode: core.ScheduleDaily, TimeOfDay: "bad",
	})
	assert.ErrorIs(t, err, core.ErrInvalidSchedule)
	_, err = f.store.Schedules.GetSchedule(ctx, "bot-2")
	assert.Error(t, err)
}

func TestConfigureOncePastDateDisables(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	// A one-shot date in the past will never fire. Configure stores it
	// disabled instead of leaving a live mode with a zero NextRunAt.
	sched := &core.ReindexSchedule{
		ChatbotID: "bot-1",
		Mode:      core.ScheduleOnce,
		TimeOfDay: "03:00",
		OnceDate:  "2020-01-01",
	}
	require.NoError(t, f.scheduler.Configure(ctx, sched))
	assert.Equal(t, core.ScheduleDisabled, sched.Mode)
	assert.True(t, sched.NextRunAt.IsZero())

	got, err := f.store.Schedules.GetSchedule(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, core.ScheduleDisabled, got.Mode)
	assert.True(t, got.NextRunAt.IsZero())
}

func TestSchedulerStartStop(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Schedules.PutSchedule(ctx, dueSchedule("bot-1")))

	f.scheduler.Start(ctx)
	defer f.scheduler.Stop()

	require.Eventually(t, func() bool {
		return len(f.runner.createdJobs()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
