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


package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/notify"
	"github.com/answerdesk/answerdesk/storage"
)

const defaultInterval = time.Minute

// JobRunner creates and executes indexing jobs. *indexing.Orchestrator
// satisfies it.
type JobRunner interface {
	CreateJob(ctx context.Context, chatbotID string, sources []core.SourceRef) (*core.IndexingJob, error)
	RunJob(ctx context.Context, jobID string) (*core.IndexingJob, error)
}

// Scheduler drives recurring reindexes. A single loop polls at a fixed
// interval and performs two independent passes per tick: trigger schedules
// that are due, and reconcile runs whose job has since finished. All state
// lives in the schedule repository, so a restarted process picks up where
// the previous one stopped.
type Scheduler struct {
	schedules storage.ScheduleRepository
	jobs      storage.JobRepository
	runner    JobRunner
	mailer    notify.Mailer
	inApp     notify.InApp
	interval  time.Duration
	logger    *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithInterval sets the poll interval. Default is one minute.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		s.interval = interval
		return nil
	}
}

// WithNotifiers sets the sinks alerted when a scheduled run fails.
// Defaults are logging sinks.
func WithNotifiers(mailer notify.Mailer, inApp notify.InApp) Option {
	return func(s *Scheduler) error {
		if mailer != nil {
			s.mailer = mailer
		}
		if inApp != nil {
			s.inApp = inApp
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler over the given repositories and runner.
func NewScheduler(
	schedules storage.ScheduleRepository,
	jobs storage.JobRepository,
	runner JobRunner,
	opts ...Option,
) (*Scheduler, error) {
	if schedules == nil {
		return nil, ErrScheduleRepositoryRequired
	}
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if runner == nil {
		return nil, ErrRunnerRequired
	}

	s := &Scheduler{
		schedules: schedules,
		jobs:      jobs,
		runner:    runner,
		mailer:    notify.NewLogMailer(nil),
		inApp:     notify.NewLogInApp(nil),
		interval:  defaultInterval,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Configure validates and stores a chatbot's schedule with a freshly
// computed next run time. Storing a disabled schedule clears the next run.
func (s *Scheduler) Configure(ctx context.Context, sched *core.ReindexSchedule) error {
	if err := core.ValidateSchedule(sched); err != nil {
		return err
	}

	next, err := NextRun(sched, time.Now())
	if err != nil {
		return err
	}
	// A once schedule whose date already passed has nothing left to
	// run; store it disabled rather than with a zero NextRunAt.
	if sched.Mode == core.ScheduleOnce && next.IsZero() {
		sched.Mode = core.ScheduleDisabled
	}
	sched.NextRunAt = next

	if err := s.schedules.PutSchedule(ctx, sched); err != nil {
		return err
	}

	s.logger.Info("schedule configured",
		"chatbotId", sched.ChatbotID, "mode", sched.Mode.String(), "nextRunAt", next)
	return nil
}

// Start launches the poll loop. It returns immediately; Stop shuts the
// loop down and waits for it to exit.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped")
				return
			case <-ticker.C:
				s.Tick(ctx, time.Now())
			}
		}
	}()
}

// Stop shuts down the poll loop. Jobs already dispatched keep running.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Tick runs one scheduler iteration: the due-check pass, then the
// reconciliation pass. Errors are logged, never propagated, so a bad
// schedule cannot take the loop down. Exported so a caller can drive the
// scheduler manually.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.runDue(ctx, now)
	s.reconcile(ctx)
}

// runDue triggers every schedule whose next run time has arrived.
func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	due, err := s.schedules.DueSchedules(ctx, now)
	if err != nil {
		s.logger.Error("due schedule query failed", "error", err)
		return
	}

	for _, sched := range due {
		s.trigger(ctx, sched, now)
	}
}

// trigger starts one scheduled run and plans the next.
func (s *Scheduler) trigger(ctx context.Context, sched *core.ReindexSchedule, now time.Time) {
	job, err := s.runner.CreateJob(ctx, sched.ChatbotID, sched.Sources)
	if err != nil {
		// Configuration errors (no sources) fail the run immediately;
		// there is no job to reconcile later.
		sched.LastRunStatus = core.RunStatusFailed
		sched.LastRunError = err.Error()
		sched.LastJobID = ""
		s.logger.Error("scheduled job creation failed",
			"chatbotId", sched.ChatbotID, "error", err)
		s.notifyFailure(ctx, sched, "")
	} else {
		sched.LastRunStatus = core.RunStatusRunning
		sched.LastRunError = ""
		sched.LastJobID = job.ID
		s.logger.Info("scheduled reindex triggered",
			"chatbotId", sched.ChatbotID, "jobId", job.ID)
	}

	if sched.Mode == core.ScheduleOnce {
		// One-shot schedules retire after their run is triggered.
		sched.Mode = core.ScheduleDisabled
		sched.NextRunAt = time.Time{}
	} else {
		next, nextErr := NextRun(sched, now)
		if nextErr != nil {
			s.logger.Error("next run computation failed",
				"chatbotId", sched.ChatbotID, "error", nextErr)
			next = time.Time{}
		}
		sched.NextRunAt = next
	}

	if err := s.schedules.PutSchedule(ctx, sched); err != nil {
		s.logger.Error("schedule update failed",
			"chatbotId", sched.ChatbotID, "error", err)
		return
	}

	if job != nil {
		runCtx := context.WithoutCancel(ctx)
		go func() {
			if _, runErr := s.runner.RunJob(runCtx, job.ID); runErr != nil {
				s.logger.Error("scheduled job execution failed",
					"chatbotId", sched.ChatbotID, "jobId", job.ID, "error", runErr)
			}
		}()
	}
}

// reconcile settles schedules whose triggered job has since finished.
func (s *Scheduler) reconcile(ctx context.Context) {
	running, err := s.schedules.RunningSchedules(ctx)
	if err != nil {
		s.logger.Error("running schedule query failed", "error", err)
		return
	}

	for _, sched := range running {
		job, err := s.jobs.GetJob(ctx, sched.LastJobID)
		if err != nil {
			sched.LastRunStatus = core.RunStatusFailed
			sched.LastRunError = fmt.Sprintf("job %s not found", sched.LastJobID)
			s.notifyFailure(ctx, sched, sched.LastJobID)
			s.putReconciled(ctx, sched)
			continue
		}
		if !job.Status.Terminal() {
			continue
		}

		if job.Status == core.JobStatusCompleted {
			sched.LastRunStatus = core.RunStatusSuccess
			sched.LastRunError = ""
			s.logger.Info("scheduled reindex succeeded",
				"chatbotId", sched.ChatbotID, "jobId", job.ID)
		} else {
			sched.LastRunStatus = core.RunStatusFailed
			sched.LastRunError = runErrorMessage(job)
			s.logger.Warn("scheduled reindex failed",
				"chatbotId", sched.ChatbotID, "jobId", job.ID,
				"status", job.Status.String(), "error", sched.LastRunError)
			s.notifyFailure(ctx, sched, job.ID)
		}
		s.putReconciled(ctx, sched)
	}
}

func (s *Scheduler) putReconciled(ctx context.Context, sched *core.ReindexSchedule) {
	if err := s.schedules.PutSchedule(ctx, sched); err != nil {
		s.logger.Error("schedule update failed",
			"chatbotId", sched.ChatbotID, "error", err)
	}
}

// notifyFailure alerts the schedule's owner through both sinks. The two
// deliveries are independent: either may fail without suppressing the
// other, and neither failure affects the schedule state.
func (s *Scheduler) notifyFailure(ctx context.Context, sched *core.ReindexSchedule, jobID string) {
	if sched.OwnerID == "" {
		return
	}

	subject := "Scheduled reindex failed"
	body := fmt.Sprintf("The scheduled knowledge reindex for chatbot %s failed: %s",
		sched.ChatbotID, sched.LastRunError)

	if err := s.mailer.SendEmail(ctx, sched.OwnerID, subject, body); err != nil {
		s.logger.Warn("failure email not delivered",
			"chatbotId", sched.ChatbotID, "ownerId", sched.OwnerID, "error", err)
	}

	payload := notify.Notification{
		Title:     subject,
		Body:      body,
		ChatbotID: sched.ChatbotID,
		JobID:     jobID,
	}
	if err := s.inApp.CreateNotification(ctx, sched.OwnerID, payload); err != nil {
		s.logger.Warn("in-app notification not delivered",
			"chatbotId", sched.ChatbotID, "ownerId", sched.OwnerID, "error", err)
	}
}

// runErrorMessage summarizes why a job did not fully succeed.
func runErrorMessage(job *core.IndexingJob) string {
	switch {
	case job.Error != "":
		return job.Error
	case job.Status == core.JobStatusPartial:
		return fmt.Sprintf("%d of %d sources failed", job.FailedTasks, job.TotalTasks)
	default:
		return fmt.Sprintf("job finished %s", job.Status)
	}
}
