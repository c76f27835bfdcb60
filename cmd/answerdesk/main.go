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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/answerdesk/answerdesk"
	"github.com/answerdesk/answerdesk/ai"
	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/indexing"
	"github.com/answerdesk/answerdesk/resolve"
	"github.com/answerdesk/answerdesk/schedule"
)

func main() {
	app := &cli.App{
		Name:  "answerdesk",
		Usage: "Knowledge ingestion and retrieval pipeline for support chatbots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index knowledge sources for a chatbot",
				Action: indexCommand,
				Flags: append(commonFlags(),
					&cli.StringSliceFlag{
						Name:  "url",
						Usage: "Website URL to crawl (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "doc",
						Usage: "Document file name to ingest (repeatable)",
					},
					&cli.StringFlag{
						Name:  "doc-dir",
						Usage: "Directory uploaded documents are read from",
						Value: ".",
					},
					&cli.IntFlag{
						Name:  "crawl-workers",
						Usage: "Number of sources fetched concurrently",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "embed-workers",
						Usage: "Number of concurrent embedding batches",
						Value: 2,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Ask a question against a chatbot's knowledge base",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "stream",
						Usage: "Stream the answer as it is generated",
					},
					&cli.StringFlag{
						Name:  "escalation-phone",
						Usage: "Phone number appended to answers that cannot help",
					},
				),
			},
			{
				Name:   "jobs",
				Usage:  "List recent indexing jobs of a chatbot",
				Action: jobsCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to list",
						Value: 20,
					},
				),
			},
			{
				Name:   "cancel-job",
				Usage:  "Cancel a pending or processing indexing job",
				Action: cancelJobCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "job",
						Usage:    "Job ID to cancel",
						Required: true,
					},
				),
			},
			{
				Name:   "retry-job",
				Usage:  "Retry the failed sources of a failed or partial job",
				Action: retryJobCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "job",
						Usage:    "Job ID to retry",
						Required: true,
					},
				),
			},
			{
				Name:   "set-schedule",
				Usage:  "Configure a chatbot's recurring reindex",
				Action: setScheduleCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "mode",
						Usage:    "Recurrence mode (disabled, once, daily, weekly)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "time",
						Usage: "Wall-clock run time, HH:MM",
						Value: "03:00",
					},
					&cli.StringFlag{
						Name:  "timezone",
						Usage: "IANA timezone name, e.g. Europe/Berlin",
					},
					&cli.StringSliceFlag{
						Name:  "weekday",
						Usage: "Weekday for weekly mode (repeatable), e.g. monday",
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Run date for once mode, YYYY-MM-DD",
					},
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Dashboard user notified when a run fails",
					},
					&cli.StringSliceFlag{
						Name:  "url",
						Usage: "Website URL to reindex (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "doc",
						Usage: "Document file name to reindex (repeatable)",
					},
				),
			},
			{
				Name:   "run-scheduler",
				Usage:  "Run the recurring reindex scheduler until interrupted",
				Action: runSchedulerCommand,
				Flags: append(commonFlags(),
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Poll interval of the scheduler loop",
						Value: time.Minute,
					},
					&cli.StringFlag{
						Name:  "doc-dir",
						Usage: "Directory uploaded documents are read from",
						Value: ".",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commonFlags returns the flags shared by every command: store location,
// chatbot identity, and AI provider settings.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the knowledge store directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "chatbot",
			Aliases: []string{"c"},
			Usage:   "Chatbot ID",
		},
		&cli.StringFlag{
			Name:  "ai-host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name",
			Value: "qwen2.5:3b",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the AI service",
			Value:   "none",
			EnvVars: []string{"ANSWERDESK_API_KEY"},
		},
	}
}

func openPlatform(c *cli.Context, extra ...answerdesk.PlatformOption) (*answerdesk.Platform, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := append([]answerdesk.PlatformOption{answerdesk.WithAIConfig(aiConfig)}, extra...)
	platform, err := answerdesk.NewPlatform(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}
	return platform, nil
}

func requireChatbot(c *cli.Context) (string, error) {
	chatbotID := c.String("chatbot")
	if chatbotID == "" {
		return "", fmt.Errorf("chatbot ID is required")
	}
	return chatbotID, nil
}

func collectSources(c *cli.Context) []core.SourceRef {
	var sources []core.SourceRef
	for _, url := range c.StringSlice("url") {
		sources = append(sources, core.SourceRef{Type: core.SourceTypeWebsite, Locator: url})
	}
	for _, doc := range c.StringSlice("doc") {
		sources = append(sources, core.SourceRef{Type: core.SourceTypeDocument, Locator: doc})
	}
	return sources
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	chatbotID, err := requireChatbot(c)
	if err != nil {
		return err
	}
	sources := collectSources(c)
	if len(sources) == 0 {
		return fmt.Errorf("at least one --url or --doc is required")
	}

	platform, err := openPlatform(c, answerdesk.WithDocumentDir(c.String("doc-dir")))
	if err != nil {
		return err
	}
	defer platform.Close()

	tracker := indexing.NewProgressTracker(os.Stderr, len(sources), 1)
	orchestrator, err := platform.NewOrchestrator(
		indexing.WithCrawlPoolSize(c.Int("crawl-workers")),
		indexing.WithEmbedPoolSize(c.Int("embed-workers")),
		indexing.WithProgress(func(job *core.IndexingJob) {
			tracker.Update(job.CompletedTasks + job.FailedTasks)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Release()

	job, err := orchestrator.CreateJob(ctx, chatbotID, sources)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexing %d sources for chatbot %s (job %s)\n",
		len(sources), chatbotID, job.ID)
	tracker.Start()

	final, err := orchestrator.RunJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	tracker.Finish()

	fmt.Fprintf(os.Stderr, "Job %s finished %s: %d completed, %d failed (%.1fs)\n",
		final.ID, final.Status, final.CompletedTasks, final.FailedTasks,
		tracker.Elapsed().Seconds())

	if final.Status != core.JobStatusCompleted {
		tasks, listErr := platform.Store().Jobs.GetTasks(ctx, final.ID)
		if listErr == nil {
			for _, task := range tasks {
				if task.Status == core.TaskStatusFailed {
					fmt.Fprintf(os.Stderr, "  failed: %s: %s\n", task.Source.Locator, task.Error)
				}
			}
		}
	}
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	chatbotID, err := requireChatbot(c)
	if err != nil {
		return err
	}
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("a question is required")
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	var engineOpts []resolve.Option
	if phone := c.String("escalation-phone"); phone != "" {
		engineOpts = append(engineOpts, resolve.WithEscalationPhone(phone))
	}
	engine, err := platform.NewResolutionEngine(engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer engine.Release()

	if c.Bool("stream") {
		stream, err := engine.ResolveStream(ctx, chatbotID, question, nil)
		if err != nil {
			return fmt.Errorf("resolution failed: %w", err)
		}
		for chunk := range stream {
			if chunk.Err != nil {
				fmt.Println()
				return fmt.Errorf("resolution failed: %w", chunk.Err)
			}
			fmt.Print(chunk.Content)
		}
		fmt.Println()
		return nil
	}

	answer, err := engine.Resolve(ctx, chatbotID, question, nil)
	if err != nil {
		return fmt.Errorf("resolution failed: %w", err)
	}

	fmt.Println(answer.Text)
	fmt.Fprintf(os.Stderr, "\n[answered from: %s]\n", answer.Source)
	for _, followUp := range answer.FollowUps {
		fmt.Fprintf(os.Stderr, "  suggested: %s\n", followUp)
	}
	return nil
}

func jobsCommand(c *cli.Context) error {
	ctx := context.Background()

	chatbotID, err := requireChatbot(c)
	if err != nil {
		return err
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	jobs, err := platform.Store().Jobs.ListJobs(ctx, chatbotID, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}
	for _, job := range jobs {
		line := fmt.Sprintf("%s  %-10s  %3d%%  %d/%d tasks",
			job.ID, job.Status, job.Progress(), job.CompletedTasks, job.TotalTasks)
		if job.Error != "" {
			line += "  " + job.Error
		}
		fmt.Println(line)
	}
	return nil
}

func cancelJobCommand(c *cli.Context) error {
	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	orchestrator, err := platform.NewOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Release()

	jobID := c.String("job")
	if err := orchestrator.CancelJob(context.Background(), jobID); err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	fmt.Printf("Job %s cancelled\n", jobID)
	return nil
}

func retryJobCommand(c *cli.Context) error {
	ctx := context.Background()

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	orchestrator, err := platform.NewOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Release()

	retry, err := orchestrator.RetryJob(ctx, c.String("job"))
	if err != nil {
		return fmt.Errorf("failed to retry job: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Retrying %d failed sources (job %s)\n", retry.TotalTasks, retry.ID)
	final, err := orchestrator.RunJob(ctx, retry.ID)
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Job %s finished %s: %d completed, %d failed\n",
		final.ID, final.Status, final.CompletedTasks, final.FailedTasks)
	return nil
}

func setScheduleCommand(c *cli.Context) error {
	ctx := context.Background()

	chatbotID, err := requireChatbot(c)
	if err != nil {
		return err
	}
	mode, err := parseMode(c.String("mode"))
	if err != nil {
		return err
	}
	weekdays, err := parseWeekdays(c.StringSlice("weekday"))
	if err != nil {
		return err
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	orchestrator, err := platform.NewOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Release()

	scheduler, err := platform.NewScheduler(orchestrator)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	sched := &core.ReindexSchedule{
		ChatbotID: chatbotID,
		OwnerID:   c.String("owner"),
		Mode:      mode,
		TimeOfDay: c.String("time"),
		Timezone:  c.String("timezone"),
		Weekdays:  weekdays,
		OnceDate:  c.String("date"),
		Sources:   collectSources(c),
	}
	if err := scheduler.Configure(ctx, sched); err != nil {
		return fmt.Errorf("failed to configure schedule: %w", err)
	}

	if sched.NextRunAt.IsZero() {
		fmt.Printf("Schedule for %s stored (%s, no run planned)\n", chatbotID, mode)
	} else {
		fmt.Printf("Schedule for %s stored (%s, next run %s)\n",
			chatbotID, mode, sched.NextRunAt.Format(time.RFC3339))
	}
	return nil
}

func runSchedulerCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	platform, err := openPlatform(c, answerdesk.WithDocumentDir(c.String("doc-dir")))
	if err != nil {
		return err
	}
	defer platform.Close()

	orchestrator, err := platform.NewOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Release()

	scheduler, err := platform.NewScheduler(orchestrator,
		schedule.WithInterval(c.Duration("interval")))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	scheduler.Start(ctx)
	fmt.Fprintf(os.Stderr, "Scheduler running (interval %s), press Ctrl-C to stop\n",
		c.Duration("interval"))

	<-ctx.Done()
	scheduler.Stop()
	return nil
}

func parseMode(s string) (core.ScheduleMode, error) {
	switch strings.ToLower(s) {
	case "disabled":
		return core.ScheduleDisabled, nil
	case "once":
		return core.ScheduleOnce, nil
	case "daily":
		return core.ScheduleDaily, nil
	case "weekly":
		return core.ScheduleWeekly, nil
	default:
		return 0, fmt.Errorf("invalid mode %q: must be one of disabled, once, daily, weekly", s)
	}
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	byName := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}

	var weekdays []time.Weekday
	for _, name := range names {
		day, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q", name)
		}
		weekdays = append(weekdays, day)
	}
	return weekdays, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
