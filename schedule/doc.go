// Package schedule runs timezone-aware recurring reindexes.
//
// A chatbot's ReindexSchedule selects a recurrence mode (once, daily, or
// weekly), a wall-clock time, and an IANA timezone. The Scheduler polls at
// a fixed interval: schedules whose next run has arrived get a fresh
// indexing job, and runs whose job has finished are reconciled to success
// or failure, alerting the owner through the notify sinks on failure.
//
// Next-run times are deterministic given a schedule and a reference time;
// see NextRun.
package schedule
