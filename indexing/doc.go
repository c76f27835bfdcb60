// Package indexing orchestrates knowledge ingestion jobs.
//
// A job indexes a set of knowledge sources for one chatbot. Each source
// becomes a task that is fetched, split into chunks, embedded, and
// persisted; failed sources fail their task without sinking the job, which
// finishes completed, partial, or failed depending on the task outcomes.
//
// Jobs are durable: the orchestrator keeps all state in the job repository
// and claims tasks through it, so cancellation is cooperative and works
// across processes, and a crashed run can be re-driven with RunJob.
// Failed and partial jobs can be retried with RetryJob, which re-runs only
// the sources that failed.
//
// Fetching and embedding run on separate bounded worker pools, reflecting
// their different bottlenecks (site latency vs. provider rate limits).
package indexing
