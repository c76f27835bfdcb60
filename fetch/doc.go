// Package fetch retrieves the raw content of knowledge sources: crawled
// website pages and uploaded documents. It is the task-level external
// dependency of the indexing pipeline; callers bound each fetch with the
// task context and record failures on the owning task.
package fetch
