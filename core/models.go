package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Hash is a stable 64-bit digest of a piece of text.
// It is used for chunk change detection and for exact-match lookup of
// cached answers and manual overrides.
type Hash uint64

// HashText computes a deterministic Hash from text using BLAKE2b.
// Identical text always produces an identical hash.
func HashText(text string) Hash {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return Hash(binary.LittleEndian.Uint64(sum))
}

// NormalizeQuestion canonicalizes a visitor question for hashing and
// cache lookup: lowercased, trimmed, with internal whitespace collapsed.
// Two questions that normalize identically always share a Hash.
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// SourceType identifies where a knowledge source's content comes from.
type SourceType int

const (
	// SourceTypeWebsite is a crawled web page, located by URL.
	SourceTypeWebsite SourceType = iota + 1
	// SourceTypeDocument is an uploaded document, located by file name.
	SourceTypeDocument
)

// String returns the lowercase name of the source type.
func (t SourceType) String() string {
	switch t {
	case SourceTypeWebsite:
		return "website"
	case SourceTypeDocument:
		return "document"
	default:
		return "unknown"
	}
}

// SourceRef identifies a single knowledge source of a chatbot.
type SourceRef struct {
	Type    SourceType
	Locator string // URL for websites, file name for documents
}

// KnowledgeChunk is a bounded slice of a source's text, independently
// embeddable and retrievable. A chunk slot is identified by
// (ChatbotID, Source, Index); Hash changes iff Text changes, which is
// what makes no-op reindexing detectable.
type KnowledgeChunk struct {
	ChatbotID  string
	Source     SourceRef
	Index      int // ordinal position within the source
	Text       string
	Hash       Hash
	Vector     []float32 // empty until embedded; empty is a valid degraded state
	Metadata   map[string]string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// CacheEntry is an automatically cached question/answer pair.
// Entries are created on every LLM cache-miss resolution and reused for
// verbatim repeats (Hash) and close paraphrases (Vector).
type CacheEntry struct {
	ChatbotID  string
	Question   string // normalized form
	Hash       Hash   // HashText(Question)
	Vector     []float32
	Answer     string
	FollowUps  []string // suggested follow-up questions, best effort
	HitCount   int
	LastUsedAt time.Time
	InsertedAt time.Time
}

// ManualOverride is a human-authored answer that permanently supersedes
// the automated answer for a question. Overrides share CacheEntry keying
// but always outrank cache entries during resolution.
type ManualOverride struct {
	ChatbotID      string
	Question       string // normalized form
	Hash           Hash
	Vector         []float32
	Answer         string
	PreviousAnswer string // the automated answer being corrected, kept for audit
	ConversationID string // conversation the correction originated from, if any
	UseCount       int
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

// JobStatus is the lifecycle state of an indexing job.
// Status is monotonic: once a job reaches a terminal state it is never
// reopened; a retry creates a new job.
type JobStatus int

const (
	JobStatusPending JobStatus = iota + 1
	JobStatusProcessing
	JobStatusCompleted
	JobStatusPartial
	JobStatusFailed
	JobStatusCancelled
)

// String returns the lowercase name of the job status.
func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusProcessing:
		return "processing"
	case JobStatusCompleted:
		return "completed"
	case JobStatusPartial:
		return "partial"
	case JobStatusFailed:
		return "failed"
	case JobStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusPartial, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a job may move from s to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusFailed || next == JobStatusCancelled
	case JobStatusProcessing:
		return next.Terminal()
	default:
		return false
	}
}

// IndexingJob is one reindex operation for a chatbot, made of one
// IndexingTask per source.
type IndexingJob struct {
	ID             string
	ChatbotID      string
	Status         JobStatus
	TotalTasks     int
	CompletedTasks int
	FailedTasks    int
	Error          string
	RetryOf        string // ID of the failed job this one retries, if any
	CreatedAt      time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
}

// Progress returns job completion as an integer percentage.
// It counts both completed and failed tasks as settled, so the value is
// monotonic for the life of the job.
func (j *IndexingJob) Progress() int {
	if j.TotalTasks == 0 {
		return 0
	}
	settled := j.CompletedTasks + j.FailedTasks
	return settled * 100 / j.TotalTasks
}

// TaskStatus is the lifecycle state of a single indexing task.
// Transitions are one-directional.
type TaskStatus int

const (
	TaskStatusPending TaskStatus = iota + 1
	TaskStatusProcessing
	TaskStatusCompleted
	TaskStatusFailed
)

// String returns the lowercase name of the task status.
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusPending:
		return "pending"
	case TaskStatusProcessing:
		return "processing"
	case TaskStatusCompleted:
		return "completed"
	case TaskStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// IndexingTask is the ingestion of one source within a job.
type IndexingTask struct {
	ID          string
	JobID       string
	Source      SourceRef
	Status      TaskStatus
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// ScheduleMode selects the recurrence rule of a reindex schedule.
type ScheduleMode int

const (
	ScheduleDisabled ScheduleMode = iota
	ScheduleOnce
	ScheduleDaily
	ScheduleWeekly
)

// String returns the lowercase name of the schedule mode.
func (m ScheduleMode) String() string {
	switch m {
	case ScheduleDisabled:
		return "disabled"
	case ScheduleOnce:
		return "once"
	case ScheduleDaily:
		return "daily"
	case ScheduleWeekly:
		return "weekly"
	default:
		return "unknown"
	}
}

// RunStatus is the outcome of a schedule's most recent run.
type RunStatus int

const (
	RunStatusNone RunStatus = iota
	RunStatusRunning
	RunStatusSuccess
	RunStatusFailed
)

// String returns the lowercase name of the run status.
func (s RunStatus) String() string {
	switch s {
	case RunStatusNone:
		return "none"
	case RunStatusRunning:
		return "running"
	case RunStatusSuccess:
		return "success"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReindexSchedule holds the recurring reindex configuration of a chatbot.
// NextRunAt is computed by the scheduler after every evaluation; a zero
// NextRunAt means no run is planned.
type ReindexSchedule struct {
	ChatbotID     string
	OwnerID       string // dashboard user notified on failures
	Mode          ScheduleMode
	TimeOfDay     string // "15:04" wall-clock time in Timezone
	Timezone      string // IANA zone name, e.g. "Europe/Berlin"
	Weekdays      []time.Weekday
	OnceDate      string // "2006-01-02", only for ScheduleOnce
	Sources       []SourceRef
	NextRunAt     time.Time
	LastRunStatus RunStatus
	LastRunError  string
	LastJobID     string
	UpdatedAt     time.Time
}
