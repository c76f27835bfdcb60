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


package core

import (
	"fmt"
	"time"
)

// ValidateSourceType validates that a SourceType has a known value.
func ValidateSourceType(t SourceType) error {
	if t != SourceTypeWebsite && t != SourceTypeDocument {
		return fmt.Errorf("%w: value %d", ErrInvalidSourceType, t)
	}
	return nil
}

// ValidateSourceRef validates a SourceRef.
func ValidateSourceRef(ref SourceRef) error {
	if err := ValidateSourceType(ref.Type); err != nil {
		return err
	}
	if ref.Locator == "" {
		return ErrEmptyLocator
	}
	return nil
}

// ValidateChunk validates a KnowledgeChunk according to domain rules.
//
// Validation rules:
//   - ChatbotID must not be empty
//   - Source must be a valid SourceRef
//   - Index must not be negative
//   - Text must not be empty
//
// NOT validated (populated later or optional):
//   - Vector (empty until the embedding provider succeeds)
//   - Metadata
func ValidateChunk(chunk *KnowledgeChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.ChatbotID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChatbotID)
	}
	if err := ValidateSourceRef(chunk.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}
	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}
	return nil
}

// ValidateCacheEntry validates a CacheEntry according to domain rules.
//
// Validation rules:
//   - ChatbotID must not be empty
//   - Question must not be empty
//   - Answer must not be empty
//
// NOT validated:
//   - Vector (empty when the embedding provider was unavailable)
//   - Hash (derived from Question by the caller)
func ValidateCacheEntry(entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidCacheEntry)
	}
	if entry.ChatbotID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCacheEntry, ErrEmptyChatbotID)
	}
	if entry.Question == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCacheEntry, ErrEmptyText)
	}
	if entry.Answer == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCacheEntry, ErrEmptyAnswer)
	}
	return nil
}

// ValidateOverride validates a ManualOverride according to domain rules.
func ValidateOverride(override *ManualOverride) error {
	if override == nil {
		return fmt.Errorf("%w: override is nil", ErrInvalidOverride)
	}
	if override.ChatbotID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidOverride, ErrEmptyChatbotID)
	}
	if override.Question == "" {
		return fmt.Errorf("%w: %w", ErrInvalidOverride, ErrEmptyText)
	}
	if override.Answer == "" {
		return fmt.Errorf("%w: %w", ErrInvalidOverride, ErrEmptyAnswer)
	}
	return nil
}

// ValidateJob validates an IndexingJob according to domain rules.
//
// Validation rules:
//   - ChatbotID must not be empty
//   - counters must be non-negative
//   - CompletedTasks + FailedTasks must not exceed TotalTasks
func ValidateJob(job *IndexingJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}
	if job.ChatbotID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyChatbotID)
	}
	if job.TotalTasks < 0 || job.CompletedTasks < 0 || job.FailedTasks < 0 {
		return fmt.Errorf("%w: negative task counter", ErrInvalidJob)
	}
	if job.CompletedTasks+job.FailedTasks > job.TotalTasks {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrCounterOverflow)
	}
	return nil
}

// ValidateTask validates an IndexingTask according to domain rules.
func ValidateTask(task *IndexingTask) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}
	if task.JobID == "" {
		return fmt.Errorf("%w: job id cannot be empty", ErrInvalidTask)
	}
	if err := ValidateSourceRef(task.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	return nil
}

// ParseTimeOfDay parses an "HH:MM" wall-clock time.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidateSchedule validates a ReindexSchedule according to domain rules.
//
// Validation rules:
//   - ChatbotID must not be empty
//   - TimeOfDay must parse as "HH:MM" for any enabled mode
//   - Timezone must resolve via time.LoadLocation when set
//   - OnceDate must parse as "2006-01-02" for ScheduleOnce
//
// NOT validated:
//   - Weekdays (an empty set for weekly mode simply yields no next run)
//   - Sources (an empty list fails at job creation, not here)
func ValidateSchedule(sched *ReindexSchedule) error {
	if sched == nil {
		return fmt.Errorf("%w: schedule is nil", ErrInvalidSchedule)
	}
	if sched.ChatbotID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSchedule, ErrEmptyChatbotID)
	}
	if sched.Mode == ScheduleDisabled {
		return nil
	}
	if _, _, err := ParseTimeOfDay(sched.TimeOfDay); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	if sched.Timezone != "" {
		if _, err := time.LoadLocation(sched.Timezone); err != nil {
			return fmt.Errorf("%w: %w: %q", ErrInvalidSchedule, ErrInvalidTimezone, sched.Timezone)
		}
	}
	if sched.Mode == ScheduleOnce {
		if _, err := time.Parse("2006-01-02", sched.OnceDate); err != nil {
			return fmt.Errorf("%w: invalid one-time date %q", ErrInvalidSchedule, sched.OnceDate)
		}
	}
	return nil
}
