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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a KnowledgeChunk failed validation.
	ErrInvalidChunk = errors.New("invalid knowledge chunk")

	// ErrInvalidCacheEntry indicates a CacheEntry failed validation.
	ErrInvalidCacheEntry = errors.New("invalid cache entry")

	// ErrInvalidOverride indicates a ManualOverride failed validation.
	ErrInvalidOverride = errors.New("invalid manual override")

	// ErrInvalidJob indicates an IndexingJob failed validation.
	ErrInvalidJob = errors.New("invalid indexing job")

	// ErrInvalidTask indicates an IndexingTask failed validation.
	ErrInvalidTask = errors.New("invalid indexing task")

	// ErrInvalidSchedule indicates a ReindexSchedule failed validation.
	ErrInvalidSchedule = errors.New("invalid reindex schedule")

	// ErrEmptyChatbotID indicates the ChatbotID field is empty.
	ErrEmptyChatbotID = errors.New("chatbot id cannot be empty")

	// ErrEmptyLocator indicates a source locator is empty.
	ErrEmptyLocator = errors.New("source locator cannot be empty")

	// ErrEmptyText indicates a text body is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyAnswer indicates an answer body is empty.
	ErrEmptyAnswer = errors.New("answer cannot be empty")

	// ErrInvalidSourceType indicates an unknown SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidTimeOfDay indicates a time-of-day string is not "HH:MM".
	ErrInvalidTimeOfDay = errors.New("invalid time of day")

	// ErrInvalidTimezone indicates an unknown IANA timezone name.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrCounterOverflow indicates task counters exceed the job total.
	ErrCounterOverflow = errors.New("task counters exceed total")
)
