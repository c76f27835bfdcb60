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


package indexing

import "errors"

var (
	// ErrJobRepositoryRequired indicates a nil job repository was provided.
	ErrJobRepositoryRequired = errors.New("job repository is required")

	// ErrChunkRepositoryRequired indicates a nil chunk repository was provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrFetcherRequired indicates a nil fetcher was provided.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrEmbedderRequired indicates a nil embedder was provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrNoSources indicates a job was requested with an empty source list.
	ErrNoSources = errors.New("at least one source is required")

	// ErrJobNotCancellable indicates the job has already finished and
	// cannot be cancelled.
	ErrJobNotCancellable = errors.New("job is not cancellable")

	// ErrJobNotRetryable indicates the job is not in a failed or partial
	// state, so there is nothing to retry.
	ErrJobNotRetryable = errors.New("job is not retryable")

	// ErrNoFailedTasks indicates a retry was requested for a job whose
	// tasks all completed.
	ErrNoFailedTasks = errors.New("job has no failed tasks")

	// ErrInvalidMaxAttempts indicates maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
