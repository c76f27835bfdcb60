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


// Package storage provides the storage abstraction layer for answerdesk.
//
// This package defines repository interfaces that decouple the knowledge
// store from business logic, so different backends (BadgerDB, in-memory)
// can be used interchangeably, plus the binary serialization used by all
// of them.
//
// # Repositories
//
//   - ChunkRepository: knowledge chunks, keyed by (chatbot, source, index)
//   - CacheRepository: automatically cached question/answer pairs
//   - OverrideRepository: human-authored answer overrides
//   - JobRepository: indexing jobs and their per-source tasks
//   - ScheduleRepository: recurring reindex configuration
//
// Backend packages expose their repositories through these interfaces,
// so consumers never couple to BadgerDB specifics and tests can
// substitute in-memory implementations.
//
// # Serialization
//
// Records are serialized with the MUS binary format. Serializers are
// positional: fields are written in declaration order with no tags.
// Times are stored as Unix microseconds behind a presence flag so that
// zero times survive a round trip.
//
// # Usage
//
//	store, err := badger.NewKnowledgeStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryKnowledgeStore()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
