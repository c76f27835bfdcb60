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


package badger

import "github.com/answerdesk/answerdesk/storage"

// KnowledgeStore bundles every repository backed by one BadgerDB
// instance. Repositories share the backend, so cross-repository writes
// observe each other immediately.
type KnowledgeStore struct {
	Chunks    storage.ChunkRepository
	Cache     storage.CacheRepository
	Overrides storage.OverrideRepository
	Jobs      storage.JobRepository
	Schedules storage.ScheduleRepository

	backend *Backend
}

// NewKnowledgeStore opens a BadgerDB-backed knowledge store at path.
func NewKnowledgeStore(path string) (*KnowledgeStore, error) {
	return newStore(path, false)
}

// NewMemoryKnowledgeStore creates an in-memory knowledge store,
// primarily for testing.
func NewMemoryKnowledgeStore() (*KnowledgeStore, error) {
	return newStore("", true)
}

func newStore(path string, inMemory bool) (*KnowledgeStore, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	return &KnowledgeStore{
		Chunks:    NewChunkRepository(backend),
		Cache:     NewCacheRepository(backend),
		Overrides: NewOverrideRepository(backend),
		Jobs:      NewJobRepository(backend),
		Schedules: NewScheduleRepository(backend),
		backend:   backend,
	}, nil
}

// Close closes every repository and the underlying database.
func (s *KnowledgeStore) Close() error {
	s.Chunks.Close()
	s.Cache.Close()
	s.Overrides.Close()
	s.Jobs.Close()
	s.Schedules.Close()
	return s.backend.Close()
}
