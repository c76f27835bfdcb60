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


package answerdesk

import (
	"log/slog"

	"github.com/answerdesk/answerdesk/ai"
	"github.com/answerdesk/answerdesk/ai/openai"
	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/fetch"
	"github.com/answerdesk/answerdesk/indexing"
	"github.com/answerdesk/answerdesk/resolve"
	"github.com/answerdesk/answerdesk/schedule"
	"github.com/answerdesk/answerdesk/storage/badger"
)

// Platform bundles the knowledge store and the AI provider and builds the
// pipeline components on top of them. It is the single entry point for
// embedding the library into a serving layer.
type Platform struct {
	store    *badger.KnowledgeStore
	provider ai.Provider
	fetcher  fetch.Fetcher
	logger   *slog.Logger
}

// PlatformOption configures a Platform.
type PlatformOption func(*platformOptions)

type platformOptions struct {
	aiConfig    *ai.Config
	provider    ai.Provider
	fetcher     fetch.Fetcher
	documentDir string
}

// WithAIConfig sets the OpenAI-compatible provider configuration.
func WithAIConfig(config *ai.Config) PlatformOption {
	return func(o *platformOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider sets a pre-built AI provider, bypassing the OpenAI client.
func WithProvider(provider ai.Provider) PlatformOption {
	return func(o *platformOptions) {
		o.provider = provider
	}
}

// WithFetcher sets a custom source fetcher.
func WithFetcher(fetcher fetch.Fetcher) PlatformOption {
	return func(o *platformOptions) {
		o.fetcher = fetcher
	}
}

// WithDocumentDir sets the directory uploaded documents are read from.
func WithDocumentDir(dir string) PlatformOption {
	return func(o *platformOptions) {
		o.documentDir = dir
	}
}

// NewPlatform opens the knowledge store at filePath and connects the AI
// provider.
func NewPlatform(filePath string, opts ...PlatformOption) (*Platform, error) {
	options := &platformOptions{
		aiConfig:    ai.DefaultConfig(),
		documentDir: ".",
	}
	for _, opt := range opts {
		opt(options)
	}

	store, err := badger.NewKnowledgeStore(filePath)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = fetch.NewRouter(map[core.SourceType]fetch.Fetcher{
			core.SourceTypeWebsite:  fetch.NewWebsiteFetcher(),
			core.SourceTypeDocument: fetch.NewDocumentFetcher(options.documentDir),
		})
	}

	return &Platform{
		store:    store,
		provider: provider,
		fetcher:  fetcher,
		logger:   slog.Default(),
	}, nil
}

// Close shuts down the AI provider and the knowledge store.
func (p *Platform) Close() error {
	if err := p.provider.Close(); err != nil {
		p.logger.Error("error closing AI provider", "err", err)
	}
	if err := p.store.Close(); err != nil {
		p.logger.Error("error closing knowledge store", "err", err)
		return err
	}
	return nil
}

// Store returns the knowledge store.
func (p *Platform) Store() *badger.KnowledgeStore {
	return p.store
}

// Provider returns the AI provider.
func (p *Platform) Provider() ai.Provider {
	return p.provider
}

// NewResolutionEngine builds the multi-tier answer engine.
func (p *Platform) NewResolutionEngine(opts ...resolve.Option) (*resolve.Engine, error) {
	return resolve.NewEngine(p.store.Chunks, p.store.Cache, p.store.Overrides, p.provider, opts...)
}

// NewOrchestrator builds the indexing job orchestrator.
func (p *Platform) NewOrchestrator(opts ...indexing.Option) (*indexing.Orchestrator, error) {
	base := []indexing.Option{indexing.WithCacheRepository(p.store.Cache)}
	return indexing.NewOrchestrator(p.store.Jobs, p.store.Chunks, p.fetcher,
		p.provider.Embedder(), append(base, opts...)...)
}

// NewScheduler builds the recurrence scheduler over the given runner.
func (p *Platform) NewScheduler(runner schedule.JobRunner, opts ...schedule.Option) (*schedule.Scheduler, error) {
	return schedule.NewScheduler(p.store.Schedules, p.store.Jobs, runner, opts...)
}
