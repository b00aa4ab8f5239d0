// Copyright 2025 Poiesic Systems
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


// Package wellspring ingests spiritual and contemplative writing into an
// owner-scoped library, detects resonances between documents, proposes
// bridges between frameworks and weaves a shared concept graph.
//
// Library bundles the storage, AI provider, content loader and optional
// Redis queue and Neo4j mirror behind one handle:
//
//	lib, err := wellspring.NewLibrary("/var/lib/wellspring")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close()
//
//	pipeline, err := lib.NewIngestionPipeline()
package wellspring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/ai/openai"
	"github.com/poiesic/wellspring/content"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/ingestion"
	"github.com/poiesic/wellspring/search"
	"github.com/poiesic/wellspring/storage"
	"github.com/poiesic/wellspring/storage/badger"
	"github.com/poiesic/wellspring/storage/neo4jgraph"
)

// Library owns the long-lived resources shared by pipelines and searchers.
type Library struct {
	store    storage.Store
	provider ai.AIProvider
	loader   content.Loader
	queue    ingestion.JobQueue
	redis    *ingestion.RedisQueue
	mirror   *neo4jgraph.Client
	logger   *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	store    storage.Store
	loader   content.Loader
	redis    *ingestion.RedisOptions
	neo4j    *neo4jgraph.Config
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the default OpenAI-compatible provider.
func WithAIConfig(cfg *ai.Config) LibraryOption {
	return func(o *libraryOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The library takes ownership and closes it.
func WithProvider(provider ai.AIProvider) LibraryOption {
	return func(o *libraryOptions) {
		o.provider = provider
	}
}

// WithStore uses store instead of opening Badger at the library path.
// The library takes ownership and closes it.
func WithStore(store storage.Store) LibraryOption {
	return func(o *libraryOptions) {
		o.store = store
	}
}

// WithLoader replaces the default filesystem content loader.
func WithLoader(loader content.Loader) LibraryOption {
	return func(o *libraryOptions) {
		o.loader = loader
	}
}

// WithRedisQueue queues jobs in Redis so they survive restarts.
func WithRedisQueue(opts ingestion.RedisOptions) LibraryOption {
	return func(o *libraryOptions) {
		o.redis = &opts
	}
}

// WithNeo4jMirror mirrors woven graph batches into Neo4j.
// A config with an empty URI leaves the mirror off.
func WithNeo4jMirror(cfg neo4jgraph.Config) LibraryOption {
	return func(o *libraryOptions) {
		o.neo4j = &cfg
	}
}

// WithLibraryLogger sets the logger passed to every component.
func WithLibraryLogger(logger *slog.Logger) LibraryOption {
	return func(o *libraryOptions) {
		o.logger = logger
	}
}

// NewLibrary opens the library stored at path.
func NewLibrary(path string, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	lib := &Library{
		loader: options.loader,
		logger: options.logger,
	}

	lib.store = options.store
	if lib.store == nil {
		store, err := badger.NewStore(path)
		if err != nil {
			return nil, err
		}
		lib.store = store
	}

	lib.provider = options.provider
	if lib.provider == nil {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			lib.Close()
			return nil, err
		}
		lib.provider = provider
	}

	if lib.loader == nil {
		lib.loader = content.NewFileLoader()
	}

	if options.redis != nil {
		queue, err := ingestion.NewRedisQueue(*options.redis)
		if err != nil {
			lib.Close()
			return nil, err
		}
		lib.redis = queue
		lib.queue = queue
	} else {
		lib.queue = ingestion.NewMemoryQueue()
	}

	if options.neo4j != nil && options.neo4j.URI != "" {
		mirror, err := neo4jgraph.New(*options.neo4j, options.logger)
		if err != nil {
			lib.Close()
			return nil, err
		}
		lib.mirror = mirror
	}

	return lib, nil
}

// Close releases every resource the library owns. All errors are reported.
func (l *Library) Close() error {
	var errs []error

	if l.provider != nil {
		if err := l.provider.Close(); err != nil {
			l.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if l.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := l.mirror.Close(ctx); err != nil {
			l.logger.Error("error closing Neo4j mirror", "err", err)
			errs = append(errs, err)
		}
		cancel()
	}
	if l.redis != nil {
		if err := l.redis.Close(); err != nil {
			l.logger.Error("error closing Redis queue", "err", err)
			errs = append(errs, err)
		}
	}
	if l.store != nil {
		if err := l.store.Close(); err != nil {
			l.logger.Error("error closing storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store returns the underlying persistence store.
func (l *Library) Store() storage.Store {
	return l.store
}

// Provider returns the AI provider.
func (l *Library) Provider() ai.AIProvider {
	return l.provider
}

// Durable reports whether queued jobs survive a restart.
func (l *Library) Durable() bool {
	return l.redis != nil
}

// NewIngestionPipeline creates a pipeline over the library's resources.
// The library's queue, logger and graph mirror are applied first so opts can
// override them.
func (l *Library) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithQueue(l.queue),
		ingestion.WithLogger(l.logger),
	}
	if l.mirror != nil {
		base = append(base, ingestion.WithGraphMirror(l.mirror))
	}
	return ingestion.NewPipeline(ingestion.Dependencies{
		Loader:   l.loader,
		Provider: l.provider,
		Store:    l.store,
	}, append(base, opts...)...)
}

// NewSearcher creates a searcher over the library's documents and graph.
func (l *Library) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{search.WithLogger(l.logger)}
	return search.NewSearcher(l.store.Documents(), l.store.Graph(), l.provider, append(base, opts...)...)
}

// Balance returns the owner's classification balance.
func (l *Library) Balance(ctx context.Context, ownerID string) (*core.LibraryBalance, error) {
	return l.store.Balances().GetBalance(ctx, ownerID)
}

// Document returns one of the owner's documents.
// Documents of other owners are reported as storage.ErrNotFound.
func (l *Library) Document(ctx context.Context, ownerID string, id core.ID) (*core.Document, error) {
	doc, err := l.store.Documents().GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// Concepts lists graph nodes of kind, or all nodes when kind is empty.
func (l *Library) Concepts(ctx context.Context, kind core.NodeKind) ([]*core.GraphNode, error) {
	return l.store.Graph().ListNodes(ctx, kind)
}

// Bridges lists every accumulated concept bridge.
func (l *Library) Bridges(ctx context.Context) ([]*core.ConceptBridge, error) {
	return l.store.Bridges().ListBridges(ctx)
}
