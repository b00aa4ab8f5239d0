package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/content"
	"github.com/poiesic/wellspring/storage"
)

// embeddingProcessor fetches the job's text, embeds it and reserves the
// document ID. Every failure here is terminal.
type embeddingProcessor struct {
	loader   content.Loader
	embedder ai.Embedder
	docs     storage.DocumentRepository
	timeout  time.Duration
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(loader content.Loader, embedder ai.Embedder, docs storage.DocumentRepository, timeout time.Duration, logger *slog.Logger) (processor, error) {
	if loader == nil {
		return nil, ErrLoaderRequired
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if docs == nil {
		return nil, fmt.Errorf("document repository required")
	}
	return &embeddingProcessor{
		loader:   loader,
		embedder: embedder,
		docs:     docs,
		timeout:  timeout,
		logger:   logger.With("processor", "embedding"),
	}, nil
}

func (ep *embeddingProcessor) state() JobState {
	return StateEmbedding
}

func (ep *embeddingProcessor) process(ctx context.Context, w *work) error {
	ref := w.job.RawContentRef
	text, err := detached(ctx, ep.timeout, func(ctx context.Context) (string, error) {
		return ep.loader.Load(ctx, ref)
	})
	if err != nil {
		return &StepError{Step: StateEmbedding, Kind: ErrFetchFailure, Err: err}
	}
	w.text = text

	ep.logger.Debug("generating embedding", "job", w.job.Id, "chars", len(text))
	vector, err := detached(ctx, ep.timeout, func(ctx context.Context) ([]float32, error) {
		return ep.embedder.EmbedText(ctx, text)
	})
	if err != nil {
		return err
	}
	w.vector = vector
	if storage.IsZeroVector(w.vector) {
		return fmt.Errorf("%w: got %d zero components", ai.ErrEmptyEmbedding, len(w.vector))
	}

	err = bounded(ctx, ep.timeout, func(ctx context.Context) error {
		id, err := ep.docs.NextDocumentID(ctx)
		w.docID = id
		return err
	})
	if err != nil {
		return &StepError{Step: StateEmbedding, Kind: ErrPersistenceFailure, Err: fmt.Errorf("reserve document id: %w", err)}
	}
	return nil
}
