package ai

import (
	"context"

	"github.com/poiesic/wellspring/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Implementations must return an error rather than an empty or zero
	// vector when embedding fails; a zero vector poisons similarity search.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Analyzer produces the structured semantic summary of a document.
// Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// Analyze returns topics, tone, classification weights, detected frames
	// of reference and the concepts and practices named in text.
	// The result must pass core.ValidateAnalysis; malformed responses are
	// reported as ErrMalformedAnalysis.
	Analyze(ctx context.Context, text string) (*core.AnalysisResult, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Analyzer returns the document analysis service.
	Analyzer() Analyzer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
