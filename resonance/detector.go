// Package resonance finds prior documents of the same owner that resonate
// with a newly ingested one and classifies each relationship.
package resonance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

const (
	// DefaultTopK is the maximum number of resonances returned per document.
	DefaultTopK = 10

	// DefaultMinSimilarity is the cosine similarity a prior document must reach.
	DefaultMinSimilarity float32 = 0.7
)

var (
	// ErrInvalidOption is returned for out-of-range detector options.
	ErrInvalidOption = errors.New("invalid resonance option")

	// ErrNoVector is returned when the candidate has no embedding.
	ErrNoVector = errors.New("candidate has no vector")
)

// Searcher is the owner-scoped similarity search the detector depends on.
// storage.DocumentRepository satisfies it.
type Searcher interface {
	SimilaritySearch(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]*storage.ScoredDocument, error)
}

// Candidate is the newly ingested document being compared against the library.
type Candidate struct {
	OwnerID  string
	Vector   []float32
	Tags     []string
	Content  string
	Analysis *core.AnalysisResult
}

// Detector finds and classifies resonances.
type Detector struct {
	docs          Searcher
	topK          int
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector) error

// WithTopK sets the maximum number of resonances returned.
func WithTopK(k int) Option {
	return func(d *Detector) error {
		if k < 1 {
			return ErrInvalidOption
		}
		d.topK = k
		return nil
	}
}

// WithMinSimilarity sets the similarity threshold, in [0,1].
func WithMinSimilarity(s float32) Option {
	return func(d *Detector) error {
		if s < 0 || s > 1 {
			return ErrInvalidOption
		}
		d.minSimilarity = s
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) error {
		d.logger = logger
		return nil
	}
}

// NewDetector creates a detector with DefaultTopK and DefaultMinSimilarity.
func NewDetector(docs Searcher, opts ...Option) (*Detector, error) {
	d := &Detector{
		docs:          docs,
		topK:          DefaultTopK,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "resonance")
	return d, nil
}

// FindResonances returns up to TopK prior documents of the candidate's owner
// with similarity at or above the threshold, highest first. excludeID (when
// non-zero) is never returned. No matches is an empty list, not an error.
func (d *Detector) FindResonances(ctx context.Context, c Candidate, excludeID core.ID) ([]core.DocumentResonance, error) {
	if len(c.Vector) == 0 {
		return nil, ErrNoVector
	}

	limit := d.topK
	if excludeID != 0 {
		limit++
	}

	hits, err := d.docs.SimilaritySearch(ctx, c.OwnerID, c.Vector, d.minSimilarity, limit)
	if err != nil {
		return nil, err
	}

	resonances := make([]core.DocumentResonance, 0, len(hits))
	for _, hit := range hits {
		if hit.Document.Id == excludeID {
			continue
		}
		if len(resonances) == d.topK {
			break
		}
		resonances = append(resonances, core.DocumentResonance{
			TargetID:     hit.Document.Id,
			Score:        hit.Score,
			SharedThemes: SharedThemes(topicsOf(c.Analysis), topicsOf(hit.Document.Analysis)),
			Kind:         Classify(c, hit.Document),
		})
	}

	d.logger.Debug("found resonances", "owner", c.OwnerID, "count", len(resonances))
	return resonances, nil
}

func topicsOf(a *core.AnalysisResult) []string {
	if a == nil {
		return nil
	}
	return a.Topics
}
