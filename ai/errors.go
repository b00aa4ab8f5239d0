package ai

import "errors"

var (
	// ErrEmptyEmbedding is returned when an embedding service produces no vector.
	ErrEmptyEmbedding = errors.New("embedding service returned an empty vector")

	// ErrMalformedAnalysis is returned when an analysis response cannot be
	// parsed or fails validation.
	ErrMalformedAnalysis = errors.New("malformed analysis response")
)
