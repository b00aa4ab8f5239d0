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


package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxAttempts bounds retries on unparseable model output.
const maxAttempts = 3

// Analyzer implements ai.Analyzer using OpenAI-compatible chat APIs.
type Analyzer struct {
	client      llms.Model
	maxConcepts int
	logger      *slog.Logger
}

// analysisResponse is the wire shape requested from the model.
type analysisResponse struct {
	Summary            string             `json:"summary"`
	Topics             []string           `json:"topics"`
	Tone               string             `json:"tone"`
	Weights            map[string]float64 `json:"weights"`
	Frames             []string           `json:"frames"`
	ConceptsIntroduced []string           `json:"concepts_introduced"`
	ConceptsReferenced []string           `json:"concepts_referenced"`
	Practices          []string           `json:"practices"`
}

// newAnalyzer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnalyzer(config *ai.Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.AnalyzerHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.AnalyzerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		client:      client,
		maxConcepts: config.MaxConcepts,
		logger:      slog.Default().With("component", "openai-analyzer"),
	}, nil
}

// NewAnalyzer creates a new analyzer using the provided configuration.
//
// Returns ai.Analyzer interface to enforce abstraction.
func NewAnalyzer(config *ai.Config) (ai.Analyzer, error) {
	return newAnalyzer(config)
}

// Analyze produces a structured analysis of text using an LLM.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*core.AnalysisResult, error) {
	text = scrubString(text)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt(a.maxConcepts)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to maxAttempts times in case of malformed JSON
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("%w: no choices returned", ai.ErrMalformedAnalysis)
			continue
		}

		result, err := parseAnalysis(response.Choices[0].Content, a.maxConcepts)
		if err != nil {
			lastErr = err
			a.logger.Warn("error parsing analyzer response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		a.logger.Debug("analyzed document",
			"topics", len(result.Topics),
			"frames", len(result.DetectedFrames),
			"concepts", len(result.ConceptsIntroduced)+len(result.ConceptsReferenced))
		return result, nil
	}

	a.logger.Error("failed to parse analyzer response after retries", "err", lastErr)
	return nil, lastErr
}

// parseAnalysis converts raw model output into a validated analysis.
func parseAnalysis(raw string, maxConcepts int) (*core.AnalysisResult, error) {
	var resp analysisResponse
	if err := unmarshalRepaired(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedAnalysis, err)
	}

	weights := make(core.ClassificationWeights, len(resp.Weights))
	for k, v := range resp.Weights {
		weights[core.Dimension(core.NormalizeName(k))] = v
	}

	tone := core.NormalizeName(resp.Tone)
	if tone == "" {
		tone = "neutral"
	}

	result := &core.AnalysisResult{
		Summary:            scrubString(resp.Summary),
		Topics:             cleanNames(resp.Topics, maxConcepts),
		Tone:               tone,
		Weights:            weights,
		DetectedFrames:     cleanNames(resp.Frames, 0),
		ConceptsIntroduced: cleanNames(resp.ConceptsIntroduced, maxConcepts),
		ConceptsReferenced: referenceNames(resp.ConceptsReferenced, maxConcepts),
		PracticesDescribed: cleanNames(resp.Practices, maxConcepts),
	}

	if err := core.ValidateAnalysis(result); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedAnalysis, err)
	}
	return result, nil
}
