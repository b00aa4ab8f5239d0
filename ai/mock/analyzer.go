package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/wellspring/core"
)

// MockAnalyzer is a test double for ai.Analyzer.
// It allows custom behavior injection via function fields.
type MockAnalyzer struct {
	// AnalyzeFunc is called by Analyze if set.
	// If nil, uses default simple word extraction.
	AnalyzeFunc func(ctx context.Context, text string) (*core.AnalysisResult, error)

	mu        sync.Mutex
	callCount int
}

// NewMockAnalyzer creates a mock analyzer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockAnalyzer().
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// Analyze returns a simple deterministic analysis of text.
// Default behavior: the first five words longer than four letters become
// topics and the weights are neutral.
func (m *MockAnalyzer) Analyze(ctx context.Context, text string) (*core.AnalysisResult, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.AnalyzeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	topics := make([]string, 0, 5)
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}-")
		if len(word) <= 4 || seen[word] {
			continue
		}
		seen[word] = true
		topics = append(topics, word)
		if len(topics) == 5 {
			break
		}
	}

	return &core.AnalysisResult{
		Summary:            firstSentence(text),
		Topics:             topics,
		Tone:               "neutral",
		Weights:            core.NeutralWeights(),
		DetectedFrames:     []string{},
		ConceptsIntroduced: []string{},
		ConceptsReferenced: []string{},
		PracticesDescribed: []string{},
	}, nil
}

// CallCount returns the number of times Analyze was called.
func (m *MockAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.AnalyzeFunc = nil
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}
