package resonance

import (
	"regexp"
	"strings"

	"github.com/poiesic/wellspring/core"
)

// structuralMarker matches numbered sections such as "Chapter 3" or "Part IV".
// Roman numerals up to XXXIX are recognized.
var structuralMarker = regexp.MustCompile(`(?i)\b(?:chapter|part|book|volume|section|lesson)\s+(?:\d+|x{1,3}(?:ix|iv|v?i{0,3})|ix|iv|v?i{1,3}|v)\b`)

// Classify decides the relationship kind between a candidate and a prior document.
// Rules apply in order: practice framing on either side, numbered structure
// in both, differing strong dominant dimensions, then parallel.
func Classify(c Candidate, target *core.Document) core.RelationKind {
	switch {
	case hasPracticeFraming(c.Tags, c.Analysis) || hasPracticeFraming(target.Tags, target.Analysis):
		return core.RelationPracticeReference
	case HasStructuralMarker(c.Content) && HasStructuralMarker(target.Content):
		return core.RelationExpansion
	case isComplementary(c.Analysis, target.Analysis):
		return core.RelationComplementary
	default:
		return core.RelationParallel
	}
}

// HasStructuralMarker reports whether text names a numbered chapter, part,
// book, volume, section or lesson.
func HasStructuralMarker(text string) bool {
	return structuralMarker.MatchString(text)
}

func hasPracticeFraming(tags []string, a *core.AnalysisResult) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), "practice") {
			return true
		}
	}
	return a != nil && len(a.PracticesDescribed) > 0
}

// isComplementary holds when both documents lean clearly toward different dimensions.
func isComplementary(a, b *core.AnalysisResult) bool {
	if a == nil || b == nil {
		return false
	}
	da, wa := a.Weights.Dominant()
	db, wb := b.Weights.Dominant()
	neutral := core.NeutralWeight()
	return da != db && wa > neutral && wb > neutral
}

// SharedThemes returns the topics of ours that also appear in theirs,
// compared case-insensitively, in our order without duplicates.
func SharedThemes(ours, theirs []string) []string {
	have := make(map[string]bool, len(theirs))
	for _, t := range theirs {
		have[strings.ToLower(strings.TrimSpace(t))] = true
	}

	shared := []string{}
	seen := make(map[string]bool)
	for _, t := range ours {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" || !have[key] || seen[key] {
			continue
		}
		seen[key] = true
		shared = append(shared, t)
	}
	return shared
}
