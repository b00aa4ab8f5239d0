package openai

import (
	"strings"

	"github.com/poiesic/wellspring/core"
)

// scrubString collapses runs of whitespace and trims the text.
// Punctuation is kept; numbered headings matter to downstream analysis.
func scrubString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanNames normalizes, de-duplicates and caps a list of names.
// Blank entries are dropped.
func cleanNames(names []string, max int) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = core.NormalizeName(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// referenceNames normalizes and caps a list of references. Blank entries are
// dropped; repeats are kept since each one is a separate reference.
func referenceNames(names []string, max int) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = core.NormalizeName(n); n == "" {
			continue
		}
		out = append(out, n)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
