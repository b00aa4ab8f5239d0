package bridge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_table.yaml
var defaultTableYAML []byte

// ErrInvalidTable is returned when a bridge table fails validation.
var ErrInvalidTable = errors.New("invalid bridge table")

// FrameworkEntry is one framework's vocabulary for a row's concept.
type FrameworkEntry struct {
	Framework string   `yaml:"framework"`
	Aliases   []string `yaml:"aliases,omitempty"`
	Terms     []string `yaml:"terms"`

	patterns []*regexp.Regexp
}

// Row maps one structural role to the terms frameworks use for it.
type Row struct {
	Tag     string           `yaml:"tag"`
	Concept string           `yaml:"concept"`
	Role    string           `yaml:"role"`
	Entries []FrameworkEntry `yaml:"terms"`
}

// Table is an ordered set of rows. Matching follows row order.
type Table struct {
	Rows []Row `yaml:"bridges"`
}

// LoadTable parses and validates a YAML bridge table.
func LoadTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Table
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return &t, nil
}

// DefaultTable returns a fresh copy of the built-in table.
func DefaultTable() *Table {
	t, err := LoadTable(bytes.NewReader(defaultTableYAML))
	if err != nil {
		panic(fmt.Sprintf("bridge: built-in table: %v", err))
	}
	return t
}

// Extend merges other into t. Entries for an existing tag are appended to
// that row; new tags are appended as rows.
func (t *Table) Extend(other *Table) error {
	index := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		index[row.Tag] = i
	}
	for _, row := range other.Rows {
		if i, ok := index[row.Tag]; ok {
			t.Rows[i].Entries = append(t.Rows[i].Entries, row.Entries...)
			continue
		}
		index[row.Tag] = len(t.Rows)
		t.Rows = append(t.Rows, row)
	}
	return t.compile()
}

// compile validates the table and builds the word-bounded term matchers.
func (t *Table) compile() error {
	seen := make(map[string]bool, len(t.Rows))
	for i := range t.Rows {
		row := &t.Rows[i]
		row.Tag = strings.TrimSpace(row.Tag)
		if row.Tag == "" || strings.TrimSpace(row.Concept) == "" {
			return fmt.Errorf("%w: row %d needs a tag and a concept", ErrInvalidTable, i)
		}
		if seen[row.Tag] {
			return fmt.Errorf("%w: duplicate tag %q", ErrInvalidTable, row.Tag)
		}
		seen[row.Tag] = true
		if len(row.Entries) == 0 {
			return fmt.Errorf("%w: tag %q has no terms", ErrInvalidTable, row.Tag)
		}

		for j := range row.Entries {
			entry := &row.Entries[j]
			if strings.TrimSpace(entry.Framework) == "" || len(entry.Terms) == 0 {
				return fmt.Errorf("%w: tag %q entry %d needs a framework and terms", ErrInvalidTable, row.Tag, j)
			}
			entry.patterns = entry.patterns[:0]
			for _, term := range entry.Terms {
				if strings.TrimSpace(term) == "" {
					return fmt.Errorf("%w: tag %q has a blank term", ErrInvalidTable, row.Tag)
				}
				entry.patterns = append(entry.patterns, termPattern(term))
			}
		}
	}
	return nil
}

// termPattern matches term case-insensitively, bounded by non-letters, with
// any run of whitespace between words.
func termPattern(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])` + strings.Join(words, `\s+`) + `(?:$|[^\pL\pN])`)
}

// matchesFrame reports whether a detected frame names this entry's framework.
func (e *FrameworkEntry) matchesFrame(frame string) bool {
	frame = strings.ToLower(strings.TrimSpace(frame))
	if strings.ToLower(e.Framework) == frame {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.ToLower(alias) == frame {
			return true
		}
	}
	return false
}

// appearsIn reports whether any of the entry's terms occurs in text.
func (e *FrameworkEntry) appearsIn(text string) bool {
	for _, p := range e.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
