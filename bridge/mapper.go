// Package bridge detects when a document names a concept that other
// frameworks know under different terms.
//
// Detection is a lookup against a data table, so new (framework, term)
// pairs are added by editing the table, never the matcher.
package bridge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/wellspring/core"
)

// Mapper matches analyses against a bridge table.
type Mapper struct {
	table  *Table
	logger *slog.Logger
}

// Option configures a Mapper.
type Option func(*Mapper) error

// WithTable replaces the built-in table.
func WithTable(t *Table) Option {
	return func(m *Mapper) error {
		if t == nil {
			return ErrInvalidTable
		}
		m.table = t
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) error {
		m.logger = logger
		return nil
	}
}

// NewMapper creates a mapper using DefaultTable unless WithTable is given.
func NewMapper(opts ...Option) (*Mapper, error) {
	m := &Mapper{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.table == nil {
		m.table = DefaultTable()
	}
	m.logger = m.logger.With("component", "bridge")
	return m, nil
}

// Table returns the table in use.
func (m *Mapper) Table() *Table {
	return m.table
}

// DetectBridges returns one bridge per table row whose term, for a framework
// among the analysis' detected frames, appears in content. Rows and parallels
// follow table order. No detected frames means no bridges.
func (m *Mapper) DetectBridges(analysis *core.AnalysisResult, content string, sourceID core.ID, contributor *core.Contributor) []core.ConceptBridge {
	if analysis == nil || len(analysis.DetectedFrames) == 0 {
		return []core.ConceptBridge{}
	}

	bridges := []core.ConceptBridge{}
	for i := range m.table.Rows {
		row := &m.table.Rows[i]

		var matched []*FrameworkEntry
		for j := range row.Entries {
			entry := &row.Entries[j]
			if entry.detectedIn(analysis.DetectedFrames) && entry.appearsIn(content) {
				matched = append(matched, entry)
			}
		}
		if len(matched) == 0 {
			continue
		}

		parallels := make([]core.FrameworkTerm, 0, len(matched))
		for _, entry := range matched {
			parallels = append(parallels, core.FrameworkTerm{
				Framework:        entry.Framework,
				Terminology:      entry.Terms[0],
				SourceDocumentID: sourceID,
				Contributor:      contributor,
			})
		}

		bridges = append(bridges, core.ConceptBridge{
			Id:            core.IDFromContent(row.Tag),
			Concept:       row.Concept,
			CanonicalTag:  row.Tag,
			Parallels:     parallels,
			SynthesisNote: synthesisNote(row, matched),
		})
	}

	if len(bridges) > 0 {
		m.logger.Debug("detected bridges", "document", sourceID, "count", len(bridges))
	}
	return bridges
}

func (e *FrameworkEntry) detectedIn(frames []string) bool {
	for _, f := range frames {
		if e.matchesFrame(f) {
			return true
		}
	}
	return false
}

// synthesisNote describes the shared role and names the other frameworks' terms.
func synthesisNote(row *Row, matched []*FrameworkEntry) string {
	used := make(map[*FrameworkEntry]bool, len(matched))
	named := make([]string, 0, len(matched))
	for _, e := range matched {
		used[e] = true
		named = append(named, fmt.Sprintf("%s (%s)", e.Terms[0], e.Framework))
	}

	var others []string
	for j := range row.Entries {
		e := &row.Entries[j]
		if !used[e] {
			others = append(others, fmt.Sprintf("%s (%s)", e.Terms[0], e.Framework))
		}
	}

	note := fmt.Sprintf("%s names %s", strings.Join(named, " and "), row.Role)
	if row.Role == "" {
		note = fmt.Sprintf("%s names %s", strings.Join(named, " and "), row.Concept)
	}
	if len(others) > 0 {
		note += "; the same role is called " + joinList(others) + " elsewhere"
	}
	return note + "."
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
}
