package search

import (
	"iter"

	"github.com/poiesic/wellspring/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(ownerID, query string)
	AfterSemanticSearch(ids []core.ID)
	AfterQueryConceptMatch(nodes []*core.GraphNode)
	AfterConceptuallyRelatedSearch(ids iter.Seq[core.ID])
	AfterDocumentRetrieval(docs []*core.Document)
	SemanticAndConceptualHit(doc *core.Document)
	SemanticHit(doc *core.Document)
	ConceptualHit(doc *core.Document)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                                  {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ID)                    {}
func (n *noopMonitor) AfterQueryConceptMatch(_ []*core.GraphNode)         {}
func (n *noopMonitor) AfterConceptuallyRelatedSearch(_ iter.Seq[core.ID]) {}
func (n *noopMonitor) AfterDocumentRetrieval(_ []*core.Document)          {}
func (n *noopMonitor) SemanticAndConceptualHit(_ *core.Document)          {}
func (n *noopMonitor) SemanticHit(_ *core.Document)                       {}
func (n *noopMonitor) ConceptualHit(_ *core.Document)                     {}
func (n *noopMonitor) Finish(_ []*Result)                                 {}
