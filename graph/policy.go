package graph

import (
	"slices"

	"github.com/poiesic/wellspring/core"
)

// NodeUpsertPolicy decides what a node looks like after another document
// introduces it. existing is nil the first time the node is seen.
type NodeUpsertPolicy interface {
	Name() string
	Merge(existing, incoming *core.GraphNode) *core.GraphNode
}

// LastWriterWins replaces the introducer with the most recent document.
type LastWriterWins struct{}

func (LastWriterWins) Name() string { return "last-writer-wins" }

func (LastWriterWins) Merge(existing, incoming *core.GraphNode) *core.GraphNode {
	merged := *incoming
	if existing != nil {
		merged.Contributors = existing.Contributors
	}
	return &merged
}

// FirstWriterWins keeps the document that first introduced the node.
type FirstWriterWins struct{}

func (FirstWriterWins) Name() string { return "first-writer-wins" }

func (FirstWriterWins) Merge(existing, incoming *core.GraphNode) *core.GraphNode {
	if existing == nil {
		merged := *incoming
		return &merged
	}
	merged := *existing
	return &merged
}

// MultiAttribution keeps the first introducer and accumulates every shared
// contributor that has introduced the node since.
type MultiAttribution struct{}

func (MultiAttribution) Name() string { return "multi-attribution" }

func (MultiAttribution) Merge(existing, incoming *core.GraphNode) *core.GraphNode {
	var merged core.GraphNode
	if existing == nil {
		merged = *incoming
		merged.Contributors = nil
	} else {
		merged = *existing
		merged.Contributors = slices.Clone(existing.Contributors)
		merged.UpdatedAt = incoming.UpdatedAt
	}
	if incoming.Contributor != nil && !hasContributor(merged.Contributors, *incoming.Contributor) {
		merged.Contributors = append(merged.Contributors, cloneContributor(*incoming.Contributor))
	}
	return &merged
}

// PolicyByName returns the named policy, defaulting to LastWriterWins for "".
func PolicyByName(name string) (NodeUpsertPolicy, bool) {
	switch name {
	case "", LastWriterWins{}.Name():
		return LastWriterWins{}, true
	case FirstWriterWins{}.Name():
		return FirstWriterWins{}, true
	case MultiAttribution{}.Name():
		return MultiAttribution{}, true
	default:
		return nil, false
	}
}

func hasContributor(list []core.Contributor, c core.Contributor) bool {
	return slices.ContainsFunc(list, func(o core.Contributor) bool {
		return o.ID == c.ID && o.DisplayName == c.DisplayName && o.Role == c.Role && slices.Equal(o.Gifts, c.Gifts)
	})
}

func cloneContributor(c core.Contributor) core.Contributor {
	c.Gifts = slices.Clone(c.Gifts)
	return c
}
