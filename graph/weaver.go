// Package graph weaves analyzed documents into the global concept graph.
//
// Introduced concepts and described practices become nodes keyed by their
// normalized (kind, name) tuple, so repeated ingestion converges on one node
// per name. Referenced concepts become edges, which are append-only: every
// ingestion that references a concept adds a new edge.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// Mirror receives every woven batch after it reaches the primary store.
type Mirror interface {
	MirrorWeave(ctx context.Context, nodes []*core.GraphNode, edges []*core.GraphEdge) error
}

// WeaveResult counts the graph writes of one Weave call.
type WeaveResult struct {
	NodesUpserted int
	EdgesCreated  int
}

// Weaver writes concept and practice nodes and reference edges.
type Weaver struct {
	graph  storage.GraphRepository
	policy NodeUpsertPolicy
	mirror Mirror
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Weaver.
type Option func(*Weaver) error

// WithPolicy sets the node upsert policy. The default is LastWriterWins.
func WithPolicy(policy NodeUpsertPolicy) Option {
	return func(w *Weaver) error {
		if policy == nil {
			return errors.New("node upsert policy cannot be nil")
		}
		w.policy = policy
		return nil
	}
}

// WithMirror sets a secondary graph sink.
func WithMirror(mirror Mirror) Option {
	return func(w *Weaver) error {
		w.mirror = mirror
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Weaver) error {
		w.logger = logger
		return nil
	}
}

// WithClock overrides the time source for node and edge timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Weaver) error {
		w.now = now
		return nil
	}
}

// NewWeaver creates a weaver over the graph repository.
func NewWeaver(graph storage.GraphRepository, opts ...Option) (*Weaver, error) {
	if graph == nil {
		return nil, errors.New("graph repository required")
	}
	w := &Weaver{
		graph:  graph,
		policy: LastWriterWins{},
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	w.logger = w.logger.With("component", "graph")
	return w, nil
}

// Policy returns the active node upsert policy.
func (w *Weaver) Policy() NodeUpsertPolicy {
	return w.policy
}

// Weave upserts nodes for the concepts and practices the document introduces
// and appends one reference edge per referenced entry, repeats included. Writes are not
// rolled back when a later write fails; the partial result is returned with
// the error.
func (w *Weaver) Weave(ctx context.Context, doc *core.Document, analysis *core.AnalysisResult) (WeaveResult, error) {
	var result WeaveResult
	if doc == nil || analysis == nil {
		return result, errors.New("weave requires a document and its analysis")
	}

	now := w.now()
	contributor := doc.Attribution.SharedContributor()
	tag, _ := analysis.Weights.Dominant()

	var woven []*core.GraphNode
	var edges []*core.GraphEdge
	var errs []error

	upsert := func(kind core.NodeKind, names []string) {
		for _, name := range uniqueNames(names) {
			node, err := w.upsertNode(ctx, &core.GraphNode{
				Kind:         kind,
				Name:         name,
				IntroducedBy: doc.Id,
				Contributor:  contributor,
				Tag:          tag,
				UpdatedAt:    now,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("upsert %s %q: %w", kind, name, err))
				continue
			}
			result.NodesUpserted++
			woven = append(woven, node)
		}
	}

	upsert(core.NodeKindConcept, analysis.ConceptsIntroduced)
	upsert(core.NodeKindPractice, analysis.PracticesDescribed)

	for _, name := range normalizedNames(analysis.ConceptsReferenced) {
		edge, err := w.graph.AppendEdge(ctx, &core.GraphEdge{
			SourceDocumentID: doc.Id,
			TargetConcept:    name,
			Kind:             core.EdgeKindReferences,
			CreatedAt:        now,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("append reference to %q: %w", name, err))
			continue
		}
		result.EdgesCreated++
		edges = append(edges, edge)
	}

	w.mirrorBatch(ctx, woven, edges)

	w.logger.Debug("document woven",
		"document", doc.Id,
		"nodes", result.NodesUpserted,
		"edges", result.EdgesCreated,
		"policy", w.policy.Name())

	return result, errors.Join(errs...)
}

func (w *Weaver) upsertNode(ctx context.Context, incoming *core.GraphNode) (*core.GraphNode, error) {
	incoming.Id = core.IDFromContent(incoming.Tuple())

	existing, err := w.graph.GetNode(ctx, incoming.Id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if errors.Is(err, storage.ErrNotFound) {
		existing = nil
	}

	merged := w.policy.Merge(existing, incoming)
	merged.Id = incoming.Id
	if err := w.graph.PutNode(ctx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (w *Weaver) mirrorBatch(ctx context.Context, nodes []*core.GraphNode, edges []*core.GraphEdge) {
	if w.mirror == nil || (len(nodes) == 0 && len(edges) == 0) {
		return
	}
	if err := w.mirror.MirrorWeave(ctx, nodes, edges); err != nil {
		w.logger.Warn("graph mirror write failed", "nodes", len(nodes), "edges", len(edges), "error", err)
	}
}

// uniqueNames normalizes names and drops blanks and repeats, keeping first-seen order.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		n := core.NormalizeName(name)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// normalizedNames normalizes names and drops blanks. Repeats are kept.
func normalizedNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if n := core.NormalizeName(name); n != "" {
			out = append(out, n)
		}
	}
	return out
}
