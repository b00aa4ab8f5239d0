package search

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// DefaultMinSimilarity is the semantic search threshold.
const DefaultMinSimilarity float32 = 0.60

// Result is a scored search hit.
type Result struct {
	Document *core.Document
	Score    float32
}

// Searcher provides hybrid semantic and conceptual search over documents.
type Searcher struct {
	docs          storage.DocumentRepository
	graph         storage.GraphRepository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the semantic search threshold.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		if min < 0 || min > 1 {
			return errors.New("min similarity must be between 0 and 1")
		}
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	docs storage.DocumentRepository,
	graph storage.GraphRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if graph == nil {
		return nil, ErrGraphRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		docs:          docs,
		graph:         graph,
		embedder:      provider.Embedder(),
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// FindSimilar searches the owner's documents for the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, ownerID, query string, maxHits int) ([]*Result, error) {
	return s.FindSimilarWithMonitor(ctx, ownerID, query, maxHits, nil)
}

// FindSimilarWithMonitor searches the owner's documents for the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, ownerID, query string, maxHits int, monitor SearchMonitor) ([]*Result, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if maxHits <= 0 {
		return []*Result{}, nil
	}

	monitor.Start(ownerID, query)

	// 1. Perform semantic search
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.docs.SimilaritySearch(ctx, ownerID, embedding, s.minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar documents", "err", err)
		return nil, err
	}

	semanticScores := make(map[core.ID]float32, len(matches))
	semanticIds := make([]core.ID, 0, len(matches))
	docsByID := make(map[core.ID]*core.Document, len(matches))
	for _, match := range matches {
		semanticScores[match.Document.Id] = match.Score
		semanticIds = append(semanticIds, match.Document.Id)
		docsByID[match.Document.Id] = match.Document
	}
	monitor.AfterSemanticSearch(semanticIds)

	// 2. Match graph nodes named in the query
	nodes, err := s.matchNodes(ctx, query)
	if err != nil {
		s.logger.Error("error matching query concepts", "err", err)
		return nil, err
	}
	monitor.AfterQueryConceptMatch(nodes)

	// 3. Find documents related to those nodes
	conceptualSet := make(map[core.ID]bool)
	for _, node := range nodes {
		ids, err := s.relatedDocumentIDs(ctx, node)
		if err != nil {
			s.logger.Warn("failed to get documents for concept", "concept", node.Name, "err", err)
			continue
		}
		for _, id := range ids {
			conceptualSet[id] = true
		}
	}
	monitor.AfterConceptuallyRelatedSearch(maps.Keys(conceptualSet))

	// 4. Retrieve conceptual hits the semantic search did not return
	for id := range conceptualSet {
		if _, ok := docsByID[id]; ok {
			continue
		}
		doc, err := s.docs.GetDocument(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("error retrieving document", "document", id, "err", err)
			return nil, err
		}
		docsByID[id] = doc
	}

	// Other owners' documents reach the graph but never the results.
	docs := make([]*core.Document, 0, len(docsByID))
	for _, id := range slices.Sorted(maps.Keys(docsByID)) {
		if doc := docsByID[id]; doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	monitor.AfterDocumentRetrieval(docs)

	if len(docs) == 0 {
		monitor.Finish([]*Result{})
		return []*Result{}, nil
	}

	// Score and build results
	results := make([]*Result, 0, len(docs))
	for _, doc := range docs {
		similarityScore, inSemantic := semanticScores[doc.Id]
		inConceptual := conceptualSet[doc.Id]

		var score float32
		if inSemantic && inConceptual {
			// In both: boost by 1.5x, weighted by similarity score
			score = 1.5 * similarityScore
			monitor.SemanticAndConceptualHit(doc)
		} else if inConceptual {
			// Conceptual only: 1.2
			score = 1.2
			monitor.ConceptualHit(doc)
		} else {
			// Semantic only: 1.0, weighted by similarity score
			score = similarityScore
			monitor.SemanticHit(doc)
		}

		// Apply verbatim match boost
		if containsAllQueryWords(doc.Content, query) {
			score += 0.3
		}

		results = append(results, &Result{Document: doc, Score: score})
	}

	// Sort by score descending; docs are in ID order so ties stay stable
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}

// DocumentsByConcept returns the owner's documents that introduce or
// reference the named concept, or describe the named practice, in ID order.
func (s *Searcher) DocumentsByConcept(ctx context.Context, ownerID, name string) ([]*core.Document, error) {
	name = core.NormalizeName(name)
	if name == "" {
		return []*core.Document{}, nil
	}

	ids := make(map[core.ID]bool)
	for _, kind := range []core.NodeKind{core.NodeKindConcept, core.NodeKindPractice} {
		node, err := s.graph.GetNode(ctx, core.IDFromContent(core.NodeTuple(kind, name)))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		related, err := s.relatedDocumentIDs(ctx, node)
		if err != nil {
			return nil, err
		}
		for _, id := range related {
			ids[id] = true
		}
	}

	// A concept can be referenced before any document introduces it.
	edges, err := s.graph.EdgesTo(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		ids[e.SourceDocumentID] = true
	}

	docs := make([]*core.Document, 0, len(ids))
	for _, id := range slices.Sorted(maps.Keys(ids)) {
		doc, err := s.docs.GetDocument(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// matchNodes returns graph nodes whose name appears as a phrase in the query.
func (s *Searcher) matchNodes(ctx context.Context, query string) ([]*core.GraphNode, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	all, err := s.graph.ListNodes(ctx, "")
	if err != nil {
		return nil, err
	}

	var matched []*core.GraphNode
	for _, node := range all {
		if containsPhrase(queryTokens, tokenize(node.Name)) {
			matched = append(matched, node)
		}
	}
	return matched, nil
}

// relatedDocumentIDs returns the node's introducing document plus, for
// concepts, every document referencing it.
func (s *Searcher) relatedDocumentIDs(ctx context.Context, node *core.GraphNode) ([]core.ID, error) {
	var ids []core.ID
	if node.IntroducedBy != 0 {
		ids = append(ids, node.IntroducedBy)
	}
	if node.Kind != core.NodeKindConcept {
		return ids, nil
	}

	edges, err := s.graph.EdgesTo(ctx, node.Name)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		ids = append(ids, e.SourceDocumentID)
	}
	return ids, nil
}
