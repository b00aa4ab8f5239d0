package search

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"testing"

	"github.com/poiesic/wellspring/ai/mock"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/graph"
	"github.com/poiesic/wellspring/storage"
	badgerstore "github.com/poiesic/wellspring/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// addDocument saves a document and weaves its analysis into the graph.
func addDocument(t *testing.T, store storage.Store, owner, text string, vector []float32, analysis *core.AnalysisResult) core.ID {
	t.Helper()
	ctx := context.Background()

	id, err := store.Documents().NextDocumentID(ctx)
	require.NoError(t, err)
	if analysis == nil {
		analysis = &core.AnalysisResult{Weights: core.NeutralWeights()}
	}
	doc := &core.Document{
		Id:       id,
		OwnerID:  owner,
		Content:  text,
		Vector:   vector,
		Analysis: analysis,
		Attribution: core.ContributorAttribution{
			OwnerID:      owner,
			PrivacyLevel: core.PrivacyAttributed,
		},
	}
	require.NoError(t, store.Documents().SaveDocument(ctx, doc))

	w, err := graph.NewWeaver(store.Graph())
	require.NoError(t, err)
	_, err = w.Weave(ctx, doc, analysis)
	require.NoError(t, err)
	return id
}

func providerReturning(vector []float32) *mock.MockProvider {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return vector, nil
	}
	return mock.NewMockProviderWithServices(embedder, mock.NewMockAnalyzer()).(*mock.MockProvider)
}

func TestNewSearcher(t *testing.T) {
	store := newTestStore(t)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(store.Documents(), store.Graph(), provider)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(store.Documents(), store.Graph(), provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("custom logger and threshold", func(t *testing.T) {
		searcher, err := NewSearcher(store.Documents(), store.Graph(), provider,
			WithLogger(slog.Default()), WithMinSimilarity(0.9))
		require.NoError(t, err)
		assert.Equal(t, float32(0.9), searcher.minSimilarity)
	})

	t.Run("invalid threshold", func(t *testing.T) {
		_, err := NewSearcher(store.Documents(), store.Graph(), provider, WithMinSimilarity(1.5))
		assert.Error(t, err)
	})

	t.Run("nil document repository", func(t *testing.T) {
		_, err := NewSearcher(nil, store.Graph(), provider)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
	})

	t.Run("nil graph repository", func(t *testing.T) {
		_, err := NewSearcher(store.Documents(), nil, provider)
		assert.Equal(t, ErrGraphRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(store.Documents(), store.Graph(), nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestFindSimilar_EmptyLibrary(t *testing.T) {
	store := newTestStore(t)
	searcher, err := NewSearcher(store.Documents(), store.Graph(), mock.NewMockProvider())
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "u1", "test query", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_SemanticSearchOnly(t *testing.T) {
	store := newTestStore(t)
	addDocument(t, store, "u1", "Breath carries prana", []float32{0.9, 0.1, 0.0}, nil)
	addDocument(t, store, "u1", "Breath and stillness", []float32{0.85, 0.15, 0.0}, nil)
	addDocument(t, store, "u1", "Rooting into the earth", []float32{0.1, 0.1, 0.8}, nil)

	searcher, err := NewSearcher(store.Documents(), store.Graph(), providerReturning([]float32{0.88, 0.12, 0.0}))
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "u1", "query words", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i := 0; i < len(results)-1; i++ {
		assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
	}
	for _, r := range results {
		assert.NotEqual(t, "Rooting into the earth", r.Document.Content)
	}
}

func TestFindSimilar_ConceptualSearchOnly(t *testing.T) {
	store := newTestStore(t)
	introducer := addDocument(t, store, "u1", "prana is the breath of life", []float32{0, 1, 0}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsIntroduced: []string{"prana"},
	})
	referrer := addDocument(t, store, "u1", "more on the subtle body", []float32{0, 0.9, 0.1}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsReferenced: []string{"prana"},
	})
	addDocument(t, store, "u1", "unrelated", []float32{0, 0.8, 0.2}, nil)

	searcher, err := NewSearcher(store.Documents(), store.Graph(), providerReturning([]float32{1, 0, 0}))
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "u1", "tell me about Prana", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	ids := []core.ID{results[0].Document.Id, results[1].Document.Id}
	assert.ElementsMatch(t, []core.ID{introducer, referrer}, ids)
	for _, r := range results {
		assert.InDelta(t, 1.2, r.Score, 1e-6)
	}
}

func TestFindSimilar_CombinedScoring(t *testing.T) {
	store := newTestStore(t)
	both := addDocument(t, store, "u1", "kundalini rising", []float32{1, 0, 0}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsIntroduced: []string{"kundalini"},
	})
	semantic := addDocument(t, store, "u1", "serpent energy", []float32{0.95, 0.05, 0}, nil)

	searcher, err := NewSearcher(store.Documents(), store.Graph(), providerReturning([]float32{1, 0, 0}))
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "u1", "kundalini rising", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, both, results[0].Document.Id)
	assert.InDelta(t, 1.5+0.3, results[0].Score, 1e-4)
	assert.Equal(t, semantic, results[1].Document.Id)
	assert.Less(t, results[1].Score, float32(1.0))
}

func TestFindSimilar_MaxHits(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		addDocument(t, store, "u1", "same", []float32{1, float32(i) * 0.01, 0}, nil)
	}

	searcher, err := NewSearcher(store.Documents(), store.Graph(), providerReturning([]float32{1, 0, 0}))
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "u1", "query", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = searcher.FindSimilar(context.Background(), "u1", "query", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_OwnerScoped(t *testing.T) {
	store := newTestStore(t)
	addDocument(t, store, "u2", "qi gathers in the dantian", []float32{1, 0, 0}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsIntroduced: []string{"qi"},
	})
	mine := addDocument(t, store, "u1", "my notes", []float32{0, 0, 1}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsReferenced: []string{"qi"},
	})

	searcher, err := NewSearcher(store.Documents(), store.Graph(), providerReturning([]float32{1, 0, 0}))
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "u1", "qi", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, mine, results[0].Document.Id)
}

func TestDocumentsByConcept(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	intro := addDocument(t, store, "u1", "a", []float32{1, 0}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsIntroduced: []string{"Sattva"},
	})
	ref := addDocument(t, store, "u1", "b", []float32{0, 1}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsReferenced: []string{"sattva"},
	})
	addDocument(t, store, "u2", "c", []float32{0, 1}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsReferenced: []string{"sattva"},
	})
	practice := addDocument(t, store, "u1", "d", []float32{1, 1}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		PracticesDescribed: []string{"Trataka"},
	})
	onlyRef := addDocument(t, store, "u1", "e", []float32{1, 1}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsReferenced: []string{"ojas"},
	})

	searcher, err := NewSearcher(store.Documents(), store.Graph(), mock.NewMockProvider())
	require.NoError(t, err)

	docs, err := searcher.DocumentsByConcept(ctx, "u1", "  SATTVA ")
	require.NoError(t, err)
	assert.Equal(t, []core.ID{intro, ref}, docIDs(docs))

	docs, err = searcher.DocumentsByConcept(ctx, "u1", "trataka")
	require.NoError(t, err)
	assert.Equal(t, []core.ID{practice}, docIDs(docs))

	docs, err = searcher.DocumentsByConcept(ctx, "u1", "ojas")
	require.NoError(t, err)
	assert.Equal(t, []core.ID{onlyRef}, docIDs(docs))

	docs, err = searcher.DocumentsByConcept(ctx, "u1", "unknown")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func docIDs(docs []*core.Document) []core.ID {
	ids := make([]core.ID, len(docs))
	for i, d := range docs {
		ids[i] = d.Id
	}
	return ids
}

type recordingMonitor struct {
	noopMonitor
	query      string
	semantic   []core.ID
	nodes      []string
	conceptual []core.ID
	hits       map[string]int
	finished   int
}

func (m *recordingMonitor) Start(_, query string)           { m.query = query }
func (m *recordingMonitor) AfterSemanticSearch(ids []core.ID) { m.semantic = ids }
func (m *recordingMonitor) AfterQueryConceptMatch(nodes []*core.GraphNode) {
	for _, n := range nodes {
		m.nodes = append(m.nodes, n.Name)
	}
}
func (m *recordingMonitor) AfterConceptuallyRelatedSearch(ids iter.Seq[core.ID]) {
	m.conceptual = slices.Sorted(ids)
}
func (m *recordingMonitor) SemanticAndConceptualHit(*core.Document) { m.hits["both"]++ }
func (m *recordingMonitor) SemanticHit(*core.Document)              { m.hits["semantic"]++ }
func (m *recordingMonitor) ConceptualHit(*core.Document)            { m.hits["conceptual"]++ }
func (m *recordingMonitor) Finish([]*Result)                        { m.finished++ }

func TestFindSimilarWithMonitor(t *testing.T) {
	store := newTestStore(t)
	both := addDocument(t, store, "u1", "tapas", []float32{1, 0, 0}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsIntroduced: []string{"tapas"},
	})
	semantic := addDocument(t, store, "u1", "heat", []float32{0.9, 0.1, 0}, nil)
	conceptual := addDocument(t, store, "u1", "discipline", []float32{0, 0, 1}, &core.AnalysisResult{
		Weights:            core.NeutralWeights(),
		ConceptsReferenced: []string{"tapas"},
	})

	searcher, err := NewSearcher(store.Documents(), store.Graph(), providerReturning([]float32{1, 0, 0}))
	require.NoError(t, err)

	monitor := &recordingMonitor{hits: map[string]int{}}
	results, err := searcher.FindSimilarWithMonitor(context.Background(), "u1", "tapas", 10, monitor)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "tapas", monitor.query)
	assert.ElementsMatch(t, []core.ID{both, semantic}, monitor.semantic)
	assert.Equal(t, []string{"tapas"}, monitor.nodes)
	assert.Equal(t, []core.ID{both, conceptual}, monitor.conceptual)
	assert.Equal(t, map[string]int{"both": 1, "semantic": 1, "conceptual": 1}, monitor.hits)
	assert.Equal(t, 1, monitor.finished)
}
