package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
	badgerstore "github.com/poiesic/wellspring/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	mu      sync.Mutex
	batches int
	nodes   []*core.GraphNode
	edges   []*core.GraphEdge
	err     error
}

func (m *recordingMirror) MirrorWeave(_ context.Context, nodes []*core.GraphNode, edges []*core.GraphEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.nodes = append(m.nodes, nodes...)
	m.edges = append(m.edges, edges...)
	return m.err
}

func newTestGraph(t *testing.T) storage.GraphRepository {
	t.Helper()
	store, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store.Graph()
}

func testDocument(id core.ID, level core.PrivacyLevel) *core.Document {
	return &core.Document{
		Id:      id,
		OwnerID: "u1",
		Attribution: core.ContributorAttribution{
			OwnerID:      "u1",
			DisplayName:  "Ada",
			Role:         "mentor",
			PrivacyLevel: level,
		},
	}
}

func testAnalysis() *core.AnalysisResult {
	return &core.AnalysisResult{
		Weights:            core.ClassificationWeights{core.DimensionAir: 0.7, core.DimensionFire: 0.2},
		ConceptsIntroduced: []string{"Prana", "prana ", "nadi"},
		ConceptsReferenced: []string{"chakra"},
		PracticesDescribed: []string{"Alternate Nostril Breathing"},
	}
}

func TestWeave_CreatesNodesAndEdges(t *testing.T) {
	ctx := context.Background()
	repo := newTestGraph(t)
	w, err := NewWeaver(repo)
	require.NoError(t, err)

	result, err := w.Weave(ctx, testDocument(1, core.PrivacyAttributed), testAnalysis())
	require.NoError(t, err)
	assert.Equal(t, WeaveResult{NodesUpserted: 3, EdgesCreated: 1}, result)

	concepts, err := repo.ListNodes(ctx, core.NodeKindConcept)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, "nadi", concepts[0].Name)
	assert.Equal(t, "prana", concepts[1].Name)
	assert.Equal(t, core.DimensionAir, concepts[1].Tag)
	assert.Equal(t, core.ID(1), concepts[1].IntroducedBy)

	practices, err := repo.ListNodes(ctx, core.NodeKindPractice)
	require.NoError(t, err)
	require.Len(t, practices, 1)
	assert.Equal(t, "alternate nostril breathing", practices[0].Name)

	edges, err := repo.EdgesTo(ctx, "chakra")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, core.ID(1), edges[0].SourceDocumentID)
	assert.Equal(t, core.EdgeKindReferences, edges[0].Kind)
}

func TestWeave_NodesIdempotentEdgesAppend(t *testing.T) {
	ctx := context.Background()
	repo := newTestGraph(t)
	w, err := NewWeaver(repo)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := w.Weave(ctx, testDocument(core.ID(i+1), core.PrivacyAttributed), testAnalysis())
		require.NoError(t, err)
	}

	nodes, err := repo.ListNodes(ctx, "")
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	edges, err := repo.EdgesTo(ctx, "chakra")
	require.NoError(t, err)
	assert.Len(t, edges, 2)
	assert.NotEqual(t, edges[0].Id, edges[1].Id)
}

func TestWeave_RepeatedReferencesEachGetAnEdge(t *testing.T) {
	ctx := context.Background()
	repo := newTestGraph(t)
	w, err := NewWeaver(repo)
	require.NoError(t, err)

	analysis := testAnalysis()
	analysis.ConceptsReferenced = []string{"chakra", "chakra", " Chakra", ""}

	result, err := w.Weave(ctx, testDocument(1, core.PrivacyAttributed), analysis)
	require.NoError(t, err)
	assert.Equal(t, 3, result.EdgesCreated)

	edges, err := repo.EdgesTo(ctx, "chakra")
	require.NoError(t, err)
	require.Len(t, edges, 3)
	for _, e := range edges {
		assert.Equal(t, core.ID(1), e.SourceDocumentID)
	}
}

func TestWeave_Privacy(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		level       core.PrivacyLevel
		wantNil     bool
		wantName    string
		wantOwnerID string
	}{
		{level: core.PrivacyAttributed, wantName: "Ada", wantOwnerID: "u1"},
		{level: core.PrivacyAnonymous, wantName: "", wantOwnerID: ""},
		{level: core.PrivacyPrivate, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			repo := newTestGraph(t)
			w, err := NewWeaver(repo)
			require.NoError(t, err)

			_, err = w.Weave(ctx, testDocument(7, tt.level), testAnalysis())
			require.NoError(t, err)

			node, err := repo.GetNode(ctx, core.IDFromContent(core.NodeTuple(core.NodeKindConcept, "prana")))
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, node.Contributor)
				return
			}
			require.NotNil(t, node.Contributor)
			assert.Equal(t, tt.wantName, node.Contributor.DisplayName)
			assert.Equal(t, tt.wantOwnerID, node.Contributor.ID)
			assert.Equal(t, "mentor", node.Contributor.Role)
		})
	}
}

func TestWeave_Policies(t *testing.T) {
	ctx := context.Background()
	pranaID := core.IDFromContent(core.NodeTuple(core.NodeKindConcept, "prana"))

	second := testDocument(2, core.PrivacyAttributed)
	second.Attribution.OwnerID = "u2"
	second.Attribution.DisplayName = "Grace"
	second.OwnerID = "u2"

	weaveTwice := func(t *testing.T, policy NodeUpsertPolicy) *core.GraphNode {
		repo := newTestGraph(t)
		w, err := NewWeaver(repo, WithPolicy(policy))
		require.NoError(t, err)
		_, err = w.Weave(ctx, testDocument(1, core.PrivacyAttributed), testAnalysis())
		require.NoError(t, err)
		_, err = w.Weave(ctx, second, testAnalysis())
		require.NoError(t, err)
		node, err := repo.GetNode(ctx, pranaID)
		require.NoError(t, err)
		return node
	}

	t.Run("last writer wins", func(t *testing.T) {
		node := weaveTwice(t, LastWriterWins{})
		assert.Equal(t, core.ID(2), node.IntroducedBy)
		assert.Equal(t, "Grace", node.Contributor.DisplayName)
		assert.Empty(t, node.Contributors)
	})

	t.Run("first writer wins", func(t *testing.T) {
		node := weaveTwice(t, FirstWriterWins{})
		assert.Equal(t, core.ID(1), node.IntroducedBy)
		assert.Equal(t, "Ada", node.Contributor.DisplayName)
	})

	t.Run("multi attribution", func(t *testing.T) {
		node := weaveTwice(t, MultiAttribution{})
		assert.Equal(t, core.ID(1), node.IntroducedBy)
		require.Len(t, node.Contributors, 2)
		assert.Equal(t, "Ada", node.Contributors[0].DisplayName)
		assert.Equal(t, "Grace", node.Contributors[1].DisplayName)
	})
}

func TestWeave_MultiAttributionSkipsRepeats(t *testing.T) {
	ctx := context.Background()
	repo := newTestGraph(t)
	w, err := NewWeaver(repo, WithPolicy(MultiAttribution{}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := w.Weave(ctx, testDocument(core.ID(i+1), core.PrivacyAttributed), testAnalysis())
		require.NoError(t, err)
	}

	node, err := repo.GetNode(ctx, core.IDFromContent(core.NodeTuple(core.NodeKindConcept, "prana")))
	require.NoError(t, err)
	assert.Len(t, node.Contributors, 1)
}

func TestWeave_Mirror(t *testing.T) {
	ctx := context.Background()
	repo := newTestGraph(t)
	mirror := &recordingMirror{err: errors.New("neo4j unavailable")}
	clock := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	w, err := NewWeaver(repo, WithMirror(mirror), WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	result, err := w.Weave(ctx, testDocument(1, core.PrivacyPrivate), testAnalysis())
	require.NoError(t, err, "mirror failures never fail the weave")
	assert.Equal(t, 3, result.NodesUpserted)

	assert.Equal(t, 1, mirror.batches)
	assert.Len(t, mirror.nodes, 3)
	require.Len(t, mirror.edges, 1)
	assert.Equal(t, clock, mirror.edges[0].CreatedAt)
	for _, n := range mirror.nodes {
		assert.Nil(t, n.Contributor)
	}
}

func TestWeave_EmptyAnalysisSkipsMirror(t *testing.T) {
	mirror := &recordingMirror{}
	w, err := NewWeaver(newTestGraph(t), WithMirror(mirror))
	require.NoError(t, err)

	result, err := w.Weave(context.Background(), testDocument(1, core.PrivacyAttributed), &core.AnalysisResult{})
	require.NoError(t, err)
	assert.Equal(t, WeaveResult{}, result)
	assert.Zero(t, mirror.batches)
}

func TestPolicyByName(t *testing.T) {
	p, ok := PolicyByName("")
	require.True(t, ok)
	assert.Equal(t, "last-writer-wins", p.Name())

	p, ok = PolicyByName("multi-attribution")
	require.True(t, ok)
	assert.IsType(t, MultiAttribution{}, p)

	_, ok = PolicyByName("random")
	assert.False(t, ok)
}

func TestNewWeaver_Validation(t *testing.T) {
	_, err := NewWeaver(nil)
	assert.Error(t, err)

	_, err = NewWeaver(newTestGraph(t), WithPolicy(nil))
	assert.Error(t, err)
}
