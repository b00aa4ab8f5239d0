package wellspring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/ai/mock"
	"github.com/poiesic/wellspring/content"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/ingestion"
	"github.com/poiesic/wellspring/storage"
	"github.com/poiesic/wellspring/storage/neo4jgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLibrary(t *testing.T) {
	t.Run("create new library", func(t *testing.T) {
		lib, err := NewLibrary(filepath.Join(t.TempDir(), "lib"), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer lib.Close()

		assert.NotNil(t, lib.Store())
		assert.NotNil(t, lib.Provider())
		assert.False(t, lib.Durable())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		lib, err := NewLibrary(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, lib)
	})

	t.Run("error with invalid AI config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithMaxConcepts(0))
		lib, err := NewLibrary(t.TempDir(), WithAIConfig(cfg))
		assert.Error(t, err)
		assert.Nil(t, lib)
	})

	t.Run("empty neo4j uri leaves mirror off", func(t *testing.T) {
		lib, err := NewLibrary(t.TempDir(),
			WithProvider(mock.NewMockProvider()),
			WithNeo4jMirror(neo4jgraph.Config{}))
		require.NoError(t, err)
		defer lib.Close()
		assert.Nil(t, lib.mirror)
	})
}

func TestLibrary_CloseClosesProvider(t *testing.T) {
	provider := mock.NewMockProvider()
	lib, err := NewLibrary(t.TempDir(), WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, lib.Close())
	assert.True(t, provider.(*mock.MockProvider).Closed())
}

func TestLibrary_IngestAndQuery(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.(*mock.MockProvider).GetMockAnalyzer().AnalyzeFunc = func(ctx context.Context, text string) (*core.AnalysisResult, error) {
		return &core.AnalysisResult{
			Summary:            "breath",
			Topics:             []string{"breath"},
			Weights:            core.ClassificationWeights{core.DimensionAir: 0.8, core.DimensionFire: 0.2},
			ConceptsIntroduced: []string{"prana"},
		}, nil
	}

	lib, err := NewLibrary(t.TempDir(), WithProvider(provider))
	require.NoError(t, err)
	defer lib.Close()

	pipeline, err := lib.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	handle, err := pipeline.Enqueue(ctx, &core.IngestionJob{
		OwnerID:       "u1",
		RawContentRef: content.Inline("Prana moves through the nadis with every breath."),
		Attribution: core.ContributorAttribution{
			OwnerID:      "u1",
			PrivacyLevel: core.PrivacyAttributed,
		},
	})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	status, err := pipeline.Wait(waitCtx, handle)
	require.NoError(t, err)
	require.Equal(t, ingestion.StatePersisted, status.State)

	balance, err := lib.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, balance.DocumentCount)
	assert.InDelta(t, 0.8, balance.Means[core.DimensionAir], 1e-9)

	doc, err := lib.Document(ctx, "u1", status.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.OwnerID)

	_, err = lib.Document(ctx, "u2", status.DocumentID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	nodes, err := lib.Concepts(ctx, core.NodeKindConcept)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "prana", nodes[0].Name)

	bridges, err := lib.Bridges(ctx)
	require.NoError(t, err)
	assert.Empty(t, bridges)

	searcher, err := lib.NewSearcher()
	require.NoError(t, err)
	results, err := searcher.FindSimilar(ctx, "u1", "Prana moves through the nadis with every breath.", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, status.DocumentID, results[0].Document.Id)
}

func TestLibrary_RedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)

	lib, err := NewLibrary(t.TempDir(),
		WithProvider(mock.NewMockProvider()),
		WithRedisQueue(ingestion.RedisOptions{URL: "redis://" + mr.Addr()}))
	require.NoError(t, err)
	defer lib.Close()
	assert.True(t, lib.Durable())

	pipeline, err := lib.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	handle, err := pipeline.Enqueue(context.Background(), &core.IngestionJob{
		OwnerID:       "u1",
		RawContentRef: content.Inline("Stillness before the first breath."),
		Attribution:   core.ContributorAttribution{PrivacyLevel: core.PrivacyPrivate},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := pipeline.Wait(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatePersisted, status.State)
}

func TestLibrary_RedisUnreachable(t *testing.T) {
	lib, err := NewLibrary(t.TempDir(),
		WithProvider(mock.NewMockProvider()),
		WithRedisQueue(ingestion.RedisOptions{URL: "redis://127.0.0.1:1", ConnectTimeout: 200 * time.Millisecond}))
	assert.Error(t, err)
	assert.Nil(t, lib)
}
