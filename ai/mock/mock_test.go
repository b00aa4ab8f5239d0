package mock

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/wellspring/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("prana", VectorDim)
	b := DeterministicVector("prana", VectorDim)
	c := DeterministicVector("qi", VectorDim)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(c[i])
	}
	assert.Less(t, math.Abs(dot), 0.3, "unrelated texts should be nearly orthogonal")
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	v, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, v, VectorDim)

	vs, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)
	assert.Equal(t, 2, m.CallCount())

	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	v, err = m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Nil(t, m.EmbedTextFunc)
}

func TestMockAnalyzer(t *testing.T) {
	ctx := context.Background()
	m := NewMockAnalyzer()

	result, err := m.Analyze(ctx, "Breathing practice steadies prana. Breathing again.")
	require.NoError(t, err)
	assert.Equal(t, []string{"breathing", "practice", "steadies", "prana", "again"}, result.Topics)
	assert.Equal(t, "Breathing practice steadies prana.", result.Summary)
	assert.NoError(t, core.ValidateAnalysis(result))
	assert.Equal(t, 1, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	mp := p.(*MockProvider)

	assert.Same(t, mp.GetMockEmbedder(), p.Embedder())
	assert.Same(t, mp.GetMockAnalyzer(), p.Analyzer())
	require.NoError(t, p.Close())
	assert.True(t, mp.Closed())
}
