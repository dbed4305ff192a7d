package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criskgl/peritoai/internal/core/domain"
)

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	assert.Equal(t, DefaultDimensions, NewEmbeddingService(0).Dimensions())
	assert.Equal(t, 64, NewEmbeddingService(64).Dimensions())
	assert.Equal(t, DefaultModel, NewEmbeddingService(0).ModelName())
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	svc := NewEmbeddingService(128)
	ctx := context.Background()

	a, err := svc.Embed(ctx, "Daños por agua en la vivienda")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "Daños por agua en la vivienda")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 128)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbed_RelatedTextScoresHigher(t *testing.T) {
	svc := NewEmbeddingService(DefaultDimensions)
	ctx := context.Background()

	query, err := svc.Embed(ctx, "daños por agua de lluvia")
	require.NoError(t, err)
	related, err := svc.Embed(ctx, "Quedan cubiertos los daños causados por agua de lluvia y nieve.")
	require.NoError(t, err)
	unrelated, err := svc.Embed(ctx, "Responsabilidad civil del conductor del vehículo asegurado.")
	require.NoError(t, err)

	rel, err := domain.CosineSimilarity(query, related)
	require.NoError(t, err)
	unrel, err := domain.CosineSimilarity(query, unrelated)
	require.NoError(t, err)

	assert.Greater(t, rel, unrel)
}

func TestEmbed_NoTokensGivesZeroVector(t *testing.T) {
	svc := NewEmbeddingService(16)

	vec, err := svc.Embed(context.Background(), "  ... de la ,, ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestEmbed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbeddingService(16).Embed(ctx, "texto")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedBatch(t *testing.T) {
	svc := NewEmbeddingService(32)
	ctx := context.Background()

	vecs, err := svc.EmbedBatch(ctx, []string{"uno", "dos"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	single, err := svc.Embed(ctx, "dos")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[1])

	empty, err := svc.EmbedBatch(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"póliza", "hogar", "2024"}, tokenize("La Póliza del HOGAR, 2024"))
}
