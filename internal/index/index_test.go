package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa-go/internal/model"
	"pdf-qa-go/pkg/embedding"
)

// mapEmbedder 按预先给定的映射返回向量，未登记的文本返回错误。
type mapEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (m *mapEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	m.calls++
	v, ok := m.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (m *mapEmbedder) ModelVersion() string { return "map-v1" }

func chunksOf(contents ...string) []model.Chunk {
	out := make([]model.Chunk, len(contents))
	for i, c := range contents {
		out[i] = model.Chunk{Content: c, Metadata: model.ChunkMetadata{Source: "a.pdf", PageNumber: i + 1, Section: model.UnknownSection}}
	}
	return out
}

func testEmbedder() *mapEmbedder {
	return &mapEmbedder{vectors: map[string][]float32{
		"north": {1, 0, 0},
		"east":  {0, 1, 0},
		"up":    {0, 0, 1},
		"ne":    {0.7, 0.7, 0},
	}}
}

func TestChromemBuilder_SearchOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemBuilder(testEmbedder()).Build(ctx, "doc_1", chunksOf("north", "east", "up"))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 1, hits[1].Position)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
	assert.InDelta(t, 0, hits[0].Distance, 0.01)
}

func TestChromemBuilder_CapsKAtCollectionSize(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemBuilder(testEmbedder()).Build(ctx, "doc_1", chunksOf("north", "east"))
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestChromemBuilder_AllOrNothing(t *testing.T) {
	emb := testEmbedder()
	idx, err := NewChromemBuilder(emb).Build(context.Background(), "doc_1", chunksOf("north", "unknown", "up"))
	assert.Nil(t, idx)
	assert.True(t, errors.Is(err, ErrEmbeddingFailed))
	assert.Equal(t, 2, emb.calls, "stops at the first failure")
}

func TestChromemBuilder_DeterministicResults(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemBuilder(testEmbedder()).Build(ctx, "doc_1", chunksOf("north", "east", "up", "ne"))
	require.NoError(t, err)

	first, err := idx.Search(ctx, []float32{0.6, 0.8, 0}, 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := idx.Search(ctx, []float32{0.6, 0.8, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.NoError(t, idx.Drop(ctx))
}

func TestChromemBuilder_TiedDistancesOrderByPosition(t *testing.T) {
	ctx := context.Background()
	page := strings.Repeat("Hello world. ", 60)
	tail := strings.Repeat("Hello world. ", 20)
	chunks := chunksOf(page, page, tail, page, page)
	idx, err := NewChromemBuilder(embedding.NewHashEmbedder(64)).Build(ctx, "doc_dup", chunks)
	require.NoError(t, err)

	query, err := embedding.NewHashEmbedder(64).CreateEmbedding(ctx, "hello world")
	require.NoError(t, err)

	first, err := idx.Search(ctx, query, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		if prev.Distance == cur.Distance {
			assert.Less(t, prev.Position, cur.Position)
		} else {
			assert.Less(t, prev.Distance, cur.Distance)
		}
	}
	for i := 0; i < 100; i++ {
		again, err := idx.Search(ctx, query, 3)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSortHits(t *testing.T) {
	hits := []Hit{{Position: 3, Distance: 0.2}, {Position: 2, Distance: 0.1}, {Position: 0, Distance: 0.2}, {Position: 1, Distance: 0.1}}
	SortHits(hits)
	assert.Equal(t, []Hit{{1, 0.1}, {2, 0.1}, {0, 0.2}, {3, 0.2}}, hits)
}
