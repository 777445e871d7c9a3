package service

import (
	"context"
	"testing"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memChunk(id, content string) domain.Chunk {
	return domain.Chunk{DocumentID: id, Source: id + ".txt", Content: content}
}

func TestMemoryIndex_SearchRanksByOverlap(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Add(ctx, []domain.Chunk{
		memChunk("doc_000001", "refund policy allows returns within thirty days"),
		memChunk("doc_000002", "shipping takes five business days"),
		memChunk("doc_000003", "refund requests go through support"),
	}))

	results, err := idx.Search(ctx, "refund policy", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Both query terms match the first chunk, only one matches the third.
	assert.Equal(t, "doc_000001", results[0].Chunk.DocumentID)
	assert.Equal(t, float32(1.0), results[0].Score)
	assert.Equal(t, "doc_000003", results[1].Chunk.DocumentID)
	assert.Equal(t, float32(0.5), results[1].Score)
}

func TestMemoryIndex_SearchIgnoresStopwordsAndPunctuation(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Add(ctx, []domain.Chunk{
		memChunk("doc_000001", "Refunds, within thirty days."),
	}))

	results, err := idx.Search(ctx, "What is the refunds policy?", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0.5), results[0].Score)
}

func TestMemoryIndex_SearchEmptyQuery(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add(ctx, []domain.Chunk{memChunk("doc_000001", "content")}))

	results, err := idx.Search(ctx, "the and of", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndex_SearchHonorsLimit(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Add(ctx, []domain.Chunk{memChunk("doc", "widget manual")}))
	}

	results, err := idx.Search(ctx, "widget", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryIndex_CountAndReset(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, idx.Add(ctx, []domain.Chunk{memChunk("a", "x"), memChunk("b", "y")}))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, idx.Reset(ctx))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryIndex_Degraded(t *testing.T) {
	assert.True(t, NewMemoryIndex().Degraded())
}
