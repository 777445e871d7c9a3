package service

import (
	"context"

	"github.com/corpusai/corpusd/internal/domain"
)

// Index is the similarity index boundary. Search scores are normalized
// so higher means more relevant, regardless of backend.
type Index interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	// Degraded reports whether the index runs in a reduced-quality
	// fallback mode rather than against the real vector backend.
	Degraded() bool
}

// ChunkStoreInterface defines the chunk persistence operations the
// vector index needs.
type ChunkStoreInterface interface {
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
	SearchByEmbedding(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// EmbeddingClientInterface defines the interface for embedding generation
type EmbeddingClientInterface interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the pgvector-backed similarity index.
type VectorIndex struct {
	store     ChunkStoreInterface
	embedding EmbeddingClientInterface
}

// NewVectorIndex creates a VectorIndex over a chunk store and an
// embedding client.
func NewVectorIndex(store ChunkStoreInterface, embedding EmbeddingClientInterface) *VectorIndex {
	return &VectorIndex{
		store:     store,
		embedding: embedding,
	}
}

// Add embeds each chunk's content and stores it.
func (x *VectorIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	embedded := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		vec, err := x.embedding.GenerateEmbedding(ctx, c.Content)
		if err != nil {
			return err
		}
		c.Embedding = vec
		embedded = append(embedded, c)
	}
	return x.store.InsertChunks(ctx, embedded)
}

// Search embeds the query and returns the k nearest chunks.
func (x *VectorIndex) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	embedding, err := x.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	return x.store.SearchByEmbedding(ctx, embedding, k)
}

func (x *VectorIndex) Count(ctx context.Context) (int, error) {
	return x.store.Count(ctx)
}

func (x *VectorIndex) Reset(ctx context.Context) error {
	return x.store.DeleteAll(ctx)
}

func (x *VectorIndex) Degraded() bool {
	return false
}
