package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/corpusai/corpusd/internal/domain"
)

// ChunkRepository handles persistence of embedded document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

// InsertChunks stores embedded chunks for a document.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return err
		}

		_, err = r.db.Exec(ctx,
			`INSERT INTO chunks
				(id, document_id, source, chunk_index, content, tags, metadata, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id,
			c.DocumentID,
			c.Source,
			c.ChunkIndex,
			c.Content,
			c.Tags,
			metadataJSON,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// SearchByEmbedding returns the k nearest chunks by cosine distance,
// with scores normalized so higher means more similar.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, source, chunk_index, content, tags, metadata,
		        1 - (embedding <=> $1) AS score
		 FROM chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		var metadataJSON []byte
		var score float64
		err := rows.Scan(
			&sc.Chunk.ID,
			&sc.Chunk.DocumentID,
			&sc.Chunk.Source,
			&sc.Chunk.ChunkIndex,
			&sc.Chunk.Content,
			&sc.Chunk.Tags,
			&metadataJSON,
			&score,
		)
		if err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &sc.Chunk.Metadata); err != nil {
				return nil, err
			}
		}
		sc.Score = clampScore(score)
		results = append(results, sc)
	}

	return results, rows.Err()
}

// Count returns the number of indexed chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// DeleteAll removes every chunk from the index.
func (r *ChunkRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks`)
	return err
}

// clampScore keeps cosine similarity inside [0,1]; float error can push
// it slightly outside.
func clampScore(score float64) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return float32(score)
}
