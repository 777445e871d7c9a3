package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpusai/corpusd/internal/domain"
)

// SettingsRepository persists the single active instruction settings
// row. The table holds at most one row, replaced wholesale on save.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Load returns the persisted settings, or defaults if none were saved
// yet.
func (r *SettingsRepository) Load(ctx context.Context) (domain.InstructionSettings, error) {
	var s domain.InstructionSettings
	err := r.pool.QueryRow(ctx,
		`SELECT system_instruction, response_length, show_similarity_scores, max_chunks, similarity_threshold
		 FROM instruction_settings WHERE id = 1`,
	).Scan(
		&s.SystemInstruction,
		&s.ResponseLength,
		&s.ShowSimilarityScores,
		&s.MaxChunks,
		&s.SimilarityThreshold,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultInstructionSettings(), nil
		}
		return domain.InstructionSettings{}, err
	}
	return s, nil
}

// Save replaces the persisted settings.
func (r *SettingsRepository) Save(ctx context.Context, s domain.InstructionSettings) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO instruction_settings
			(id, system_instruction, response_length, show_similarity_scores, max_chunks, similarity_threshold, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
			system_instruction = EXCLUDED.system_instruction,
			response_length = EXCLUDED.response_length,
			show_similarity_scores = EXCLUDED.show_similarity_scores,
			max_chunks = EXCLUDED.max_chunks,
			similarity_threshold = EXCLUDED.similarity_threshold,
			updated_at = EXCLUDED.updated_at`,
		s.SystemInstruction,
		string(s.ResponseLength),
		s.ShowSimilarityScores,
		s.MaxChunks,
		s.SimilarityThreshold,
		time.Now().UTC(),
	)
	return err
}
