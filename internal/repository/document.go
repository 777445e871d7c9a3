package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/pagination"
	"github.com/corpusai/corpusd/internal/service"
)

// DocumentRepository tracks registered documents. It is independent of
// the chunk index; deleting a document here does not remove its vectors.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

// NextID allocates the next zero-padded document ID from the registry
// sequence.
func (r *DocumentRepository) NextID(ctx context.Context) (string, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('document_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return domain.FormatDocumentID(seq), nil
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	metadataJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return err
	}

	uploadTime := d.UploadTime
	if uploadTime.IsZero() {
		uploadTime = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO documents
			(id, filename, file_type, file_size, upload_time, chunk_count, content_preview, tags, metadata)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID,
		d.Filename,
		nullableString(d.FileType),
		d.FileSize,
		uploadTime,
		d.ChunkCount,
		d.ContentPreview,
		d.Tags,
		metadataJSON,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, filename, file_type, file_size, upload_time, chunk_count, content_preview, tags, metadata
		 FROM documents WHERE id = $1`,
		id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, file_type, file_size, upload_time, chunk_count, content_preview, tags, metadata
			 FROM documents
			 WHERE (upload_time, id) < ($1, $2)
			 ORDER BY upload_time DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, file_type, file_size, upload_time, chunk_count, content_preview, tags, metadata
			 FROM documents
			 ORDER BY upload_time DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UploadTime)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Delete removes the tracking record only. Chunk vectors stay in the
// index, which is a documented limitation of deletion.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// DeleteAll clears the registry and resets the ID sequence.
func (r *DocumentRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `SELECT setval('document_seq', 1, false)`)
	return err
}

func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var d domain.Document
	var fileType *string
	var metadataJSON []byte
	err := row.Scan(
		&d.ID,
		&d.Filename,
		&fileType,
		&d.FileSize,
		&d.UploadTime,
		&d.ChunkCount,
		&d.ContentPreview,
		&d.Tags,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}
	if fileType != nil {
		d.FileType = *fileType
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &d.Metadata); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var items []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	return items, rows.Err()
}
