package service

import (
	"context"
	"testing"
	"time"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_NextIDSequence(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	id1, err := reg.NextID(ctx)
	require.NoError(t, err)
	id2, err := reg.NextID(ctx)
	require.NoError(t, err)

	assert.Equal(t, "doc_000001", id1)
	assert.Equal(t, "doc_000002", id2)
}

func TestMemoryRegistry_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	doc := &domain.Document{
		ID:         "doc_000001",
		Filename:   "policy.txt",
		FileType:   "txt",
		FileSize:   42,
		UploadTime: time.Now().UTC(),
		ChunkCount: 2,
	}
	require.NoError(t, reg.Create(ctx, doc))

	got, err := reg.GetByID(ctx, "doc_000001")
	require.NoError(t, err)
	assert.Equal(t, "policy.txt", got.Filename)

	// The registry stores a copy, not the caller's pointer.
	doc.Filename = "mutated.txt"
	got, err = reg.GetByID(ctx, "doc_000001")
	require.NoError(t, err)
	assert.Equal(t, "policy.txt", got.Filename)

	require.NoError(t, reg.Delete(ctx, "doc_000001"))
	_, err = reg.GetByID(ctx, "doc_000001")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestMemoryRegistry_CreateValidates(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	err := reg.Create(ctx, &domain.Document{ID: "doc_000001"})
	assert.Error(t, err)

	err = reg.Create(ctx, &domain.Document{Filename: "a.txt"})
	assert.Error(t, err)
}

func TestMemoryRegistry_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	doc := &domain.Document{ID: "doc_000001", Filename: "a.txt"}
	require.NoError(t, reg.Create(ctx, doc))
	assert.ErrorIs(t, reg.Create(ctx, doc), domain.ErrDocumentAlreadyExists)
}

func TestMemoryRegistry_DeleteNotFound(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	assert.ErrorIs(t, reg.Delete(ctx, "doc_999999"), domain.ErrDocumentNotFound)
}

func TestMemoryRegistry_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		id, err := reg.NextID(ctx)
		require.NoError(t, err)
		require.NoError(t, reg.Create(ctx, &domain.Document{
			ID:         id,
			Filename:   id + ".txt",
			UploadTime: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Newest first, two pages of 2 and a final page of 1.
	page1, err := reg.ListWithCursor(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.Equal(t, "doc_000005", page1.Items[0].ID)
	assert.Equal(t, "doc_000004", page1.Items[1].ID)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextCursor)

	cursor, err := pagination.DecodeCursor(page1.NextCursor)
	require.NoError(t, err)
	page2, err := reg.ListWithCursor(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Equal(t, "doc_000003", page2.Items[0].ID)
	assert.Equal(t, "doc_000002", page2.Items[1].ID)
	assert.True(t, page2.HasMore)

	cursor, err = pagination.DecodeCursor(page2.NextCursor)
	require.NoError(t, err)
	page3, err := reg.ListWithCursor(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.Equal(t, "doc_000001", page3.Items[0].ID)
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.NextCursor)
}

func TestMemoryRegistry_CountAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	for i := 0; i < 3; i++ {
		id, err := reg.NextID(ctx)
		require.NoError(t, err)
		require.NoError(t, reg.Create(ctx, &domain.Document{ID: id, Filename: "f.txt"}))
	}

	n, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, reg.DeleteAll(ctx))
	n, err = reg.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The sequence restarts after a full clear.
	id, err := reg.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "doc_000001", id)
}
