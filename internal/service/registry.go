package service

import (
	"context"
	"sort"
	"sync"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/pagination"
)

// DocumentPageResult is one page of the document registry listing.
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// RegistryInterface tracks documents independently of the chunk index.
// Deleting from the registry does not remove vectors from the index,
// which is a documented limitation.
type RegistryInterface interface {
	NextID(ctx context.Context) (string, error)
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// MemoryRegistry is the in-process registry used when no database is
// configured.
type MemoryRegistry struct {
	mu   sync.RWMutex
	seq  int64
	docs map[string]*domain.Document
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{docs: make(map[string]*domain.Document)}
}

func (r *MemoryRegistry) NextID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return domain.FormatDocumentID(r.seq), nil
}

func (r *MemoryRegistry) Create(ctx context.Context, d *domain.Document) error {
	if err := domain.ValidateDocument(d); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[d.ID]; exists {
		return domain.ErrDocumentAlreadyExists
	}
	stored := *d
	r.docs[d.ID] = &stored
	return nil
}

func (r *MemoryRegistry) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	out := *doc
	return &out, nil
}

func (r *MemoryRegistry) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	all := make([]*domain.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out := *doc
		all = append(all, &out)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].UploadTime.Equal(all[j].UploadTime) {
			return all[i].UploadTime.After(all[j].UploadTime)
		}
		return all[i].ID > all[j].ID
	})

	start := 0
	if cursor != nil {
		for i, doc := range all {
			if doc.ID == cursor.LastID {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	hasMore := end < len(all)
	if end > len(all) {
		end = len(all)
	}
	items := all[start:end]

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UploadTime)
	}

	return &DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryRegistry) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]*domain.Document)
	r.seq = 0
	return nil
}

func (r *MemoryRegistry) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}
