package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/corpusai/corpusd/internal/api"
	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	AddDocument(ctx context.Context, input service.AddDocumentInput) (*domain.Document, error)
	ListDocuments(ctx context.Context, input service.ListDocumentsInput) (*service.DocumentPageResult, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DocumentDownloadURL(ctx context.Context, id string) (string, error)
	ClearAll(ctx context.Context) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type UploadDocumentRequest struct {
	Filename string         `json:"filename"`
	Content  string         `json:"content"`
	FileType string         `json:"file_type"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type DocumentResponse struct {
	ID             string         `json:"id"`
	Filename       string         `json:"filename"`
	FileType       string         `json:"file_type,omitempty"`
	FileSize       int64          `json:"file_size"`
	UploadTime     string         `json:"upload_time"`
	ChunkCount     int            `json:"chunk_count"`
	ContentPreview string         `json:"content_preview"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:             d.ID,
		Filename:       d.Filename,
		FileType:       d.FileType,
		FileSize:       d.FileSize,
		UploadTime:     d.UploadTime.Format("2006-01-02T15:04:05Z"),
		ChunkCount:     d.ChunkCount,
		ContentPreview: d.ContentPreview,
		Tags:           d.Tags,
		Metadata:       d.Metadata,
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	input := service.AddDocumentInput{
		Content:  req.Content,
		Filename: req.Filename,
		FileType: req.FileType,
		FileSize: int64(len(req.Content)),
		Tags:     req.Tags,
		Metadata: req.Metadata,
	}

	doc, err := h.svc.AddDocument(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// Download returns a presigned URL for the archived raw upload.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.DocumentDownloadURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "url": url})
}

func (h *DocumentHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.ListDocuments(r.Context(), service.ListDocumentsInput{
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(output.Items))
	for i, d := range output.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  output.NextCursor,
		HasMore: output.HasMore,
	})
}
