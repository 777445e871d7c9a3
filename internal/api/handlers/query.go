package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corpusai/corpusd/internal/api"
	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/service"
)

type QueryService interface {
	Query(ctx context.Context, input service.QueryInput) (*domain.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query          string         `json:"query"`
	Model          string         `json:"model,omitempty"`
	Temperature    *float32       `json:"temperature,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
}

// Handle answers a question. Pipeline failures come back as a 200 with
// success=false in the result payload; only malformed requests get an
// error status.
func (h *QueryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.QueryInput{
		Question:    req.Query,
		Tags:        req.Tags,
		Metadata:    req.MetadataFilter,
		Model:       req.Model,
		Temperature: req.Temperature,
	}

	result, err := h.svc.Query(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuestion) {
			api.Error(w, http.StatusBadRequest, "query is required")
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
