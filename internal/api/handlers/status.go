package handlers

import (
	"context"
	"net/http"

	"github.com/corpusai/corpusd/internal/api"
	"github.com/corpusai/corpusd/internal/service"
)

type StatusService interface {
	Status(ctx context.Context) (*service.StatusOutput, error)
}

type StatusHandler struct {
	svc              StatusService
	apiKeyConfigured bool
	version          string
	models           []string
}

func NewStatusHandler(svc StatusService, apiKeyConfigured bool, version string, models []string) *StatusHandler {
	return &StatusHandler{
		svc:              svc,
		apiKeyConfigured: apiKeyConfigured,
		version:          version,
		models:           models,
	}
}

type StatusResponse struct {
	Status           string `json:"status"`
	DocumentCount    int    `json:"document_count"`
	ChunkCount       int    `json:"chunk_count"`
	AgentReady       bool   `json:"agent_ready"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Degraded         bool   `json:"degraded"`
	Model            string `json:"model"`
	Version          string `json:"version"`
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Status(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := "waiting_for_documents"
	if out.Ready {
		status = "ready"
	}

	api.Success(w, http.StatusOK, StatusResponse{
		Status:           status,
		DocumentCount:    out.DocumentCount,
		ChunkCount:       out.ChunkCount,
		AgentReady:       out.AgentInitialized,
		APIKeyConfigured: h.apiKeyConfigured,
		Degraded:         out.Degraded,
		Model:            out.Model,
		Version:          h.version,
	})
}

type ModelCatalogResponse struct {
	Models []string `json:"models"`
}

func (h *StatusHandler) Models(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, ModelCatalogResponse{Models: h.models})
}
