package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/corpusai/corpusd/internal/api"
)

type AgentService interface {
	InitializeAgent(ctx context.Context, model string, temperature float32) error
	ClearAgentMemory()
	AgentInitialized() bool
}

type AgentHandler struct {
	svc                AgentService
	defaultTemperature float32
}

func NewAgentHandler(svc AgentService, defaultTemperature float32) *AgentHandler {
	return &AgentHandler{svc: svc, defaultTemperature: defaultTemperature}
}

type InitializeAgentRequest struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
}

type AgentStateResponse struct {
	AgentReady bool `json:"agent_ready"`
}

func (h *AgentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	temperature := h.defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	if err := h.svc.InitializeAgent(r.Context(), req.Model, temperature); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AgentStateResponse{AgentReady: h.svc.AgentInitialized()})
}

func (h *AgentHandler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearAgentMemory()
	api.Success(w, http.StatusOK, AgentStateResponse{AgentReady: h.svc.AgentInitialized()})
}
