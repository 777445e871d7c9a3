package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corpusai/corpusd/internal/api"
	"github.com/corpusai/corpusd/internal/domain"
)

type SettingsStore interface {
	Get() domain.InstructionSettings
	Update(ctx context.Context, next domain.InstructionSettings) error
}

type SettingsHandler struct {
	store SettingsStore
}

func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.store.Get())
}

// Update replaces the settings wholesale. Clients send the full
// settings object, not a patch.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.InstructionSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Update(r.Context(), req); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, h.store.Get())
}
