package server

import (
	"net/http"

	"github.com/corpusai/corpusd/internal/api"
	"github.com/corpusai/corpusd/internal/api/handlers"
	"github.com/corpusai/corpusd/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	QueryHandler    *handlers.QueryHandler
	DocumentHandler *handlers.DocumentHandler
	SettingsHandler *handlers.SettingsHandler
	AgentHandler    *handlers.AgentHandler
	StatusHandler   *handlers.StatusHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", cfg.StatusHandler.Status)
	r.Get("/models", cfg.StatusHandler.Models)

	r.Post("/query", cfg.QueryHandler.Handle)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Get("/{id}/download", cfg.DocumentHandler.Download)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Delete("/", cfg.DocumentHandler.Clear)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/instructions", cfg.SettingsHandler.Get)
		r.Put("/instructions", cfg.SettingsHandler.Update)
	})

	r.Route("/agent", func(r chi.Router) {
		r.Post("/initialize", cfg.AgentHandler.Initialize)
		r.Post("/clear", cfg.AgentHandler.ClearMemory)
	})

	return r
}
