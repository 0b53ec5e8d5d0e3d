package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/grovehq/grove/internal/config"
	"github.com/grovehq/grove/internal/httpx"
	"github.com/grovehq/grove/internal/matching"
)

// NewRouter assembles the HTTP surface: health probe plus the matches
// endpoints.
func NewRouter(engine *matching.Engine, matchesHandler *MatchesHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		h := engine.HealthCheck(req.Context())
		status := http.StatusOK
		if !h.Healthy {
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, map[string]any{
			"healthy":           h.Healthy,
			"vectorIndexReady":  h.VectorIndexReady,
			"databaseConnected": h.DatabaseConnected,
		})
	})

	r.Mount("/matches", matchesHandler.Routes())
	return r
}

// Start boots the HTTP server and blocks until it exits.
func Start(cfg *config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{Addr: addr, Handler: handler}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server on %s: %w", addr, err)
	}
	return nil
}
