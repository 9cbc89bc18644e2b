// Package api exposes matches to the map-ban service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mroshb/scrim_bot/internal/models"
)

// MatchService is the part of the scrim service the map-ban flow may touch.
type MatchService interface {
	GetMatch(ctx context.Context, matchID uint) (*models.ScrimMatch, error)
	AdvanceMatch(ctx context.Context, matchID uint, from, to string) (*models.ScrimMatch, error)
}

type Handler struct {
	matches MatchService
}

func NewRouter(matches MatchService, jwtSecret string) *chi.Mux {
	h := &Handler{matches: matches}

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	router.Use(chiMiddleware.Timeout(10 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"})
	})

	router.Route("/api/v1/matches", func(r chi.Router) {
		r.Use(Authenticate(jwtSecret))

		r.Get("/{id}", h.GetMatch)
		r.Post("/{id}/transition", h.TransitionMatch)
	})

	return router
}
