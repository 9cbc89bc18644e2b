package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

type matchResponse struct {
	ID               uint       `json:"id"`
	Status           string     `json:"status"`
	MatchType        string     `json:"match_type"`
	TimeSlot         string     `json:"time_slot"`
	Timezone         string     `json:"timezone"`
	Captain1ID       int64      `json:"captain1_id"`
	Captain2ID       int64      `json:"captain2_id"`
	Team1ID          *int64     `json:"team1_id,omitempty"`
	Team2ID          *int64     `json:"team2_id,omitempty"`
	Captain1Approved bool       `json:"captain1_approved"`
	Captain2Approved bool       `json:"captain2_approved"`
	CreatedAt        time.Time  `json:"created_at"`
	MatchedAt        *time.Time `json:"matched_at,omitempty"`
	NextStatus       string     `json:"next_status,omitempty"`
}

type transitionRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func newMatchResponse(m *models.ScrimMatch) matchResponse {
	next, _ := models.NextMapBanStatus(m.Status)
	return matchResponse{
		ID:               m.ID,
		Status:           m.Status,
		MatchType:        m.MatchType,
		TimeSlot:         m.TimeSlot,
		Timezone:         m.Timezone,
		Captain1ID:       m.Captain1ID,
		Captain2ID:       m.Captain2ID,
		Team1ID:          m.Team1ID,
		Team2ID:          m.Team2ID,
		Captain1Approved: m.Captain1Approved,
		Captain2Approved: m.Captain2Approved,
		CreatedAt:        m.CreatedAt,
		MatchedAt:        m.MatchedAt,
		NextStatus:       next,
	}
}

func matchIDParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "invalid match id")
		return
	}

	match, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newMatchResponse(match))
}

func (h *Handler) TransitionMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := matchIDParam(r)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "invalid match id")
		return
	}

	var body transitionRequest
	if err := readJSON(w, r, &body); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	match, err := h.matches.AdvanceMatch(r.Context(), id, body.From, body.To)
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}

	logger.Info("Match advanced by map-ban service",
		"match_id", id,
		"from", body.From,
		"to", body.To,
		"service", ServiceFromContext(r.Context()),
	)
	writeJSON(w, http.StatusOK, newMatchResponse(match))
}
