package services

import (
	"context"
	"strings"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/internal/security"
	"github.com/mroshb/scrim_bot/internal/timeslot"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

const (
	DefaultRequestTTL = 2 * time.Hour
	cancelAttempts    = 3
)

type SubmitInput struct {
	CaptainID int64
	TeamID    *int64
	MatchType string
	TimeSlot  string
	Timezone  string
}

// StatusView is a captain's current request and, if paired, its match.
type StatusView struct {
	Request *models.ScrimRequest
	Match   *models.ScrimMatch
}

// ScrimService is the entry point for the bot front end and the map-ban API.
type ScrimService struct {
	store      Store
	engine     *MatchingEngine
	approvals  *ApprovalCoordinator
	waitlist   *WaitlistManager
	now        Clock
	requestTTL time.Duration
}

func NewScrimService(
	store Store,
	engine *MatchingEngine,
	approvals *ApprovalCoordinator,
	waitlist *WaitlistManager,
	now Clock,
	requestTTL time.Duration,
) *ScrimService {
	if requestTTL <= 0 {
		requestTTL = DefaultRequestTTL
	}
	return &ScrimService{
		store:      store,
		engine:     engine,
		approvals:  approvals,
		waitlist:   waitlist,
		now:        now,
		requestTTL: requestTTL,
	}
}

// Submit stores a new request and tries to pair it immediately.
func (s *ScrimService) Submit(ctx context.Context, in SubmitInput) (*Result, error) {
	req, err := s.buildRequest(in)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	logger.Info("Scrim request submitted",
		"request_id", req.ID,
		"captain_id", req.CaptainID,
		"match_type", req.MatchType,
		"time_slot", req.TimeSlot,
		"timezone", req.Timezone,
	)

	match, err := s.engine.Match(ctx, req)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return matchedResult(req, match), nil
	}
	return &Result{Kind: ResultQueued, Request: req}, nil
}

func (s *ScrimService) buildRequest(in SubmitInput) (*models.ScrimRequest, error) {
	if in.CaptainID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "captain is required")
	}

	matchType := strings.ToLower(strings.TrimSpace(in.MatchType))
	if !models.ValidMatchType(matchType) {
		return nil, errors.New(errors.ErrCodeValidation, "match type must be bo1, bo3 or bo5")
	}

	slot := security.SanitizeInput(in.TimeSlot)
	tz := security.SanitizeInput(in.Timezone)
	if !security.ValidateSlotInput(slot) || !security.ValidateSlotInput(tz) {
		return nil, errors.New(errors.ErrCodeValidation, "time slot and timezone are required")
	}

	window, err := timeslot.Parse(slot, tz)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid time slot")
	}

	now := s.now()
	return &models.ScrimRequest{
		CaptainID:    in.CaptainID,
		TeamID:       in.TeamID,
		MatchType:    matchType,
		TimeSlot:     timeslot.NormalizeSlot(slot),
		Timezone:     timeslot.NormalizeTimezone(tz),
		SlotStartUTC: window.StartUTC,
		SlotMinutes:  window.Minutes,
		Status:       models.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(s.requestTTL),
	}, nil
}

// Cancel withdraws the captain's request. Cancelling a terminal request is a
// no-op; cancelling once the opponent has committed is a conflict.
func (s *ScrimService) Cancel(ctx context.Context, requestID uint, captainID int64) (*Result, error) {
	for attempt := 0; attempt < cancelAttempts; attempt++ {
		req, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if req.CaptainID != captainID {
			return nil, errors.New(errors.ErrCodeNotFound, "request not found")
		}
		if req.IsTerminal() {
			return &Result{Kind: ResultCancelled, Request: req}, nil
		}

		var cancelled bool
		switch req.Status {
		case models.RequestStatusPending:
			cancelled, err = s.cancelPending(ctx, req)
		case models.RequestStatusMatched:
			cancelled, err = s.cancelMatched(ctx, req, captainID)
		default:
			return nil, errors.New(errors.ErrCodeConflict, "opponent already committed to this scrim")
		}
		if err != nil {
			return nil, err
		}
		if cancelled {
			logger.Info("Scrim request cancelled", "request_id", req.ID, "captain_id", captainID)
			req.Status = models.RequestStatusCancelled
			return &Result{Kind: ResultCancelled, Request: req}, nil
		}
	}

	return nil, errors.New(errors.ErrCodeConflict, "request is changing state, try again")
}

func (s *ScrimService) cancelPending(ctx context.Context, req *models.ScrimRequest) (bool, error) {
	ok, err := s.store.ClaimRequest(ctx, req.ID, models.RequestStatusPending, models.RequestStatusCancelled, s.now())
	if err != nil || !ok {
		return false, err
	}
	s.waitlist.dequeueQuietly(ctx, req.ID)
	return true, nil
}

// cancelMatched withdraws the pending match first so an approval racing with
// the cancel can never leave an approved match on a cancelled request.
func (s *ScrimService) cancelMatched(ctx context.Context, req *models.ScrimRequest, captainID int64) (bool, error) {
	match, err := s.store.GetActiveMatchByRequest(ctx, req.ID)
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
		// The match was just declined or expired and the request is about
		// to be reopened; cancelling it here wins over the reopen.
	case err != nil:
		return false, err
	case match.Status != models.MatchStatusPendingApproval:
		return false, errors.New(errors.ErrCodeConflict, "opponent already committed to this scrim")
	default:
		withdrawn, err := s.approvals.Withdraw(ctx, match, captainID)
		if err != nil || !withdrawn {
			return false, err
		}
	}

	return s.store.ClaimRequest(ctx, req.ID, models.RequestStatusMatched, models.RequestStatusCancelled, s.now())
}

func (s *ScrimService) RespondToMatch(ctx context.Context, matchID uint, captainID int64, approve bool) (*Result, error) {
	return s.approvals.Respond(ctx, matchID, captainID, approve)
}

func (s *ScrimService) GetMatch(ctx context.Context, matchID uint) (*models.ScrimMatch, error) {
	return s.store.GetMatch(ctx, matchID)
}

// AdvanceMatch is the map-ban collaborator's write path.
func (s *ScrimService) AdvanceMatch(ctx context.Context, matchID uint, from, to string) (*models.ScrimMatch, error) {
	return s.approvals.Advance(ctx, matchID, from, to)
}

func (s *ScrimService) ListMatchesSince(ctx context.Context, since time.Time, limit int) ([]models.ScrimMatch, error) {
	return s.store.ListMatchesSince(ctx, since, limit)
}

// Status returns the captain's active request, if any.
func (s *ScrimService) Status(ctx context.Context, captainID int64) (*StatusView, error) {
	req, err := s.store.GetActiveRequestByCaptain(ctx, captainID)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return &StatusView{}, nil
	}
	if err != nil {
		return nil, err
	}

	view := &StatusView{Request: req}
	if req.Status != models.RequestStatusMatched {
		return view, nil
	}

	match, err := s.store.GetActiveMatchByRequest(ctx, req.ID)
	if err != nil && !errors.Is(err, errors.ErrCodeNotFound) {
		return nil, err
	}
	view.Match = match
	return view, nil
}
