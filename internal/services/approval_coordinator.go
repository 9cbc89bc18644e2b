package services

import (
	"context"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

// ApprovalCoordinator drives a match from pending_approval to approved,
// declined or expired, and relays map-ban writes after that.
type ApprovalCoordinator struct {
	requests RequestStore
	matches  MatchStore
	guard    *AvoidListGuard
	matcher  *MatchingEngine
	now      Clock
}

func NewApprovalCoordinator(requests RequestStore, matches MatchStore, guard *AvoidListGuard, matcher *MatchingEngine, now Clock) *ApprovalCoordinator {
	return &ApprovalCoordinator{
		requests: requests,
		matches:  matches,
		guard:    guard,
		matcher:  matcher,
		now:      now,
	}
}

// Respond records one captain's answer.
func (a *ApprovalCoordinator) Respond(ctx context.Context, matchID uint, captainID int64, approve bool) (*Result, error) {
	match, err := a.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasCaptain(captainID) {
		return nil, errors.New(errors.ErrCodeForbidden, "captain is not part of this match")
	}
	if match.Status != models.MatchStatusPendingApproval {
		return nil, errors.New(errors.ErrCodeConflict, "match is no longer awaiting approval")
	}

	if approve {
		return a.approve(ctx, match, captainID)
	}
	return a.decline(ctx, match, captainID)
}

func (a *ApprovalCoordinator) approve(ctx context.Context, match *models.ScrimMatch, captainID int64) (*Result, error) {
	now := a.now()
	ok, err := a.matches.SetApproval(ctx, match.ID, captainID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeConflict, "match is no longer awaiting approval")
	}

	// Both captains may approve concurrently; whoever sees the second flag
	// flips the status, the other reads it back below.
	if _, err := a.matches.ApproveMatch(ctx, match.ID, now); err != nil {
		return nil, err
	}

	updated, err := a.matches.GetMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	result := &Result{Match: updated, OpponentCaptainID: updated.OpponentOf(captainID)}

	if updated.Status != models.MatchStatusApproved {
		result.Kind = ResultAwaitingOpponent
		return result, nil
	}

	for _, requestID := range []uint{updated.Request1ID, updated.Request2ID} {
		if _, err := a.requests.ClaimRequest(ctx, requestID, models.RequestStatusMatched, models.RequestStatusInProgress, now); err != nil {
			return nil, err
		}
	}

	logger.Info("Scrim match approved", "match_id", updated.ID)
	result.Kind = ResultApproved
	return result, nil
}

func (a *ApprovalCoordinator) decline(ctx context.Context, match *models.ScrimMatch, captainID int64) (*Result, error) {
	// Block before the decline commits: a failure here leaves the match
	// pending, and the rematch below cannot pick the same pair.
	if err := a.guard.Block(ctx, match.Captain1ID, match.Captain2ID, a.guard.Cooldown()); err != nil {
		return nil, err
	}

	ok, err := a.matches.DeclineMatch(ctx, match.ID, &captainID, a.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeConflict, "match is no longer awaiting approval")
	}

	logger.Info("Scrim match declined", "match_id", match.ID, "declined_by", captainID)
	a.reopen(ctx, match, match.Captain1ID, match.Captain2ID)

	updated, err := a.matches.GetMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: ResultDeclined, Match: updated, OpponentCaptainID: updated.OpponentOf(captainID)}, nil
}

// Expire times out a match nobody fully approved. No avoid pair is created,
// so the two captains may still meet again through a later submission.
func (a *ApprovalCoordinator) Expire(ctx context.Context, match *models.ScrimMatch) (bool, error) {
	ok, err := a.matches.TransitionMatch(ctx, match.ID, models.MatchStatusPendingApproval, models.MatchStatusExpired, a.now())
	if err != nil || !ok {
		return false, err
	}

	logger.Info("Scrim match expired without approval", "match_id", match.ID)
	a.reopen(ctx, match, match.Captain1ID, match.Captain2ID)
	return true, nil
}

// Withdraw ends a pending match because one captain cancelled their request.
// Only the opponent's request goes back to the pool.
func (a *ApprovalCoordinator) Withdraw(ctx context.Context, match *models.ScrimMatch, cancellingCaptainID int64) (bool, error) {
	ok, err := a.matches.DeclineMatch(ctx, match.ID, nil, a.now())
	if err != nil || !ok {
		return false, err
	}

	logger.Info("Scrim match withdrawn", "match_id", match.ID, "captain_id", cancellingCaptainID)
	a.reopen(ctx, match, match.OpponentOf(cancellingCaptainID))
	return true, nil
}

// Advance applies a map-ban collaborator write. Only the source state is checked.
func (a *ApprovalCoordinator) Advance(ctx context.Context, matchID uint, from, to string) (*models.ScrimMatch, error) {
	if !models.IsMapBanStatus(from) || !models.IsMapBanStatus(to) || from == to {
		return nil, errors.New(errors.ErrCodeValidation, "unsupported match status transition")
	}

	ok, err := a.matches.TransitionMatch(ctx, matchID, from, to, a.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := a.matches.GetMatch(ctx, matchID); err != nil {
			return nil, err
		}
		return nil, errors.New(errors.ErrCodeConflict, "match is not in the expected status")
	}

	return a.matches.GetMatch(ctx, matchID)
}

// Recover reopens a matched request whose match already ended. It reports
// whether the request changed state.
func (a *ApprovalCoordinator) Recover(ctx context.Context, req *models.ScrimRequest) (bool, error) {
	status, err := a.reopenRequest(ctx, req, a.now())
	if err != nil || status == "" {
		return false, err
	}

	logger.Warn("Recovered orphaned request", "request_id", req.ID, "status", status)
	if status == models.RequestStatusPending {
		a.matcher.Rematch(ctx, req.ID)
	}
	return true, nil
}

// reopen puts the match's requests back to pending and tries to pair them
// again, never with the captain they were just matched against. Failures
// are left for the reaper's orphan sweep.
func (a *ApprovalCoordinator) reopen(ctx context.Context, match *models.ScrimMatch, captainIDs ...int64) {
	now := a.now()
	var reopened []int64
	for _, captainID := range captainIDs {
		id := match.RequestOf(captainID)
		req, err := a.requests.GetRequest(ctx, id)
		if err != nil {
			logger.Error("Failed to load request to reopen", "request_id", id, "error", err)
			continue
		}

		status, err := a.reopenRequest(ctx, req, now)
		if err != nil {
			logger.Error("Failed to reopen request", "request_id", id, "error", err)
			continue
		}
		switch status {
		case models.RequestStatusPending:
			reopened = append(reopened, captainID)
		case models.RequestStatusExpired:
			logger.Info("Request expired while matched", "request_id", id)
		}
	}

	for _, captainID := range reopened {
		a.matcher.Rematch(ctx, match.RequestOf(captainID), match.OpponentOf(captainID))
	}
}

// reopenRequest moves req matched->pending, or matched->expired once its TTL
// has passed. It returns the new status, or "" when req was not matched.
func (a *ApprovalCoordinator) reopenRequest(ctx context.Context, req *models.ScrimRequest, now time.Time) (string, error) {
	next := models.RequestStatusPending
	if !req.ExpiresAt.After(now) {
		next = models.RequestStatusExpired
	}

	ok, err := a.requests.ClaimRequest(ctx, req.ID, models.RequestStatusMatched, next, now)
	if err != nil || !ok {
		return "", err
	}
	return next, nil
}
