package services

import (
	"context"
	"slices"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

const (
	DefaultMaxClaimRetries = 3
	DefaultScanLimit       = 50
	DefaultApprovalTTL     = 10 * time.Minute
)

type MatchingEngineOptions struct {
	ApprovalTTL     time.Duration
	MaxClaimRetries int
	ScanLimit       int
}

// MatchingEngine pairs a pending request with the oldest compatible one.
type MatchingEngine struct {
	requests RequestStore
	matches  MatchStore
	guard    *AvoidListGuard
	waitlist *WaitlistManager
	now      Clock

	approvalTTL time.Duration
	maxRetries  int
	scanLimit   int
}

func NewMatchingEngine(
	requests RequestStore,
	matches MatchStore,
	guard *AvoidListGuard,
	waitlist *WaitlistManager,
	now Clock,
	opts MatchingEngineOptions,
) *MatchingEngine {
	if opts.ApprovalTTL <= 0 {
		opts.ApprovalTTL = DefaultApprovalTTL
	}
	if opts.MaxClaimRetries <= 0 {
		opts.MaxClaimRetries = DefaultMaxClaimRetries
	}
	if opts.ScanLimit <= 0 {
		opts.ScanLimit = DefaultScanLimit
	}
	return &MatchingEngine{
		requests:    requests,
		matches:     matches,
		guard:       guard,
		waitlist:    waitlist,
		now:         now,
		approvalTTL: opts.ApprovalTTL,
		maxRetries:  opts.MaxClaimRetries,
		scanLimit:   opts.ScanLimit,
	}
}

// Match tries to pair req right away. It returns the match req ended up in,
// or nil when req was waitlisted instead. Lost claim races are retried with
// the contested candidate excluded and never surface as errors.
func (e *MatchingEngine) Match(ctx context.Context, req *models.ScrimRequest) (*models.ScrimMatch, error) {
	return e.match(ctx, req, nil)
}

func (e *MatchingEngine) match(ctx context.Context, req *models.ScrimRequest, skipCaptains []int64) (*models.ScrimMatch, error) {
	excluded, err := e.guard.BlockedCaptainsFor(ctx, req.CaptainID)
	if err != nil {
		return nil, err
	}
	excluded = append(excluded, skipCaptains...)

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		candidate, err := e.nextCandidate(ctx, req, excluded)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			break
		}

		match, err := e.pair(ctx, req, candidate)
		if err == nil {
			return match, nil
		}
		if !errors.Is(err, errors.ErrCodeClaimRace) {
			return nil, err
		}

		logger.Debug("Lost claim race", "request_id", req.ID, "candidate_id", candidate.ID, "attempt", attempt+1)
		excluded = append(excluded, candidate.CaptainID)

		// The race may have been lost because someone claimed req itself.
		current, err := e.requests.GetRequest(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != models.RequestStatusPending {
			*req = *current
			if current.Status == models.RequestStatusMatched {
				return e.matches.GetActiveMatchByRequest(ctx, req.ID)
			}
			return nil, nil
		}
	}

	if err := e.waitlist.Enqueue(ctx, req.ID, req.CaptainID); err != nil {
		return nil, err
	}

	// A concurrent pairing may have claimed req between the last scan and
	// the enqueue; keep the waitlist clean in that case.
	current, err := e.requests.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.RequestStatusPending {
		e.waitlist.dequeueQuietly(ctx, req.ID)
		*req = *current
		if current.Status == models.RequestStatusMatched {
			return e.matches.GetActiveMatchByRequest(ctx, req.ID)
		}
	}
	return nil, nil
}

// nextCandidate prefers waitlisted requests over the general pool.
func (e *MatchingEngine) nextCandidate(ctx context.Context, req *models.ScrimRequest, excluded []int64) (*models.ScrimRequest, error) {
	waitlisted, err := e.waitlist.OnNewRequestCreated(ctx, req, excluded)
	if err != nil {
		return nil, err
	}
	if len(waitlisted) > 0 {
		return &waitlisted[0], nil
	}

	pool, err := e.requests.FindCompatible(ctx, req, excluded, e.now(), e.scanLimit)
	if err != nil {
		return nil, err
	}
	for i := range pool {
		if !slices.Contains(excluded, pool[i].CaptainID) {
			return &pool[i], nil
		}
	}
	return nil, nil
}

// pair claims both requests and creates the match in one atomic step.
func (e *MatchingEngine) pair(ctx context.Context, req, candidate *models.ScrimRequest) (*models.ScrimMatch, error) {
	now := e.now()
	match := &models.ScrimMatch{
		Request1ID: candidate.ID,
		Request2ID: req.ID,
		Captain1ID: candidate.CaptainID,
		Captain2ID: req.CaptainID,
		Team1ID:    candidate.TeamID,
		Team2ID:    req.TeamID,
		MatchType:  candidate.MatchType,
		TimeSlot:   candidate.TimeSlot,
		Timezone:   candidate.Timezone,
		Status:     models.MatchStatusPendingApproval,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(e.approvalTTL),
	}

	if err := e.matches.ClaimPair(ctx, match); err != nil {
		return nil, err
	}

	req.Status = models.RequestStatusMatched
	req.UpdatedAt = now

	logger.Info("Scrim match created",
		"match_id", match.ID,
		"captain1_id", match.Captain1ID,
		"captain2_id", match.Captain2ID,
		"match_type", match.MatchType,
	)

	e.waitlist.dequeueQuietly(ctx, match.Request1ID, match.Request2ID)
	e.waitlist.NotifyMatched(ctx, match)
	return match, nil
}

// Rematch loads a request that was just reopened and runs Match on it,
// skipping the given captains for this attempt only. Errors are logged: the
// request stays pending in the pool either way. A request past its TTL is
// left for the reaper.
func (e *MatchingEngine) Rematch(ctx context.Context, requestID uint, skipCaptains ...int64) {
	req, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		logger.Error("Failed to load reopened request", "request_id", requestID, "error", err)
		return
	}
	if req.Status != models.RequestStatusPending || !req.ExpiresAt.After(e.now()) {
		return
	}
	if _, err := e.match(ctx, req, skipCaptains); err != nil {
		logger.Error("Failed to rematch reopened request", "request_id", requestID, "error", err)
	}
}
