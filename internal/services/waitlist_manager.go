package services

import (
	"context"
	"slices"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

// WaitlistManager queues requests that found no opponent and gives them
// priority when a compatible request shows up.
type WaitlistManager struct {
	store     WaitlistStore
	notifier  Notifier
	now       Clock
	scanLimit int
}

func NewWaitlistManager(store WaitlistStore, notifier Notifier, now Clock, scanLimit int) *WaitlistManager {
	return &WaitlistManager{
		store:     store,
		notifier:  notifier,
		now:       now,
		scanLimit: scanLimit,
	}
}

// Enqueue is idempotent per (request, captain).
func (w *WaitlistManager) Enqueue(ctx context.Context, requestID uint, captainID int64) error {
	entry := &models.WaitlistEntry{
		RequestID: requestID,
		CaptainID: captainID,
		CreatedAt: w.now(),
	}
	if err := w.store.UpsertWaitlistEntry(ctx, entry); err != nil {
		return err
	}

	logger.Debug("Request waitlisted", "request_id", requestID, "captain_id", captainID)
	return nil
}

func (w *WaitlistManager) Dequeue(ctx context.Context, requestID uint) error {
	return w.store.DeleteWaitlistEntry(ctx, requestID)
}

// dequeueQuietly is used on paths where the waitlist row is only a hint.
func (w *WaitlistManager) dequeueQuietly(ctx context.Context, requestIDs ...uint) {
	for _, id := range requestIDs {
		if err := w.store.DeleteWaitlistEntry(ctx, id); err != nil {
			logger.Warn("Failed to dequeue request", "request_id", id, "error", err)
		}
	}
}

// OnNewRequestCreated returns the waitlisted requests the new request may be
// paired with, oldest waitlist entry first. Blocked captains are skipped.
func (w *WaitlistManager) OnNewRequestCreated(ctx context.Context, req *models.ScrimRequest, excludedCaptains []int64) ([]models.ScrimRequest, error) {
	waiting, err := w.store.ListWaitlistedRequests(ctx, req.MatchType, w.now(), w.scanLimit)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.ScrimRequest, 0, len(waiting))
	for i := range waiting {
		c := &waiting[i]
		if c.Status != models.RequestStatusPending || slices.Contains(excludedCaptains, c.CaptainID) {
			continue
		}
		if req.CompatibleWith(c) {
			candidates = append(candidates, *c)
		}
	}
	return candidates, nil
}

// NotifyMatched tells both captains about a new match. Failures are logged
// and never undo the match.
func (w *WaitlistManager) NotifyMatched(ctx context.Context, match *models.ScrimMatch) {
	if w.notifier == nil {
		return
	}
	for _, captainID := range []int64{match.Captain1ID, match.Captain2ID} {
		if err := w.notifier.Notify(ctx, captainID, match.ID, match.OpponentOf(captainID)); err != nil {
			logger.Warn("Failed to notify captain", "captain_id", captainID, "match_id", match.ID, "error", err)
		}
	}
}

// PurgeStale drops entries whose request is no longer pending.
func (w *WaitlistManager) PurgeStale(ctx context.Context) (int64, error) {
	return w.store.DeleteStaleWaitlistEntries(ctx)
}
