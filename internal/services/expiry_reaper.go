package services

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

const (
	DefaultReaperInterval = time.Minute
	reaperBatchSize       = 200

	// orphanGracePeriod keeps the sweep off requests a decline or expiry is
	// still reopening.
	orphanGracePeriod = time.Minute
)

// SweepStats counts what one sweep changed.
type SweepStats struct {
	ExpiredRequests  int64
	ExpiredMatches   int64
	PurgedAvoidPairs int64
	PurgedWaitlisted int64
	// RecoveredRequests counts matched requests reopened or expired after
	// their match ended without doing so.
	RecoveredRequests int64
}

// ExpiryReaper retires stale requests, matches, avoid pairs and waitlist
// entries, and recovers requests stranded in matched. It keeps no state
// between sweeps.
type ExpiryReaper struct {
	requests  RequestStore
	matches   MatchStore
	approvals *ApprovalCoordinator
	guard     *AvoidListGuard
	waitlist  *WaitlistManager
	now       Clock
	interval  time.Duration
}

func NewExpiryReaper(
	requests RequestStore,
	matches MatchStore,
	approvals *ApprovalCoordinator,
	guard *AvoidListGuard,
	waitlist *WaitlistManager,
	now Clock,
	interval time.Duration,
) *ExpiryReaper {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &ExpiryReaper{
		requests:  requests,
		matches:   matches,
		approvals: approvals,
		guard:     guard,
		waitlist:  waitlist,
		now:       now,
		interval:  interval,
	}
}

// Run sweeps on every tick until ctx is done.
func (r *ExpiryReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Info("Expiry reaper started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("Expiry reaper stopped")
			return
		case <-ticker.C:
			stats, err := r.Sweep(ctx)
			if err != nil {
				logger.Error("Expiry sweep failed", "error", err)
			}
			if stats.ExpiredRequests+stats.ExpiredMatches+stats.PurgedAvoidPairs+stats.PurgedWaitlisted+stats.RecoveredRequests > 0 {
				logger.Info("Expiry sweep finished",
					"expired_requests", stats.ExpiredRequests,
					"expired_matches", stats.ExpiredMatches,
					"purged_avoid_pairs", stats.PurgedAvoidPairs,
					"purged_waitlist", stats.PurgedWaitlisted,
					"recovered_requests", stats.RecoveredRequests,
				)
			}
		}
	}
}

// Sweep runs every category once. A failing category does not stop the
// others; the first error is returned after all of them finish.
func (r *ExpiryReaper) Sweep(ctx context.Context) (SweepStats, error) {
	var (
		g                                               errgroup.Group
		requests, matches, pairs, waitlisted, recovered atomic.Int64
	)

	g.Go(func() error {
		n, err := r.expireRequests(ctx)
		requests.Store(n)
		return err
	})
	g.Go(func() error {
		n, err := r.expireMatches(ctx)
		matches.Store(n)
		return err
	})
	g.Go(func() error {
		n, err := r.guard.PurgeExpired(ctx)
		pairs.Store(n)
		return err
	})
	g.Go(func() error {
		n, err := r.waitlist.PurgeStale(ctx)
		waitlisted.Store(n)
		return err
	})

	g.Go(func() error {
		n, err := r.recoverOrphans(ctx)
		recovered.Store(n)
		return err
	})

	err := g.Wait()
	return SweepStats{
		ExpiredRequests:   requests.Load(),
		ExpiredMatches:    matches.Load(),
		PurgedAvoidPairs:  pairs.Load(),
		PurgedWaitlisted:  waitlisted.Load(),
		RecoveredRequests: recovered.Load(),
	}, err
}

func (r *ExpiryReaper) expireRequests(ctx context.Context) (int64, error) {
	now := r.now()
	expired, err := r.requests.ListExpiredRequests(ctx, now, reaperBatchSize)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, req := range expired {
		ok, err := r.requests.ClaimRequest(ctx, req.ID, models.RequestStatusPending, models.RequestStatusExpired, now)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		n++
		if err := r.waitlist.Dequeue(ctx, req.ID); err != nil {
			logger.Warn("Failed to dequeue expired request", "request_id", req.ID, "error", err)
		}
	}
	return n, nil
}

func (r *ExpiryReaper) expireMatches(ctx context.Context) (int64, error) {
	expired, err := r.matches.ListExpiredMatches(ctx, r.now(), reaperBatchSize)
	if err != nil {
		return 0, err
	}

	var n int64
	for i := range expired {
		ok, err := r.approvals.Expire(ctx, &expired[i])
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *ExpiryReaper) recoverOrphans(ctx context.Context) (int64, error) {
	orphans, err := r.requests.ListOrphanedRequests(ctx, r.now().Add(-orphanGracePeriod), reaperBatchSize)
	if err != nil {
		return 0, err
	}

	var n int64
	for i := range orphans {
		ok, err := r.approvals.Recover(ctx, &orphans[i])
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}
