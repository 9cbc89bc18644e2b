package services

import (
	"context"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
)

// Clock returns the current time. Services set every audit timestamp from it.
type Clock func() time.Time

// UTCNow is the production clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// RequestStore persists scrim requests. Status changes are compare-and-set:
// they report false when the row was not in the expected state.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *models.ScrimRequest) error
	GetRequest(ctx context.Context, id uint) (*models.ScrimRequest, error)
	GetActiveRequestByCaptain(ctx context.Context, captainID int64) (*models.ScrimRequest, error)
	FindCompatible(ctx context.Context, req *models.ScrimRequest, excludedCaptains []int64, now time.Time, limit int) ([]models.ScrimRequest, error)
	ClaimRequest(ctx context.Context, id uint, expected, next string, now time.Time) (bool, error)
	ListExpiredRequests(ctx context.Context, now time.Time, limit int) ([]models.ScrimRequest, error)
	// ListOrphanedRequests returns matched requests last updated before the
	// cutoff that no active match references.
	ListOrphanedRequests(ctx context.Context, before time.Time, limit int) ([]models.ScrimRequest, error)
}

// MatchStore persists scrim matches. ClaimPair is the only multi-row write:
// it moves both source requests pending->matched and inserts the match, or
// does nothing and returns a CLAIM_RACE error.
type MatchStore interface {
	ClaimPair(ctx context.Context, match *models.ScrimMatch) error
	GetMatch(ctx context.Context, id uint) (*models.ScrimMatch, error)
	GetActiveMatchByRequest(ctx context.Context, requestID uint) (*models.ScrimMatch, error)
	SetApproval(ctx context.Context, matchID uint, captainID int64, now time.Time) (bool, error)
	ApproveMatch(ctx context.Context, matchID uint, now time.Time) (bool, error)
	DeclineMatch(ctx context.Context, matchID uint, declinedBy *int64, now time.Time) (bool, error)
	TransitionMatch(ctx context.Context, matchID uint, from, to string, now time.Time) (bool, error)
	ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.ScrimMatch, error)
	ListMatchesSince(ctx context.Context, since time.Time, limit int) ([]models.ScrimMatch, error)
}

type AvoidStore interface {
	UpsertAvoidPair(ctx context.Context, pair *models.AvoidPair) error
	IsPairBlocked(ctx context.Context, low, high int64, now time.Time) (bool, error)
	BlockedCaptains(ctx context.Context, captainID int64, now time.Time) ([]int64, error)
	DeleteExpiredAvoidPairs(ctx context.Context, now time.Time) (int64, error)
}

type WaitlistStore interface {
	UpsertWaitlistEntry(ctx context.Context, entry *models.WaitlistEntry) error
	DeleteWaitlistEntry(ctx context.Context, requestID uint) error
	// ListWaitlistedRequests returns pending requests of the given match type
	// that sit on the waitlist, oldest entry first.
	ListWaitlistedRequests(ctx context.Context, matchType string, now time.Time, limit int) ([]models.ScrimRequest, error)
	DeleteStaleWaitlistEntries(ctx context.Context) (int64, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	RequestStore
	MatchStore
	AvoidStore
	WaitlistStore
}

// Notifier tells a captain that an opponent was found. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, captainID int64, matchID uint, opponentCaptainID int64) error
}
