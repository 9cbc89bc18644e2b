package services

import (
	"context"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

// DefaultAvoidCooldown keeps two captains apart after a decline.
const DefaultAvoidCooldown = 24 * time.Hour

// AvoidListGuard tracks temporary captain-pair cooldowns.
type AvoidListGuard struct {
	store    AvoidStore
	now      Clock
	cooldown time.Duration
}

func NewAvoidListGuard(store AvoidStore, now Clock, cooldown time.Duration) *AvoidListGuard {
	if cooldown <= 0 {
		cooldown = DefaultAvoidCooldown
	}
	return &AvoidListGuard{store: store, now: now, cooldown: cooldown}
}

// Cooldown is the duration used when a match is declined.
func (g *AvoidListGuard) Cooldown() time.Duration {
	return g.cooldown
}

// IsBlocked is symmetric in its arguments.
func (g *AvoidListGuard) IsBlocked(ctx context.Context, captainA, captainB int64) (bool, error) {
	low, high := models.OrderedPair(captainA, captainB)
	return g.store.IsPairBlocked(ctx, low, high, g.now())
}

// Block inserts the pair or pushes its expiry to now+duration.
func (g *AvoidListGuard) Block(ctx context.Context, captainA, captainB int64, duration time.Duration) error {
	now := g.now()
	low, high := models.OrderedPair(captainA, captainB)
	pair := &models.AvoidPair{
		CaptainLow:  low,
		CaptainHigh: high,
		ExpiresAt:   now.Add(duration),
		CreatedAt:   now,
	}
	if err := g.store.UpsertAvoidPair(ctx, pair); err != nil {
		return err
	}

	logger.Info("Captains blocked from pairing", "captain_a", captainA, "captain_b", captainB, "expires_at", pair.ExpiresAt)
	return nil
}

// BlockedCaptainsFor lists captains that must not be offered to captainID right now.
func (g *AvoidListGuard) BlockedCaptainsFor(ctx context.Context, captainID int64) ([]int64, error) {
	return g.store.BlockedCaptains(ctx, captainID, g.now())
}

// PurgeExpired deletes pairs whose cooldown has elapsed.
func (g *AvoidListGuard) PurgeExpired(ctx context.Context) (int64, error) {
	return g.store.DeleteExpiredAvoidPairs(ctx, g.now())
}
