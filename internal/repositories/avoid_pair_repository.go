package repositories

import (
	"context"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AvoidPairRepository struct {
	db *gorm.DB
}

func NewAvoidPairRepository(db *gorm.DB) *AvoidPairRepository {
	return &AvoidPairRepository{db: db}
}

// UpsertAvoidPair inserts the pair or refreshes its expiry.
func (r *AvoidPairRepository) UpsertAvoidPair(ctx context.Context, pair *models.AvoidPair) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "captain_low"}, {Name: "captain_high"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
		}).
		Create(pair).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to block captain pair")
	}
	return nil
}

func (r *AvoidPairRepository) IsPairBlocked(ctx context.Context, low, high int64, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AvoidPair{}).
		Where("captain_low = ? AND captain_high = ? AND expires_at > ?", low, high, now).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodePersistence, "failed to check captain pair")
	}
	return count > 0, nil
}

func (r *AvoidPairRepository) BlockedCaptains(ctx context.Context, captainID int64, now time.Time) ([]int64, error) {
	var pairs []models.AvoidPair
	err := r.db.WithContext(ctx).
		Where("(captain_low = ? OR captain_high = ?) AND expires_at > ?", captainID, captainID, now).
		Find(&pairs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list blocked captains")
	}

	captains := make([]int64, 0, len(pairs))
	for _, pair := range pairs {
		if pair.CaptainLow == captainID {
			captains = append(captains, pair.CaptainHigh)
		} else {
			captains = append(captains, pair.CaptainLow)
		}
	}
	return captains, nil
}

func (r *AvoidPairRepository) DeleteExpiredAvoidPairs(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.AvoidPair{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to purge avoid pairs")
	}
	return result.RowsAffected, nil
}
