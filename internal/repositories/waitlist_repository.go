package repositories

import (
	"context"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WaitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// UpsertWaitlistEntry keeps the original entry, and its queue position, on repeat.
func (r *WaitlistRepository) UpsertWaitlistEntry(ctx context.Context, entry *models.WaitlistEntry) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "request_id"}, {Name: "captain_id"}},
			DoNothing: true,
		}).
		Create(entry).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to enqueue request")
	}
	return nil
}

func (r *WaitlistRepository) DeleteWaitlistEntry(ctx context.Context, requestID uint) error {
	result := r.db.WithContext(ctx).Where("request_id = ?", requestID).Delete(&models.WaitlistEntry{})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to dequeue request")
	}
	return nil
}

func (r *WaitlistRepository) ListWaitlistedRequests(ctx context.Context, matchType string, now time.Time, limit int) ([]models.ScrimRequest, error) {
	var reqs []models.ScrimRequest
	err := r.db.WithContext(ctx).
		Model(&models.ScrimRequest{}).
		Select("scrim_requests.*").
		Joins("JOIN scrim_waitlist ON scrim_waitlist.request_id = scrim_requests.id").
		Where("scrim_requests.status = ? AND scrim_requests.match_type = ? AND scrim_requests.expires_at > ?",
			models.RequestStatusPending, matchType, now).
		Order("scrim_waitlist.created_at ASC, scrim_waitlist.id ASC").
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list waitlisted requests")
	}
	return reqs, nil
}

// DeleteStaleWaitlistEntries removes entries whose request is no longer pending.
func (r *WaitlistRepository) DeleteStaleWaitlistEntries(ctx context.Context) (int64, error) {
	pending := r.db.Model(&models.ScrimRequest{}).
		Select("id").
		Where("status = ?", models.RequestStatusPending)

	result := r.db.WithContext(ctx).
		Where("request_id NOT IN (?)", pending).
		Delete(&models.WaitlistEntry{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to purge waitlist")
	}
	return result.RowsAffected, nil
}
