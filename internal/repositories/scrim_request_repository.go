package repositories

import (
	"context"
	stderrors "errors"
	"slices"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"gorm.io/gorm"
)

// maxCompatiblePages bounds how far FindCompatible pages through the pool
// when slot overlap filters out whole pages.
const (
	maxCompatiblePages = 10
	defaultListLimit   = 50
)

var engineActiveStatuses = []string{models.RequestStatusPending, models.RequestStatusMatched}

type ScrimRequestRepository struct {
	db *gorm.DB
}

func NewScrimRequestRepository(db *gorm.DB) *ScrimRequestRepository {
	return &ScrimRequestRepository{db: db}
}

// CreateRequest inserts a pending request unless the captain already has one
// the engine is working on. The partial unique index backs the check.
func (r *ScrimRequestRepository) CreateRequest(ctx context.Context, req *models.ScrimRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ScrimRequest{}).
			Where("captain_id = ? AND status IN ?", req.CaptainID, engineActiveStatuses).
			Count(&count).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to check active requests")
		}
		if count > 0 {
			return errors.New(errors.ErrCodeConflict, "captain already has an active scrim request")
		}

		if err := tx.Create(req).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.New(errors.ErrCodeConflict, "captain already has an active scrim request")
			}
			if stderrors.Is(err, gorm.ErrInvalidData) {
				return errors.Wrap(err, errors.ErrCodeValidation, "invalid scrim request")
			}
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to create scrim request")
		}
		return nil
	})
}

func (r *ScrimRequestRepository) GetRequest(ctx context.Context, id uint) (*models.ScrimRequest, error) {
	var req models.ScrimRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "request not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to get request")
	}
	return &req, nil
}

func (r *ScrimRequestRepository) GetActiveRequestByCaptain(ctx context.Context, captainID int64) (*models.ScrimRequest, error) {
	var req models.ScrimRequest
	err := r.db.WithContext(ctx).
		Where("captain_id = ? AND status IN ?", captainID, engineActiveStatuses).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "no active request")
		}
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to get active request")
	}
	return &req, nil
}

// FindCompatible returns pending requests that could be paired with req,
// oldest first. Slot overlap is evaluated in Go on each page.
func (r *ScrimRequestRepository) FindCompatible(ctx context.Context, req *models.ScrimRequest, excludedCaptains []int64, now time.Time, limit int) ([]models.ScrimRequest, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	excluded := append(slices.Clone(excludedCaptains), req.CaptainID)

	var out []models.ScrimRequest
	for page := 0; page < maxCompatiblePages; page++ {
		var batch []models.ScrimRequest
		err := r.db.WithContext(ctx).
			Where("status = ? AND match_type = ? AND expires_at > ? AND id <> ?",
				models.RequestStatusPending, req.MatchType, now, req.ID).
			Where("captain_id NOT IN ?", excluded).
			Order("created_at ASC, id ASC").
			Offset(page * limit).
			Limit(limit).
			Find(&batch).Error
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to find compatible requests")
		}

		for i := range batch {
			if req.CompatibleWith(&batch[i]) {
				out = append(out, batch[i])
			}
		}
		if len(out) >= limit || len(batch) < limit {
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ScrimRequestRepository) ClaimRequest(ctx context.Context, id uint, expected, next string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ScrimRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{
			"status":     next,
			"updated_at": now,
		})
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrDuplicatedKey) {
			// Reopening would give the captain a second active request.
			return false, nil
		}
		return false, errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to update request status")
	}
	return result.RowsAffected > 0, nil
}

func (r *ScrimRequestRepository) ListExpiredRequests(ctx context.Context, now time.Time, limit int) ([]models.ScrimRequest, error) {
	var reqs []models.ScrimRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.RequestStatusPending, now).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list expired requests")
	}
	return reqs, nil
}

func (r *ScrimRequestRepository) ListOrphanedRequests(ctx context.Context, before time.Time, limit int) ([]models.ScrimRequest, error) {
	active := r.db.Model(&models.ScrimMatch{}).
		Select("1").
		Where("(scrim_matches.request1_id = scrim_requests.id OR scrim_matches.request2_id = scrim_requests.id) AND scrim_matches.status IN ?",
			activeMatchStatuses)

	var reqs []models.ScrimRequest
	err := r.db.WithContext(ctx).
		Where("scrim_requests.status = ? AND scrim_requests.updated_at < ?", models.RequestStatusMatched, before).
		Where("NOT EXISTS (?)", active).
		Order("scrim_requests.updated_at ASC, scrim_requests.id ASC").
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list orphaned requests")
	}
	return reqs, nil
}
