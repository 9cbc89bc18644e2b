package repositories

import (
	"context"
	stderrors "errors"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"gorm.io/gorm"
)

var activeMatchStatuses = []string{
	models.MatchStatusPendingApproval,
	models.MatchStatusApproved,
	models.MatchStatusChatActive,
	models.MatchStatusMapBanning,
}

type ScrimMatchRepository struct {
	db *gorm.DB
}

func NewScrimMatchRepository(db *gorm.DB) *ScrimMatchRepository {
	return &ScrimMatchRepository{db: db}
}

// ClaimPair moves both requests pending->matched and inserts the match in a
// single transaction. A missed claim rolls everything back. Rows are locked in
// ascending id order so two claims over the same pair cannot deadlock.
func (r *ScrimMatchRepository) ClaimPair(ctx context.Context, match *models.ScrimMatch) error {
	ids := []uint{match.Request1ID, match.Request2ID}
	slices.Sort(ids)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, requestID := range ids {
			result := tx.Model(&models.ScrimRequest{}).
				Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
				Updates(map[string]interface{}{"status": models.RequestStatusMatched, "updated_at": match.CreatedAt})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return errors.New(errors.ErrCodeClaimRace, "request already claimed")
			}
		}
		return tx.Create(match).Error
	})
	return claimPairError(err)
}

// Postgres aborts one side of a deadlock or serialization conflict; the
// engine treats that the same as losing the claim.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func claimPairError(err error) error {
	if err == nil || errors.Is(err, errors.ErrCodeClaimRace) {
		return err
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && (pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected) {
		return errors.Wrap(err, errors.ErrCodeClaimRace, "request claim aborted by contention")
	}
	return errors.Wrap(err, errors.ErrCodePersistence, "failed to claim request pair")
}

func (r *ScrimMatchRepository) GetMatch(ctx context.Context, id uint) (*models.ScrimMatch, error) {
	var match models.ScrimMatch
	if err := r.db.WithContext(ctx).First(&match, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "match not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to get match")
	}
	return &match, nil
}

func (r *ScrimMatchRepository) GetActiveMatchByRequest(ctx context.Context, requestID uint) (*models.ScrimMatch, error) {
	var match models.ScrimMatch
	err := r.db.WithContext(ctx).
		Where("(request1_id = ? OR request2_id = ?) AND status IN ?", requestID, requestID, activeMatchStatuses).
		Order("id DESC").
		First(&match).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrCodeNotFound, "no active match for request")
		}
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to get active match")
	}
	return &match, nil
}

// SetApproval flips the captain's flag while the match awaits approval.
func (r *ScrimMatchRepository) SetApproval(ctx context.Context, matchID uint, captainID int64, now time.Time) (bool, error) {
	sides := []struct {
		captainColumn string
		flagColumn    string
	}{
		{"captain1_id", "captain1_approved"},
		{"captain2_id", "captain2_approved"},
	}

	for _, side := range sides {
		result := r.db.WithContext(ctx).Model(&models.ScrimMatch{}).
			Where("id = ? AND status = ? AND "+side.captainColumn+" = ?", matchID, models.MatchStatusPendingApproval, captainID).
			Updates(map[string]interface{}{
				side.flagColumn: true,
				"updated_at":    now,
			})
		if result.Error != nil {
			return false, errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to record approval")
		}
		if result.RowsAffected > 0 {
			return true, nil
		}
	}
	return false, nil
}

// ApproveMatch moves the match to approved once both flags are set.
func (r *ScrimMatchRepository) ApproveMatch(ctx context.Context, matchID uint, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ScrimMatch{}).
		Where("id = ? AND status = ? AND captain1_approved = ? AND captain2_approved = ?",
			matchID, models.MatchStatusPendingApproval, true, true).
		Updates(map[string]interface{}{
			"status":     models.MatchStatusApproved,
			"matched_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to approve match")
	}
	return result.RowsAffected > 0, nil
}

func (r *ScrimMatchRepository) DeclineMatch(ctx context.Context, matchID uint, declinedBy *int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ScrimMatch{}).
		Where("id = ? AND status = ?", matchID, models.MatchStatusPendingApproval).
		Updates(map[string]interface{}{
			"status":      models.MatchStatusDeclined,
			"declined_by": declinedBy,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to decline match")
	}
	return result.RowsAffected > 0, nil
}

func (r *ScrimMatchRepository) TransitionMatch(ctx context.Context, matchID uint, from, to string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ScrimMatch{}).
		Where("id = ? AND status = ?", matchID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodePersistence, "failed to update match status")
	}
	return result.RowsAffected > 0, nil
}

func (r *ScrimMatchRepository) ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.ScrimMatch, error) {
	var matches []models.ScrimMatch
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.MatchStatusPendingApproval, now).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&matches).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list expired matches")
	}
	return matches, nil
}

func (r *ScrimMatchRepository) ListMatchesSince(ctx context.Context, since time.Time, limit int) ([]models.ScrimMatch, error) {
	var matches []models.ScrimMatch
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&matches).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to list matches")
	}
	return matches, nil
}
