package repositories

import (
	"github.com/mroshb/scrim_bot/internal/services"
	"gorm.io/gorm"
)

var _ services.Store = (*Store)(nil)

// Store bundles the gorm repositories into the engine's persistence surface.
type Store struct {
	*ScrimRequestRepository
	*ScrimMatchRepository
	*AvoidPairRepository
	*WaitlistRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		ScrimRequestRepository: NewScrimRequestRepository(db),
		ScrimMatchRepository:   NewScrimMatchRepository(db),
		AvoidPairRepository:    NewAvoidPairRepository(db),
		WaitlistRepository:     NewWaitlistRepository(db),
	}
}
