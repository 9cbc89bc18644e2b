package handlers

import (
	"time"

	"github.com/mroshb/scrim_bot/internal/config"
	"github.com/mroshb/scrim_bot/internal/middleware"
	"github.com/mroshb/scrim_bot/internal/services"
)

const (
	exportWindow = 7 * 24 * time.Hour
	exportLimit  = 1000
)

type HandlerManager struct {
	Config  *config.Config
	Scrims  *services.ScrimService
	Limiter *middleware.RateLimiter

	now services.Clock
}

func NewHandlerManager(
	cfg *config.Config,
	scrims *services.ScrimService,
	limiter *middleware.RateLimiter,
	now services.Clock,
) *HandlerManager {
	if now == nil {
		now = time.Now
	}
	return &HandlerManager{
		Config:  cfg,
		Scrims:  scrims,
		Limiter: limiter,
		now:     now,
	}
}

func (h *HandlerManager) isAdmin(userID int64) bool {
	return h.Config != nil && h.Config.SuperAdminTgID != 0 && userID == h.Config.SuperAdminTgID
}
