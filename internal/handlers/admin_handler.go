package handlers

import (
	"context"
	"fmt"

	"github.com/mroshb/scrim_bot/internal/report"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

// HandleExport sends the admin an xlsx of the last week's matches.
func (h *HandlerManager) HandleExport(ctx context.Context, userID int64, bot BotInterface) {
	if !h.isAdmin(userID) {
		bot.SendMessage(userID, MsgAdminOnly, nil)
		return
	}

	since := h.now().Add(-exportWindow)
	matches, err := h.Scrims.ListMatchesSince(ctx, since, exportLimit)
	if err != nil {
		h.sendError(userID, err, bot)
		return
	}
	if len(matches) == 0 {
		bot.SendMessage(userID, MsgExportEmpty, nil)
		return
	}

	buf, err := report.MatchesWorkbook(matches)
	if err != nil {
		logger.Error("Failed to build matches workbook", "error", err)
		bot.SendMessage(userID, MsgErrInternal, nil)
		return
	}

	fileName := fmt.Sprintf("scrims_%s.xlsx", h.now().UTC().Format("20060102_1504"))
	caption := fmt.Sprintf(MsgExportCaption, len(matches), since.UTC().Format("2006-01-02"))
	bot.SendDocument(userID, fileName, buf.Bytes(), caption)
	logger.Info("Matches exported", "admin_id", userID, "count", len(matches))
}
