package handlers

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	CallbackApprove = "scrim_approve:"
	CallbackDecline = "scrim_decline:"
	CallbackCancel  = "scrim_cancel:"
)

// MatchResponseKeyboard is attached to the "opponent found" message.
func MatchResponseKeyboard(matchID uint) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatUint(uint64(matchID), 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnApprove, CallbackApprove+id),
			tgbotapi.NewInlineKeyboardButtonData(BtnDecline, CallbackDecline+id),
		),
	)
}

// CancelRequestKeyboard lets a queued captain withdraw without typing /cancel.
func CancelRequestKeyboard(requestID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnCancelRequest, CallbackCancel+strconv.FormatUint(uint64(requestID), 10)),
		),
	)
}

// IsScrimCallback reports whether data belongs to one of the keyboards above.
func IsScrimCallback(data string) bool {
	return strings.HasPrefix(data, CallbackApprove) ||
		strings.HasPrefix(data, CallbackDecline) ||
		strings.HasPrefix(data, CallbackCancel)
}

func parseCallbackID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid callback id %q", raw)
	}
	return uint(id), nil
}
