package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	BtnStatus = "📋 Status"
	BtnCancel = "🚫 Cancel request"
	BtnHelp   = "❓ Help"
)

// MainMenuKeyboard creates the main menu keyboard
func MainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnStatus),
			tgbotapi.NewKeyboardButton(BtnCancel),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnHelp),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}
