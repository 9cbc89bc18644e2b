package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/scrim_bot/internal/config"
	"github.com/mroshb/scrim_bot/internal/handlers"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

const (
	workerCount     = 10
	workerQueueSize = 100
	updateTimeout   = 15 * time.Second
	maxSendRetries  = 3
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api      botAPI
	config   *config.Config
	handlers *handlers.HandlerManager

	// Worker pool for parallel processing
	workerChans []chan tgbotapi.Update

	done     chan struct{}
	stopOnce sync.Once
}

// NewAPI authorizes the bot token. The API is created before the handlers so
// the notifier can share it.
func NewAPI(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	if cfg.AppEnv == "development" {
		api.Debug = true
	}

	logger.Info("Authorized on account", "username", api.Self.UserName)
	return api, nil
}

func InitBot(cfg *config.Config, api *tgbotapi.BotAPI, handlerMgr *handlers.HandlerManager) *Bot {
	bot := newBot(cfg, api, handlerMgr)

	// Start workers
	for i := range bot.workerChans {
		bot.workerChans[i] = make(chan tgbotapi.Update, workerQueueSize)
		go bot.startWorker(bot.workerChans[i])
	}

	// Start update listener
	go bot.startUpdateListener()

	return bot
}

func newBot(cfg *config.Config, api botAPI, handlerMgr *handlers.HandlerManager) *Bot {
	return &Bot{
		api:         api,
		config:      cfg,
		handlers:    handlerMgr,
		workerChans: make([]chan tgbotapi.Update, workerCount),
		done:        make(chan struct{}),
	}
}

func (b *Bot) startUpdateListener() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for {
		logger.Info("Starting update listener...")
		updates := b.api.GetUpdatesChan(u)

		for update := range updates {
			// Find userID for hashing
			var userID int64
			if update.Message != nil && update.Message.From != nil {
				userID = update.Message.From.ID
			} else if update.CallbackQuery != nil {
				userID = update.CallbackQuery.From.ID
			}

			if userID != 0 {
				// Hashed dispatch to workers to ensure per-user ordered processing
				select {
				case b.workerChans[workerIndex(userID, len(b.workerChans))] <- update:
				case <-b.done:
					return
				}
			} else {
				go b.handleUpdate(update)
			}
		}

		select {
		case <-b.done:
			return
		default:
		}

		logger.Warn("Update channel closed. Restarting in 5 seconds...")
		time.Sleep(5 * time.Second)
	}
}

func workerIndex(userID int64, workers int) int {
	idx := userID % int64(workers)
	if idx < 0 {
		idx = -idx
	}
	return int(idx)
}

func (b *Bot) startWorker(ch chan tgbotapi.Update) {
	for {
		select {
		case <-b.done:
			return
		case update := <-ch:
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in handleUpdate", "error", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil || !message.Chat.IsPrivate() {
		return
	}
	userID := message.From.ID

	logger.Debug("Received message", "user_id", userID, "text", message.Text)

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	switch normalizeButton(message.Text) {
	case normalizeButton(BtnStatus):
		b.handlers.HandleStatus(ctx, userID, b)
	case normalizeButton(BtnCancel):
		b.handlers.HandleCancel(ctx, userID, b)
	case normalizeButton(BtnHelp):
		b.handlers.HandleHelp(userID, b)
	default:
		b.sendMessage(userID, handlers.MsgUnknown, MainMenuKeyboard())
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	switch message.Command() {
	case "start":
		b.sendMessage(userID, handlers.MsgWelcome, MainMenuKeyboard())
	case "help":
		b.handlers.HandleHelp(userID, b)
	case "scrim":
		b.handlers.HandleScrim(ctx, userID, message.CommandArguments(), b)
	case "cancel":
		b.handlers.HandleCancel(ctx, userID, b)
	case "status":
		b.handlers.HandleStatus(ctx, userID, b)
	case "export":
		b.handlers.HandleExport(ctx, userID, b)
	default:
		b.sendMessage(userID, handlers.MsgUnknown, nil)
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	messageID := 0
	if query.Message != nil {
		messageID = query.Message.MessageID
	}

	if !b.handlers.HandleCallback(ctx, userID, query.ID, messageID, query.Data, b) {
		logger.Debug("Unhandled callback", "user_id", userID, "data", query.Data)
		b.AnswerCallbackQuery(query.ID, "", false)
	}
}

func normalizeButton(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u200c", ""))
}

func (b *Bot) sendMessage(chatID int64, text string, keyboard interface{}) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	switch kb := keyboard.(type) {
	case tgbotapi.ReplyKeyboardMarkup:
		msg.ReplyMarkup = kb
	case tgbotapi.InlineKeyboardMarkup:
		msg.ReplyMarkup = kb
	case tgbotapi.ReplyKeyboardRemove:
		msg.ReplyMarkup = kb
	}

	return b.send(msg, chatID, "message")
}

// send retries network failures only; API errors are final.
func (b *Bot) send(c tgbotapi.Chattable, chatID int64, kind string) int {
	for i := 0; i < maxSendRetries; i++ {
		sentMsg, err := b.api.Send(c)
		if err != nil {
			logger.Error("Failed to send "+kind, "error", err, "chat_id", chatID, "attempt", i+1)

			if isNetworkError(err) {
				time.Sleep(time.Duration(i+1) * time.Second)
				continue
			}
			return 0
		}
		return sentMsg.MessageID
	}
	return 0
}

func isNetworkError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "network is unreachable")
}

func (b *Bot) SendMessage(chatID int64, text string, keyboard interface{}) int {
	return b.sendMessage(chatID, text, keyboard)
}

func (b *Bot) EditMessage(chatID int64, messageID int, text string, keyboard interface{}) {
	if messageID == 0 {
		b.sendMessage(chatID, text, keyboard)
		return
	}

	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if kb, ok := keyboard.(tgbotapi.InlineKeyboardMarkup); ok {
		msg.ReplyMarkup = &kb
	}

	if _, err := b.api.Send(msg); err != nil {
		logger.Error("Failed to edit message", "error", err, "chat_id", chatID, "message_id", messageID)
	}
}

func (b *Bot) SendDocument(chatID int64, fileName string, data []byte, caption string) int {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: data})
	doc.Caption = caption
	return b.send(doc, chatID, "document")
}

func (b *Bot) AnswerCallbackQuery(queryID string, text string, showAlert bool) {
	callback := tgbotapi.NewCallback(queryID, text)
	callback.ShowAlert = showAlert
	if _, err := b.api.Request(callback); err != nil {
		logger.Error("Failed to answer callback query", "error", err, "query_id", queryID)
	}
}

func (b *Bot) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.api.StopReceivingUpdates()
		logger.Info("Bot stopped receiving updates")
	})
}
