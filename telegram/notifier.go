package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/scrim_bot/internal/handlers"
	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

const notifyQueueSize = 256

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type matchReader interface {
	GetMatch(ctx context.Context, id uint) (*models.ScrimMatch, error)
}

type notification struct {
	captainID  int64
	matchID    uint
	opponentID int64
}

// Notifier delivers "opponent found" messages off the matching path. Sends
// are paced by interval to stay under Telegram's flood limits and are never
// retried.
type Notifier struct {
	api      messageSender
	matches  matchReader
	now      func() time.Time
	interval time.Duration
	queue    chan notification
}

func NewNotifier(api messageSender, matches matchReader, now func() time.Time, interval time.Duration) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{
		api:      api,
		matches:  matches,
		now:      now,
		interval: interval,
		queue:    make(chan notification, notifyQueueSize),
	}
}

// Notify queues a notification. It only fails when the queue is full.
func (n *Notifier) Notify(ctx context.Context, captainID int64, matchID uint, opponentCaptainID int64) error {
	select {
	case n.queue <- notification{captainID: captainID, matchID: matchID, opponentID: opponentCaptainID}:
		return nil
	default:
		return errors.New(errors.ErrCodeRateLimitExceeded, "notification queue is full")
	}
}

// Run drains the queue until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	var pace <-chan time.Time
	if n.interval > 0 {
		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case note := <-n.queue:
			n.deliver(ctx, note)
		}

		if pace == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-pace:
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, note notification) {
	match, err := n.matches.GetMatch(ctx, note.matchID)
	if err != nil {
		logger.Error("Failed to load match for notification", "match_id", note.matchID, "error", err)
		return
	}
	// Declined, withdrawn or expired while queued.
	if match.Status != models.MatchStatusPendingApproval {
		logger.Debug("Skipping stale match notification", "match_id", match.ID, "status", match.Status)
		return
	}

	msg := tgbotapi.NewMessage(note.captainID, handlers.OpponentFoundMessage(match, note.captainID, n.now()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = handlers.MatchResponseKeyboard(match.ID)

	if _, err := n.api.Send(msg); err != nil {
		logger.Error("Failed to send match notification",
			"captain_id", note.captainID,
			"match_id", note.matchID,
			"opponent_id", note.opponentID,
			"error", err,
		)
	}
}
