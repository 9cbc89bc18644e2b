package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/internal/services"
	apperrors "github.com/mroshb/scrim_bot/pkg/errors"
	"github.com/mroshb/scrim_bot/pkg/logger"
	"github.com/mroshb/scrim_bot/pkg/utils"
)

// Bot interface to avoid circular dependency
type BotInterface interface {
	SendMessage(chatID int64, text string, keyboard interface{}) int
	EditMessage(chatID int64, messageID int, text string, keyboard interface{})
	SendDocument(chatID int64, fileName string, data []byte, caption string) int
	AnswerCallbackQuery(queryID string, text string, showAlert bool)
}

func (h *HandlerManager) HandleHelp(userID int64, bot BotInterface) {
	bot.SendMessage(userID, MsgHelp, nil)
}

// ParseScrimArgs splits "/scrim" arguments into format, slot and timezone.
// The slot may itself contain spaces ("6 PM - 8 PM").
func ParseScrimArgs(captainID int64, args string) (services.SubmitInput, bool) {
	fields := strings.Fields(utils.CollapseSpaces(utils.NormalizePersianNumbers(args)))
	if len(fields) < 3 {
		return services.SubmitInput{}, false
	}

	return services.SubmitInput{
		CaptainID: captainID,
		MatchType: fields[0],
		TimeSlot:  strings.Join(fields[1:len(fields)-1], " "),
		Timezone:  fields[len(fields)-1],
	}, true
}

func (h *HandlerManager) HandleScrim(ctx context.Context, userID int64, args string, bot BotInterface) {
	if !h.allow(userID, bot) {
		return
	}

	in, ok := ParseScrimArgs(userID, args)
	if !ok {
		bot.SendMessage(userID, MsgScrimUsage, nil)
		return
	}

	res, err := h.Scrims.Submit(ctx, in)
	if err != nil {
		h.sendError(userID, err, bot)
		return
	}

	// A fresh match is announced to both captains by the notifier.
	if res.Kind == services.ResultQueued {
		req := res.Request
		msg := fmt.Sprintf(MsgQueued, req.ID, strings.ToUpper(req.MatchType), req.TimeSlot, req.Timezone)
		bot.SendMessage(userID, msg, CancelRequestKeyboard(req.ID))
	}
}

func (h *HandlerManager) HandleStatus(ctx context.Context, userID int64, bot BotInterface) {
	view, err := h.Scrims.Status(ctx, userID)
	if err != nil {
		h.sendError(userID, err, bot)
		return
	}
	if view.Request == nil {
		bot.SendMessage(userID, MsgNoActiveRequest, nil)
		return
	}

	req := view.Request
	msg := fmt.Sprintf(MsgStatusRequest,
		req.ID, req.Status, strings.ToUpper(req.MatchType), req.TimeSlot, req.Timezone,
		req.ExpiresAt.UTC().Format("2006-01-02 15:04"),
	)
	if view.Match != nil {
		msg += fmt.Sprintf(MsgStatusMatch, view.Match.ID, view.Match.Status, view.Match.OpponentOf(userID))
	}

	var keyboard interface{}
	switch {
	case view.Match != nil && view.Match.Status == models.MatchStatusPendingApproval:
		keyboard = MatchResponseKeyboard(view.Match.ID)
	case req.Status == models.RequestStatusPending:
		keyboard = CancelRequestKeyboard(req.ID)
	}
	bot.SendMessage(userID, msg, keyboard)
}

func (h *HandlerManager) HandleCancel(ctx context.Context, userID int64, bot BotInterface) {
	view, err := h.Scrims.Status(ctx, userID)
	if err != nil {
		h.sendError(userID, err, bot)
		return
	}
	if view.Request == nil {
		bot.SendMessage(userID, MsgNothingToCancel, nil)
		return
	}

	h.cancel(ctx, userID, view.Request.ID, view.Match, bot)
}

func (h *HandlerManager) cancel(ctx context.Context, userID int64, requestID uint, match *models.ScrimMatch, bot BotInterface) bool {
	if _, err := h.Scrims.Cancel(ctx, requestID, userID); err != nil {
		h.sendError(userID, err, bot)
		return false
	}

	bot.SendMessage(userID, fmt.Sprintf(MsgCancelled, requestID), nil)
	if match != nil && match.Status == models.MatchStatusPendingApproval {
		bot.SendMessage(match.OpponentOf(userID), fmt.Sprintf(MsgOpponentWithdrew, match.ID), nil)
	}
	return true
}

// HandleCallback dispatches the inline buttons from keyboards.go. It reports
// whether data was one of them.
func (h *HandlerManager) HandleCallback(ctx context.Context, userID int64, queryID string, messageID int, data string, bot BotInterface) bool {
	switch {
	case strings.HasPrefix(data, CallbackApprove):
		h.handleMatchResponse(ctx, userID, queryID, messageID, data, CallbackApprove, true, bot)
	case strings.HasPrefix(data, CallbackDecline):
		h.handleMatchResponse(ctx, userID, queryID, messageID, data, CallbackDecline, false, bot)
	case strings.HasPrefix(data, CallbackCancel):
		h.handleCancelCallback(ctx, userID, queryID, messageID, data, bot)
	default:
		return false
	}
	return true
}

func (h *HandlerManager) handleMatchResponse(ctx context.Context, userID int64, queryID string, messageID int, data, prefix string, approve bool, bot BotInterface) {
	matchID, err := parseCallbackID(data, prefix)
	if err != nil {
		bot.AnswerCallbackQuery(queryID, MsgErrNotFound, true)
		return
	}
	if !h.allow(userID, bot) {
		bot.AnswerCallbackQuery(queryID, "", false)
		return
	}

	res, err := h.Scrims.RespondToMatch(ctx, matchID, userID, approve)
	if err != nil {
		bot.AnswerCallbackQuery(queryID, errorText(err), true)
		return
	}
	bot.AnswerCallbackQuery(queryID, "", false)

	switch res.Kind {
	case services.ResultAwaitingOpponent:
		bot.EditMessage(userID, messageID, fmt.Sprintf(MsgAwaitingOpponent, matchID), nil)
	case services.ResultApproved:
		bot.EditMessage(userID, messageID, fmt.Sprintf(MsgMatchApproved, matchID), nil)
		bot.SendMessage(res.OpponentCaptainID, fmt.Sprintf(MsgMatchApproved, matchID), nil)
	case services.ResultDeclined:
		bot.EditMessage(userID, messageID, fmt.Sprintf(MsgYouDeclined, matchID), nil)
		bot.SendMessage(res.OpponentCaptainID, fmt.Sprintf(MsgOpponentDeclined, matchID), nil)
	}
}

func (h *HandlerManager) handleCancelCallback(ctx context.Context, userID int64, queryID string, messageID int, data string, bot BotInterface) {
	requestID, err := parseCallbackID(data, CallbackCancel)
	if err != nil {
		bot.AnswerCallbackQuery(queryID, MsgErrNotFound, true)
		return
	}
	bot.AnswerCallbackQuery(queryID, "", false)

	view, err := h.Scrims.Status(ctx, userID)
	if err != nil {
		h.sendError(userID, err, bot)
		return
	}
	var match *models.ScrimMatch
	if view.Request != nil && view.Request.ID == requestID {
		match = view.Match
	}

	if h.cancel(ctx, userID, requestID, match, bot) {
		bot.EditMessage(userID, messageID, fmt.Sprintf(MsgCancelled, requestID), nil)
	}
}

// OpponentFoundMessage renders the notification a captain gets when paired.
func OpponentFoundMessage(match *models.ScrimMatch, captainID int64, now time.Time) string {
	minutes := int(math.Ceil(match.ExpiresAt.Sub(now).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(MsgOpponentFound,
		match.ID, strings.ToUpper(match.MatchType), match.TimeSlot, match.Timezone,
		match.OpponentOf(captainID), minutes,
	)
}

func (h *HandlerManager) allow(userID int64, bot BotInterface) bool {
	if h.Limiter == nil || h.Limiter.CheckUserLimit(userID) {
		return true
	}
	bot.SendMessage(userID, MsgRateLimited, nil)
	return false
}

func (h *HandlerManager) sendError(userID int64, err error, bot BotInterface) {
	if apperrors.CodeOf(err) == "" || apperrors.Is(err, apperrors.ErrCodePersistence) {
		logger.Error("Scrim command failed", "user_id", userID, "error", err)
	}
	bot.SendMessage(userID, errorText(err), nil)
}

func errorText(err error) string {
	var message string
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Code == apperrors.ErrCodeValidation && appErr.Err != nil {
			message += ": " + appErr.Err.Error()
		}
	}

	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeValidation:
		return fmt.Sprintf(MsgErrInvalid, message)
	case apperrors.ErrCodeConflict:
		return fmt.Sprintf(MsgErrConflict, message)
	case apperrors.ErrCodeNotFound:
		return MsgErrNotFound
	case apperrors.ErrCodeForbidden:
		return MsgErrForbidden
	default:
		return MsgErrInternal
	}
}
