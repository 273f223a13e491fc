package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

const (
	ReviewCallbackPrefix = "rv:"

	reviewActionReveal = "reveal"
	reviewActionNext   = "next"
)

func (h *Handlers) HandleReview(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		logger.Error("invalid update in HandleReview")
		return
	}
	h.ensureUser(ctx, b, chatID)

	cards, err := h.repo.GetFlashcards(ctx, chatID, h.fetchLimit)
	if err != nil {
		logger.Error("failed to load flashcards for review", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgGenericFailure)
		return
	}
	if len(cards) == 0 {
		sendText(ctx, b, chatID, msgNoFlashcards)
		return
	}

	review, err := h.sessions.StartReview(chatID, session.BuildDeck(cards, h.deckSize))
	if err != nil {
		logger.Error("failed to start review", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgGenericFailure)
		return
	}
	h.sendReviewFront(ctx, b, chatID, review)
}

func (h *Handlers) HandleReviewCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleReviewCallback")
		return
	}

	callbackID := update.CallbackQuery.ID
	answerCallback := func(text string) {
		if callbackID == "" {
			return
		}
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		}); err != nil {
			logger.Error("failed to answer review callback query", "error", err)
		}
	}

	message := update.CallbackQuery.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil || message.Message.Chat.ID == 0 {
		answerCallback("Message missing")
		return
	}
	chatID := message.Message.Chat.ID
	messageID := message.Message.ID

	token, action, ok := parseReviewCallback(update.CallbackQuery.Data)
	if !ok {
		answerCallback("Not active")
		return
	}

	switch action {
	case reviewActionReveal:
		review, err := h.sessions.Reveal(chatID, token)
		if h.answerReviewError(ctx, b, chatID, messageID, err, answerCallback) {
			return
		}
		answerCallback("")
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        formatReviewBack(review.Card()),
			ParseMode:   models.ParseModeMarkdown,
			ReplyMarkup: reviewKeyboard(review.Token, reviewActionNext),
		}); err != nil {
			logger.Error("failed to reveal review card", "chat_id", chatID, "error", err)
		}

	case reviewActionNext:
		review, done, err := h.sessions.Next(chatID, token)
		if h.answerReviewError(ctx, b, chatID, messageID, err, answerCallback) {
			return
		}
		answerCallback("")
		if done {
			sendText(ctx, b, chatID, msgReviewComplete)
			return
		}
		h.sendReviewFront(ctx, b, chatID, review)
	}
}

// answerReviewError reports whether err ended the callback. Presses on an
// expired session replace the message with a notice; out-of-order presses on
// a live session are acknowledged and ignored.
func (h *Handlers) answerReviewError(ctx context.Context, b *bot.Bot, chatID int64, messageID int, err error, answer func(string)) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, session.ErrIllegalTransition):
		answer("")
	default:
		answer("Session expired")
		if _, editErr := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      msgSessionExpired,
			ReplyMarkup: &models.InlineKeyboardMarkup{
				InlineKeyboard: [][]models.InlineKeyboardButton{},
			},
		}); editErr != nil {
			logger.Error("failed to mark review as expired", "chat_id", chatID, "error", editErr)
		}
	}
	return true
}

func (h *Handlers) sendReviewFront(ctx context.Context, b *bot.Bot, chatID int64, review session.Review) {
	_, _ = sendMarkdown(ctx, b, chatID, formatReviewFront(review), reviewKeyboard(review.Token, reviewActionReveal))
}

func reviewKeyboard(token, action string) *models.InlineKeyboardMarkup {
	label := "👁️ Reveal"
	if action == reviewActionNext {
		label = "➡️ Next"
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: label, CallbackData: ReviewCallbackPrefix + token + ":" + action},
			},
		},
	}
}

func parseReviewCallback(data string) (string, string, bool) {
	if !strings.HasPrefix(data, ReviewCallbackPrefix) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(data, ReviewCallbackPrefix), ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	switch parts[1] {
	case reviewActionReveal, reviewActionNext:
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}
