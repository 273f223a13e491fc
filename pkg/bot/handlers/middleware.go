package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

// UpdateKind names the part of an update the dispatcher routes on.
func UpdateKind(update *models.Update) string {
	switch {
	case update == nil:
		return "empty"
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message == nil:
		return "other"
	case update.Message.Voice != nil || update.Message.Audio != nil:
		return "voice"
	case len(update.Message.Text) > 0 && update.Message.Text[0] == '/':
		return "command"
	case update.Message.Text != "":
		return "text"
	default:
		return "other"
	}
}

// LogMiddleware records every handled update at debug level.
func LogMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		started := time.Now()
		next(ctx, b, update)
		if !logger.Enabled(logger.DEBUG) {
			return
		}
		var chatID int64
		switch {
		case update == nil:
		case update.Message != nil:
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
			chatID = update.CallbackQuery.Message.Message.Chat.ID
		}
		logger.Debug("update handled", "kind", UpdateKind(update), "chat_id", chatID, "duration", time.Since(started))
	}
}
