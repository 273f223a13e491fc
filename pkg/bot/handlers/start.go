package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/schedule"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

// ensureUser registers the chat and arms its triggers the first time it is
// seen. It reports false only when the user could not be stored.
func (h *Handlers) ensureUser(ctx context.Context, b *bot.Bot, chatID int64) bool {
	created, err := h.repo.SaveUser(ctx, chatID)
	if err != nil {
		logger.Error("failed to save user", "chat_id", chatID, "error", err)
		return false
	}
	if created {
		logger.Info("new user", "chat_id", chatID)
		h.arm(b, chatID)
	}
	return true
}

func (h *Handlers) arm(b *bot.Bot, chatID int64) {
	if h.scheduler == nil {
		return
	}
	if err := schedule.ArmUser(h.scheduler, chatID, h.Jobs(b), h.times); err != nil {
		logger.Error("failed to arm user triggers", "chat_id", chatID, "error", err)
	}
}

func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		logger.Error("invalid update in HandleStart")
		return
	}
	if _, err := h.repo.SaveUser(ctx, chatID); err != nil {
		logger.Error("failed to save user", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgGenericFailure)
		return
	}
	h.arm(b, chatID)
	sendText(ctx, b, chatID, formatWelcome(h.times, h.location()))
}

func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		return
	}
	h.ensureUser(ctx, b, chatID)
	sendText(ctx, b, chatID, helpText)
}

func (h *Handlers) HandleWordOfDay(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		return
	}
	h.ensureUser(ctx, b, chatID)
	h.SendWordOfDay(ctx, b, chatID)
}

func (h *Handlers) HandleMission(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		return
	}
	h.ensureUser(ctx, b, chatID)
	h.SendWeeklyMission(ctx, b, chatID)
}

func (h *Handlers) HandleJournal(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		return
	}
	h.ensureUser(ctx, b, chatID)
	h.SendJournalPrompt(ctx, b, chatID)
}

func (h *Handlers) HandleShadowing(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		return
	}
	h.ensureUser(ctx, b, chatID)
	h.SendShadowingTask(ctx, b, chatID)
}

func (h *Handlers) HandleMemory(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		return
	}
	h.ensureUser(ctx, b, chatID)

	entry, err := h.repo.GetRandomJournal(ctx, chatID)
	if err != nil {
		logger.Error("failed to load journal memory", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgGenericFailure)
		return
	}
	if entry == nil {
		sendText(ctx, b, chatID, msgNoJournal)
		return
	}
	sendText(ctx, b, chatID, formatMemory(*entry))
}

func (h *Handlers) HandleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		return
	}
	h.ensureUser(ctx, b, chatID)

	count, err := h.repo.CountFlashcards(ctx, chatID)
	if err != nil {
		logger.Error("failed to count flashcards", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgGenericFailure)
		return
	}
	sendText(ctx, b, chatID, formatStats(count))
}
