package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/schedule"
	"github.com/smith3v/tg-english-coach/pkg/content"
	"github.com/smith3v/tg-english-coach/pkg/db"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

// Jobs binds every scheduled kind to the delivery used by its manual command.
func (h *Handlers) Jobs(b *bot.Bot) map[schedule.Kind]schedule.Job {
	return map[schedule.Kind]schedule.Job{
		schedule.KindWordOfDay: func(ctx context.Context, chatID int64) {
			h.SendWordOfDay(ctx, b, chatID)
		},
		schedule.KindWeeklyMission: func(ctx context.Context, chatID int64) {
			h.SendWeeklyMission(ctx, b, chatID)
		},
		schedule.KindJournalPrompt: func(ctx context.Context, chatID int64) {
			h.SendJournalPrompt(ctx, b, chatID)
		},
		schedule.KindShadowing: func(ctx context.Context, chatID int64) {
			h.SendShadowingTask(ctx, b, chatID)
		},
	}
}

func (h *Handlers) SendWordOfDay(ctx context.Context, b *bot.Bot, chatID int64) {
	genCtx, cancel := h.withTimeout(ctx)
	card, err := h.content.WordOfDay(genCtx)
	cancel()
	if errors.Is(err, content.ErrMissingWord) {
		logger.Warn("word of the day reply named no word", "chat_id", chatID)
		sendText(ctx, b, chatID, msgWordOfDayNoWord)
		return
	}
	if err != nil {
		logger.Error("failed to generate word of the day", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgWordOfDayFailed)
		return
	}

	if _, err := sendMarkdown(ctx, b, chatID, formatWordCard("☀️ Word of the Day", card, h.label), nil); err != nil {
		return
	}
	h.sendPronunciation(ctx, b, chatID, card.Word)

	status, err := h.repo.SaveFlashcard(ctx, flashcardFromCard(chatID, card))
	if err != nil {
		logger.Error("failed to save word of the day", "chat_id", chatID, "word", card.Word, "error", err)
		return
	}
	logger.Debug("word of the day saved", "chat_id", chatID, "word", card.Word, "status", status)
}

func (h *Handlers) SendWeeklyMission(ctx context.Context, b *bot.Bot, chatID int64) {
	genCtx, cancel := h.withTimeout(ctx)
	mission, err := h.content.WeeklyMission(genCtx)
	cancel()
	if err != nil {
		logger.Error("failed to generate weekly mission", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgMissionGenFailed)
		return
	}
	_, _ = sendMarkdown(ctx, b, chatID, formatMission(mission), nil)
}

// SendJournalPrompt always sends the fixed questions; a generated bonus
// question is added when the provider answers.
func (h *Handlers) SendJournalPrompt(ctx context.Context, b *bot.Bot, chatID int64) {
	genCtx, cancel := h.withTimeout(ctx)
	question, err := h.content.JournalQuestion(genCtx)
	cancel()
	if err != nil {
		logger.Warn("journal question unavailable", "chat_id", chatID, "error", err)
		question = ""
	}

	h.sessions.AwaitJournal(chatID)
	sendText(ctx, b, chatID, formatJournalPrompt(question))
}

func (h *Handlers) SendShadowingTask(ctx context.Context, b *bot.Bot, chatID int64) {
	genCtx, cancel := h.withTimeout(ctx)
	task, err := h.content.ShadowingTask(genCtx)
	cancel()
	if err != nil {
		logger.Error("failed to generate shadowing task", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgShadowingFailed)
		return
	}

	h.sessions.AwaitShadowing(chatID, task.Sentence)
	if _, err := sendMarkdown(ctx, b, chatID, formatShadowing(task), nil); err != nil {
		return
	}
	h.sendPronunciation(ctx, b, chatID, task.Sentence)
}

// lookupWord answers a free-text lookup and stores the result as a flashcard.
func (h *Handlers) lookupWord(ctx context.Context, b *bot.Bot, chatID int64, word string) {
	sendText(ctx, b, chatID, "🔍 Looking up '"+word+"'...")

	genCtx, cancel := h.withTimeout(ctx)
	card, err := h.content.LookupWord(genCtx, word)
	cancel()
	if err != nil {
		logger.Warn("word lookup failed", "chat_id", chatID, "word", word, "error", err)
		sendText(ctx, b, chatID, msgLookupFailed)
		return
	}

	_, _ = sendMarkdown(ctx, b, chatID, formatWordCard("", card, h.label), nil)
	h.sendPronunciation(ctx, b, chatID, card.Word)

	status, err := h.repo.SaveFlashcard(ctx, flashcardFromCard(chatID, card))
	switch {
	case err != nil:
		logger.Error("failed to save flashcard", "chat_id", chatID, "word", word, "error", err)
		sendText(ctx, b, chatID, msgSaveFailed)
	case status == db.SaveSkipped:
		sendText(ctx, b, chatID, msgAlreadySaved)
	default:
		sendText(ctx, b, chatID, msgSaved)
	}
}

// sendPronunciation synthesizes text and sends it as a voice note. Failures
// are logged; the text content has already been delivered.
func (h *Handlers) sendPronunciation(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if h.speech == nil || text == "" {
		return
	}
	synthCtx, cancel := h.withTimeout(ctx)
	path, err := h.speech.Synthesize(synthCtx, text)
	cancel()
	if err != nil {
		logger.Warn("speech synthesis failed", "chat_id", chatID, "error", err)
		return
	}
	defer os.Remove(path)

	file, err := os.Open(path)
	if err != nil {
		logger.Error("failed to open synthesized audio", "path", path, "error", err)
		return
	}
	defer file.Close()

	if _, err := b.SendVoice(ctx, &bot.SendVoiceParams{
		ChatID: chatID,
		Voice: &models.InputFileUpload{
			Filename: filepath.Base(path),
			Data:     file,
		},
	}); err != nil {
		logger.Error("failed to send voice", "chat_id", chatID, "error", err)
	}
}

func flashcardFromCard(chatID int64, card content.WordCard) *db.Flashcard {
	return &db.Flashcard{
		UserID:      chatID,
		Word:        card.Word,
		Definition:  card.Definition,
		Translation: card.Translation,
		Example:     card.Example,
	}
}
