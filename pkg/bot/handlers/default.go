package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/db"
	"github.com/smith3v/tg-english-coach/pkg/logger"
	"gorm.io/datatypes"
)

const maxLookupTokens = 3

// Default receives every update no registered handler matched: free text,
// voice notes, audio files and CSV uploads.
func (h *Handlers) Default(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		if update != nil && update.CallbackQuery != nil {
			h.HandleReviewCallback(ctx, b, update)
			return
		}
		logger.Debug("ignoring update without message")
		return
	}

	msg := update.Message
	switch {
	case msg.Voice != nil || msg.Audio != nil:
		h.HandleVoice(ctx, b, update)
	case msg.Document != nil:
		h.HandleDocument(ctx, b, update)
	case strings.HasPrefix(msg.Text, "/"):
		if handler, ok := h.commands()[commandName(msg.Text)]; ok {
			handler(ctx, b, update)
			return
		}
		h.HandleHelp(ctx, b, update)
	case strings.TrimSpace(msg.Text) != "":
		h.HandleText(ctx, b, chatID, msg.Text)
	default:
		sendText(ctx, b, chatID, msgHint)
	}
}

// HandleText routes free text by priority: a pending journal answer, the
// mission completion phrase, a short lookup, otherwise a hint.
func (h *Handlers) HandleText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	text = strings.TrimSpace(text)

	if _, ok := h.sessions.Consume(chatID, session.StateAwaitingJournal); ok {
		h.saveJournal(ctx, b, chatID, text)
		return
	}

	if strings.HasPrefix(strings.ToLower(text), missionPhrase) {
		h.completeMission(ctx, b, chatID)
		return
	}

	if tokens := strings.Fields(text); len(tokens) > 0 && len(tokens) <= maxLookupTokens {
		h.lookupWord(ctx, b, chatID, strings.Join(tokens, " "))
		return
	}

	sendText(ctx, b, chatID, msgHint)
}

// saveJournal re-arms the journal mode when the entry could not be stored so
// the user can resend it.
func (h *Handlers) saveJournal(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	entry := &db.JournalEntry{
		UserID:    chatID,
		EntryDate: datatypes.Date(h.now().In(h.location())),
		Entry:     text,
	}
	if err := h.repo.SaveJournal(ctx, entry); err != nil {
		logger.Error("failed to save journal entry", "chat_id", chatID, "error", err)
		h.sessions.AwaitJournal(chatID)
		sendText(ctx, b, chatID, msgJournalFailed)
		return
	}
	logger.Info("journal saved", "chat_id", chatID, "entry_id", entry.ID)
	sendText(ctx, b, chatID, msgJournalSaved)
}

func (h *Handlers) completeMission(ctx context.Context, b *bot.Bot, chatID int64) {
	completion := &db.MissionCompletion{UserID: chatID, Status: db.MissionStatusCompleted}
	if err := h.repo.SaveMissionCompletion(ctx, completion); err != nil {
		logger.Error("failed to save mission completion", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgMissionFailed)
		return
	}
	sendText(ctx, b, chatID, msgMissionDone)
}

// commandName reduces "/wod@coach_bot now" to "/wod".
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}
