package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/importexport"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

const maxImportBytes = 1 << 20

func (h *Handlers) HandleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		logger.Error("invalid update in HandleExport")
		return
	}
	h.ensureUser(ctx, b, chatID)

	cards, err := h.repo.GetFlashcards(ctx, chatID, 0)
	if err != nil {
		logger.Error("failed to fetch flashcards for export", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgExportFailed)
		return
	}
	if len(cards) == 0 {
		sendText(ctx, b, chatID, msgNothingToExport)
		return
	}

	importexport.SortForExport(cards)
	data, err := importexport.BuildExportCSV(cards)
	if err != nil {
		logger.Error("failed to build export CSV", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgExportFailed)
		return
	}

	if _, err := b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: importexport.ExportFilename(h.now().In(h.location())),
			Data:     bytes.NewReader(data),
		},
		Caption: fmt.Sprintf("Your flashcards export (%d cards).", len(cards)),
	}); err != nil {
		logger.Error("failed to send export document", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgExportFailed)
	}
}

// HandleDocument imports an uploaded CSV of flashcards. Words the user already
// has are left as they are.
func (h *Handlers) HandleDocument(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok || update.Message.Document == nil {
		logger.Error("invalid update in HandleDocument")
		return
	}
	doc := update.Message.Document
	logger.Info("document uploaded", "chat_id", chatID, "file_name", doc.FileName)

	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".csv") {
		sendText(ctx, b, chatID, msgNotCSV)
		return
	}
	if doc.FileSize > maxImportBytes {
		sendText(ctx, b, chatID, msgImportTooLarge)
		return
	}
	h.ensureUser(ctx, b, chatID)

	opCtx, cancel := h.withTimeout(ctx)
	defer cancel()

	body, err := h.openDownload(opCtx, b, doc.FileID)
	if err != nil {
		logger.Error("failed to download CSV", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgImportReadFailed)
		return
	}
	data, err := io.ReadAll(io.LimitReader(body, maxImportBytes+1))
	body.Close()
	if err != nil {
		logger.Error("failed to read CSV", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgImportReadFailed)
		return
	}
	if len(data) > maxImportBytes {
		logger.Warn("CSV upload over size limit", "chat_id", chatID, "file_size", doc.FileSize)
		sendText(ctx, b, chatID, msgImportTooLarge)
		return
	}

	cards, skipped, err := importexport.ParseFlashcardCSV(chatID, data)
	if err != nil {
		logger.Warn("failed to parse CSV", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgImportReadFailed)
		return
	}
	if len(cards) == 0 {
		sendText(ctx, b, chatID, msgImportEmpty)
		return
	}

	inserted, duplicates, err := importexport.ImportFlashcards(ctx, h.repo, cards)
	if err != nil {
		logger.Error("failed to import flashcards", "chat_id", chatID, "inserted", inserted, "error", err)
		sendText(ctx, b, chatID, msgImportFailed)
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf("Imported %d new flashcards, %d already saved, skipped %d rows.", inserted, duplicates, skipped))
}
