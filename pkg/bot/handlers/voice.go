package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

// HandleVoice analyses a voice note or audio file. When the chat is waiting
// for a shadowing attempt the recording is compared with the expected
// sentence and the wait is over.
func (h *Handlers) HandleVoice(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, ok := messageChat(update)
	if !ok {
		logger.Error("invalid update in HandleVoice")
		return
	}
	fileID := voiceFileID(update.Message)
	if fileID == "" {
		return
	}

	sendText(ctx, b, chatID, msgAnalyzing)

	opCtx, cancel := h.withTimeout(ctx)
	defer cancel()

	path, err := h.downloadFile(opCtx, b, fileID)
	if err != nil {
		logger.Error("failed to download voice", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgAnalyzeFailed)
		return
	}
	defer os.Remove(path)

	mode, shadowing := h.sessions.Consume(chatID, session.StateAwaitingShadowing)
	feedback, err := h.content.AnalyzeVoice(opCtx, path, mode.Expected)
	if err != nil {
		logger.Error("failed to analyze voice", "chat_id", chatID, "error", err)
		if shadowing {
			h.sessions.AwaitShadowing(chatID, mode.Expected)
		}
		sendText(ctx, b, chatID, msgAnalyzeFailed)
		return
	}

	title := voiceAnalysisTitle
	if shadowing {
		title = shadowingFeedbackTitle
	}
	sendText(ctx, b, chatID, title+"\n\n"+feedback)
}

func voiceFileID(msg *models.Message) string {
	switch {
	case msg.Voice != nil:
		return msg.Voice.FileID
	case msg.Audio != nil:
		return msg.Audio.FileID
	default:
		return ""
	}
}

// openDownload resolves a Telegram file and starts downloading it. The caller
// closes the body.
func (h *Handlers) openDownload(ctx context.Context, b *bot.Bot, fileID string) (io.ReadCloser, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// downloadFile stores a Telegram file in a temp file and returns its path.
func (h *Handlers) downloadFile(ctx context.Context, b *bot.Bot, fileID string) (string, error) {
	body, err := h.openDownload(ctx, b, fileID)
	if err != nil {
		return "", err
	}
	defer body.Close()

	out, err := os.CreateTemp("", "voice-*.ogg")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("write voice file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
