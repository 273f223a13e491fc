package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/schedule"
	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/config"
	"github.com/smith3v/tg-english-coach/pkg/content"
	"github.com/smith3v/tg-english-coach/pkg/db"
	"github.com/smith3v/tg-english-coach/pkg/logger"
	"github.com/smith3v/tg-english-coach/pkg/speech"
)

// Repository is the persistence surface used by the handlers. Users are keyed
// by chat ID.
type Repository interface {
	SaveUser(ctx context.Context, chatID int64) (bool, error)
	SaveFlashcard(ctx context.Context, card *db.Flashcard) (db.SaveStatus, error)
	GetFlashcards(ctx context.Context, userID int64, limit int) ([]db.Flashcard, error)
	CountFlashcards(ctx context.Context, userID int64) (int64, error)
	SaveJournal(ctx context.Context, entry *db.JournalEntry) error
	GetRandomJournal(ctx context.Context, userID int64) (*db.JournalEntry, error)
	SaveMissionCompletion(ctx context.Context, completion *db.MissionCompletion) error
}

// HTTPDoer downloads files attached to messages.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	Repository       Repository
	Content          *content.Service
	Speech           speech.Synthesizer
	Sessions         *session.Store
	Scheduler        *schedule.Scheduler
	Times            schedule.Times
	Review           config.ReviewConfig
	// TranslationLabel heads the translation line of word cards.
	TranslationLabel string
	Timeout          time.Duration
	HTTPClient       HTTPDoer
	Now              func() time.Time
}

// Handlers owns every dependency the bot's update handlers need.
type Handlers struct {
	repo       Repository
	content    *content.Service
	speech     speech.Synthesizer
	sessions   *session.Store
	scheduler  *schedule.Scheduler
	times      schedule.Times
	fetchLimit int
	deckSize   int
	label      string
	timeout    time.Duration
	httpClient HTTPDoer
	now        func() time.Time
}

func New(opts Options) *Handlers {
	h := &Handlers{
		repo:       opts.Repository,
		content:    opts.Content,
		speech:     opts.Speech,
		sessions:   opts.Sessions,
		scheduler:  opts.Scheduler,
		times:      opts.Times,
		fetchLimit: opts.Review.FetchLimit,
		deckSize:   opts.Review.DeckSize,
		label:      opts.TranslationLabel,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		now:        opts.Now,
	}
	if h.sessions == nil {
		h.sessions = session.NewStore(nil)
	}
	if h.times == nil {
		h.times = schedule.DefaultTimes()
	}
	if h.fetchLimit <= 0 {
		h.fetchLimit = config.DefaultFetchLimit
	}
	if h.deckSize <= 0 {
		h.deckSize = config.DefaultDeckSize
	}
	if h.label == "" {
		h.label = "Translation"
	}
	if h.timeout <= 0 {
		h.timeout = config.DefaultTimeoutSeconds * time.Second
	}
	if h.httpClient == nil {
		h.httpClient = http.DefaultClient
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Register wires the command and callback handlers into b. Everything else
// reaches Default, which must be installed with bot.WithDefaultHandler.
func (h *Handlers) Register(b *bot.Bot) {
	for command, handler := range h.commands() {
		b.RegisterHandler(bot.HandlerTypeMessageText, command, bot.MatchTypeExact, handler)
	}
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ReviewCallbackPrefix, bot.MatchTypePrefix, h.HandleReviewCallback)
}

func (h *Handlers) commands() map[string]bot.HandlerFunc {
	return map[string]bot.HandlerFunc{
		"/start":     h.HandleStart,
		"/help":      h.HandleHelp,
		"/wod":       h.HandleWordOfDay,
		"/mission":   h.HandleMission,
		"/journal":   h.HandleJournal,
		"/shadowing": h.HandleShadowing,
		"/review":    h.HandleReview,
		"/memory":    h.HandleMemory,
		"/stats":     h.HandleStats,
		"/export":    h.HandleExport,
	}
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.timeout)
}

func (h *Handlers) location() *time.Location {
	if h.scheduler != nil {
		return h.scheduler.Location()
	}
	return time.UTC
}

// sendText sends plain text, split over several messages when it is longer
// than Telegram allows.
func sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxMessageRunes) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			logger.Error("failed to send message", "chat_id", chatID, "error", err)
			return
		}
	}
}

func sendMarkdown(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard models.ReplyMarkup) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	msg, err := b.SendMessage(ctx, params)
	if err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
	return msg, err
}

func messageChat(update *models.Update) (int64, bool) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		return 0, false
	}
	return update.Message.Chat.ID, true
}
