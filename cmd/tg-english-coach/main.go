package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tg-english-coach/pkg/bot/handlers"
	"github.com/smith3v/tg-english-coach/pkg/bot/schedule"
	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/config"
	"github.com/smith3v/tg-english-coach/pkg/content"
	"github.com/smith3v/tg-english-coach/pkg/db"
	"github.com/smith3v/tg-english-coach/pkg/logger"
	"github.com/smith3v/tg-english-coach/pkg/server"
	"github.com/smith3v/tg-english-coach/pkg/speech"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadConfig("config.json"); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.AppConfig
	if err := logger.Configure(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	if cfg.Telegram.Token == "" || cfg.OpenAI.APIKey == "" {
		logger.Error("telegram token and openai api key are required")
		os.Exit(1)
	}

	gdb, err := db.InitDB(cfg.Database, cfg.Logging.GormLevel)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	store := db.NewStore(gdb)

	loc, err := schedule.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Schedule.Timezone, "error", err)
		os.Exit(1)
	}
	times, err := schedule.TimesFromConfig(cfg.Schedule)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}
	scheduler := schedule.New(loc)
	sessions := session.NewStore(nil)

	h := handlers.New(handlers.Options{
		Repository:       store,
		Content:          content.NewService(content.NewClient(cfg.OpenAI), cfg.OpenAI.TranslationLanguage),
		Speech:           speech.NewClient(cfg.OpenAI),
		Sessions:         sessions,
		Scheduler:        scheduler,
		Times:            times,
		Review:           cfg.Review,
		TranslationLabel: cfg.OpenAI.TranslationLanguage,
		Timeout:          time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		HTTPClient:       &http.Client{Timeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := bot.New(cfg.Telegram.Token,
		bot.WithDefaultHandler(h.Default),
		bot.WithMiddlewares(handlers.LogMiddleware),
	)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}
	h.Register(b)

	restored := schedule.Restore(ctx, store, scheduler, h.Jobs(b), times)
	logger.Info("schedules restored", "users", restored, "timezone", loc.String())

	webhookURL := strings.TrimSpace(cfg.Telegram.WebhookURL)
	var webhook http.Handler
	if webhookURL != "" {
		webhook = b.WebhookHandler()
	}
	srv := server.New(cfg.Server.Port, webhook)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Start(gctx)
		return nil
	})
	g.Go(func() error {
		sessions.StartSweeper(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		if webhookURL == "" {
			logger.Info("starting bot in polling mode")
			if _, err := b.DeleteWebhook(gctx, &bot.DeleteWebhookParams{}); err != nil {
				logger.Warn("failed to delete webhook", "error", err)
			}
			b.Start(gctx)
			return nil
		}
		url := strings.TrimRight(webhookURL, "/") + server.WebhookPath
		if _, err := b.SetWebhook(gctx, &bot.SetWebhookParams{URL: url}); err != nil {
			return err
		}
		logger.Info("starting bot in webhook mode", "url", url)
		b.StartWebhook(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("bot stopped")
}
