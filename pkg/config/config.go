package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

type Config struct {
	Database DatabaseConfig `json:"database"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	OpenAI   OpenAIConfig   `json:"openai"`
	Schedule ScheduleConfig `json:"schedule"`
	Review   ReviewConfig   `json:"review"`
	Server   ServerConfig   `json:"server"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"` // postgres (default) or sqlite
	DSN      string `json:"dsn"`    // overrides the discrete postgres fields
	Path     string `json:"path"`   // sqlite file
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type TelegramConfig struct {
	Token      string `json:"token"`
	WebhookURL string `json:"webhook_url"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

type OpenAIConfig struct {
	APIKey              string `json:"api_key"`
	BaseURL             string `json:"base_url"`
	ChatModel           string `json:"chat_model"`
	TranscriptionModel  string `json:"transcription_model"`
	SpeechModel         string `json:"speech_model"`
	Voice               string `json:"voice"`
	TranslationLanguage string `json:"translation_language"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
}

// ScheduleConfig holds trigger times as "HH:MM", optionally prefixed with a
// weekday ("Mon 09:00").
type ScheduleConfig struct {
	Timezone      string `json:"timezone"`
	WordOfDay     string `json:"word_of_day"`
	WeeklyMission string `json:"weekly_mission"`
	JournalPrompt string `json:"journal_prompt"`
	Shadowing     string `json:"shadowing"`
}

type ReviewConfig struct {
	FetchLimit int `json:"fetch_limit"`
	DeckSize   int `json:"deck_size"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

const (
	DefaultTimezone            = "America/New_York"
	DefaultChatModel           = "gpt-4o-mini"
	DefaultTranscriptionModel  = "whisper-1"
	DefaultSpeechModel         = "tts-1"
	DefaultVoice               = "alloy"
	DefaultTranslationLanguage = "Chinese"
	DefaultTimeoutSeconds      = 60
	DefaultFetchLimit          = 50
	DefaultDeckSize            = 5
	DefaultServerPort          = 8080
)

var AppConfig Config

func LoadConfig(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	var loaded Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&loaded); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to load .env file", "error", err)
	}
	applyEnv(&loaded)
	applyDefaults(&loaded)

	AppConfig = loaded
	return nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*dst = value
		}
	}
	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Telegram.WebhookURL, "WEBHOOK_URL")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Database.DSN, "DATABASE_DSN")

	if value := strings.TrimSpace(os.Getenv("PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			logger.Error("invalid PORT value", "value", value, "error", err)
		} else {
			cfg.Server.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Database.Driver) == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = DefaultChatModel
	}
	if cfg.OpenAI.TranscriptionModel == "" {
		cfg.OpenAI.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.OpenAI.SpeechModel == "" {
		cfg.OpenAI.SpeechModel = DefaultSpeechModel
	}
	if cfg.OpenAI.Voice == "" {
		cfg.OpenAI.Voice = DefaultVoice
	}
	if cfg.OpenAI.TranslationLanguage == "" {
		cfg.OpenAI.TranslationLanguage = DefaultTranslationLanguage
	}
	if cfg.OpenAI.TimeoutSeconds <= 0 {
		cfg.OpenAI.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = DefaultTimezone
	}
	if cfg.Schedule.WordOfDay == "" {
		cfg.Schedule.WordOfDay = "09:00"
	}
	if cfg.Schedule.WeeklyMission == "" {
		cfg.Schedule.WeeklyMission = "Mon 09:00"
	}
	if cfg.Schedule.JournalPrompt == "" {
		cfg.Schedule.JournalPrompt = "21:00"
	}
	if cfg.Schedule.Shadowing == "" {
		cfg.Schedule.Shadowing = "22:00"
	}
	if cfg.Review.FetchLimit <= 0 {
		cfg.Review.FetchLimit = DefaultFetchLimit
	}
	if cfg.Review.DeckSize <= 0 {
		cfg.Review.DeckSize = DefaultDeckSize
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = DefaultServerPort
	}
}
