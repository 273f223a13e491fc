// Package speech renders text to voice notes.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/smith3v/tg-english-coach/pkg/config"
)

// Synthesizer writes spoken audio for text to a temporary file and returns its
// path. Callers own the file and must remove it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type Client struct {
	api     *openai.Client
	model   openai.SpeechModel
	voice   openai.SpeechVoice
	timeout time.Duration
	dir     string
}

func NewClient(cfg config.OpenAIConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := openai.SpeechModel(cfg.SpeechModel)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(cfg.Voice)
	if voice == "" {
		voice = openai.VoiceAlloy
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultTimeoutSeconds * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		model:   model,
		voice:   voice,
		timeout: timeout,
	}
}

// Synthesize produces an Ogg/Opus file, the format Telegram plays as a voice note.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("nothing to synthesize")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	audio, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: openai.SpeechResponseFormatOpus,
	})
	if err != nil {
		return "", fmt.Errorf("create speech: %w", err)
	}
	defer audio.Close()

	file, err := os.CreateTemp(c.dir, "speech-*.ogg")
	if err != nil {
		return "", fmt.Errorf("create speech file: %w", err)
	}
	if _, err := io.Copy(file, audio); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("write speech file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close speech file: %w", err)
	}
	return file.Name(), nil
}
