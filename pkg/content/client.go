package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/smith3v/tg-english-coach/pkg/config"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

var ErrEmptyResponse = errors.New("content provider returned an empty response")

// Provider produces free text for a task and feedback for recorded speech.
type Provider interface {
	Generate(ctx context.Context, task Task, params map[string]string) (string, error)
	AnalyzeAudio(ctx context.Context, path, expected string) (string, error)
}

// Client is a Provider backed by an OpenAI-compatible API.
type Client struct {
	api                *openai.Client
	chatModel          string
	transcriptionModel string
	timeout            time.Duration
}

func NewClient(cfg config.OpenAIConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = config.DefaultChatModel
	}
	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = openai.Whisper1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultTimeoutSeconds * time.Second
	}
	return &Client{
		api:                openai.NewClientWithConfig(clientConfig),
		chatModel:          chatModel,
		transcriptionModel: transcriptionModel,
		timeout:            timeout,
	}
}

func (c *Client) Generate(ctx context.Context, task Task, params map[string]string) (string, error) {
	prompt, err := Prompt(task, params)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, prompt, 0.9)
}

// AnalyzeAudio transcribes the recording and asks for coaching feedback,
// comparing against expected when it is set.
func (c *Client) AnalyzeAudio(ctx context.Context, path, expected string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	transcription, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: path,
		Language: "en",
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	heard := strings.TrimSpace(transcription.Text)
	if heard == "" {
		return "", ErrEmptyResponse
	}

	task := TaskVoiceFeedback
	params := map[string]string{ParamTranscription: heard}
	if strings.TrimSpace(expected) != "" {
		task = TaskShadowingFeedback
		params[ParamExpected] = expected
	}
	prompt, err := Prompt(task, params)
	if err != nil {
		return "", err
	}
	feedback, err := c.chat(ctx, prompt, 0.4)
	if err != nil {
		return "", err
	}
	return "Transcription: " + heard + "\n\n" + feedback, nil
}

func (c *Client) chat(ctx context.Context, prompt string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	logger.Debug("content generated", "model", c.chatModel, "chars", len(text))
	return text, nil
}
