package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-english-coach/pkg/bot/schedule"
	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/config"
	"github.com/smith3v/tg-english-coach/pkg/content"
	"github.com/smith3v/tg-english-coach/pkg/db"
	"github.com/smith3v/tg-english-coach/pkg/internal/testutil"
	"github.com/smith3v/tg-english-coach/pkg/logger"
	"gorm.io/gorm"
)

type recordedRequest struct {
	path        string
	method      string
	contentType string
	body        []byte
}

// mockClient records Bot API calls. Responses can be overridden per API
// method, e.g. "getFile".
type mockClient struct {
	mu        sync.Mutex
	requests  []recordedRequest
	response  string
	responses map[string]string
}

func newMockClient() *mockClient {
	return &mockClient{
		response:  `{"ok":true,"result":{"message_id":1,"chat":{"id":1}}}`,
		responses: map[string]string{
			"answerCallbackQuery": `{"ok":true,"result":true}`,
		},
	}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}

	m.mu.Lock()
	m.requests = append(m.requests, recordedRequest{
		path:        req.URL.Path,
		method:      req.Method,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})
	response := m.response
	if override, ok := m.responses[apiMethod(req.URL.Path)]; ok {
		response = override
	}
	m.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(response)),
		Header:     make(http.Header),
	}, nil
}

func apiMethod(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func (m *mockClient) calls(method string) []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recordedRequest
	for _, req := range m.requests {
		if apiMethod(req.path) == method {
			out = append(out, req)
		}
	}
	return out
}

// texts returns the "text" field of every sendMessage and editMessageText
// call, in order.
func (m *mockClient) texts(t *testing.T) []string {
	t.Helper()
	m.mu.Lock()
	requests := append([]recordedRequest(nil), m.requests...)
	m.mu.Unlock()

	var out []string
	for _, req := range requests {
		switch apiMethod(req.path) {
		case "sendMessage", "editMessageText":
			out = append(out, multipartField(t, req, "text"))
		}
	}
	return out
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	texts := m.texts(t)
	if len(texts) == 0 {
		t.Fatalf("expected at least one sent message")
	}
	return texts[len(texts)-1]
}

func (m *mockClient) reset() {
	m.mu.Lock()
	m.requests = nil
	m.mu.Unlock()
}

func multipartField(t *testing.T, req recordedRequest, fieldName string) string {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data)
		}
	}
	return ""
}

func newTestTelegramBot(t *testing.T, client *mockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, chatID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{ID: chatID},
			Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
			Text: text,
		},
	}
}

func newTestVoiceUpdate(fileID string, chatID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From:  &models.User{ID: chatID},
			Chat:  models.Chat{ID: chatID, Type: models.ChatTypePrivate},
			Voice: &models.Voice{FileID: fileID},
		},
	}
}

func newTestCallbackUpdate(data string, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: chatID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID:   messageID,
					Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
				},
			},
		},
	}
}

// fakeProvider answers content tasks from a fixed table.
type fakeProvider struct {
	mu       sync.Mutex
	replies  map[content.Task]string
	errs     map[content.Task]error
	analysis string
	audioErr error
	expected []string
	audio    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		replies: map[content.Task]string{
			content.TaskLookupWord:        "Definition: A happy accident.\nTranslation: 机缘巧合\nExample: Finding that café was pure serendipity.",
			content.TaskWordOfDay:         "Word: Leverage\nDefinition: Use to maximum advantage.\nTranslation: 利用\nExample: Leverage your network.",
			content.TaskJournalPrompt:     "What surprised you today?",
			content.TaskWeeklyMission:     "Title: Coffee talk\nTask: Order coffee using three adjectives.\nTip: Smile.",
			content.TaskShadowingSentence: "Context: From The Godfather\nSentence: I'm gonna make him an offer he can't refuse.",
		},
		errs:     make(map[content.Task]error),
		analysis: "Transcription: hello\n\nScore: 90",
	}
}

func (f *fakeProvider) Generate(_ context.Context, task content.Task, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[task]; err != nil {
		return "", err
	}
	return f.replies[task], nil
}

func (f *fakeProvider) AnalyzeAudio(_ context.Context, path, expected string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expected = append(f.expected, expected)
	f.audio = append(f.audio, path)
	if f.audioErr != nil {
		return "", f.audioErr
	}
	return f.analysis, nil
}

// fakeSpeech writes a tiny file per call and remembers the paths.
type fakeSpeech struct {
	mu    sync.Mutex
	dir   string
	texts []string
	paths []string
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, fmt.Sprintf("speech-%d.ogg", len(f.paths)))
	if err := os.WriteFile(path, []byte("OggS"), 0o600); err != nil {
		return "", err
	}
	f.texts = append(f.texts, text)
	f.paths = append(f.paths, path)
	return path, nil
}

// roundTripFunc serves file downloads in tests.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

type testEnv struct {
	h         *Handlers
	client    *mockClient
	bot       *telegram.Bot
	gdb       *gorm.DB
	store     *db.Store
	provider  *fakeProvider
	speech    *fakeSpeech
	sessions  *session.Store
	scheduler *schedule.Scheduler
	downloads []string
	download  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.SetLogLevel(logger.ERROR)

	gdb := testutil.SetupTestDB(t)
	env := &testEnv{
		client:    newMockClient(),
		gdb:       gdb,
		store:     db.NewStore(gdb),
		provider:  newFakeProvider(),
		speech:    &fakeSpeech{dir: t.TempDir()},
		sessions:  session.NewStore(nil),
		scheduler: schedule.New(time.UTC),
		download:  "OggS-voice",
	}
	env.bot = newTestTelegramBot(t, env.client)
	env.h = New(Options{
		Repository:       env.store,
		Content:          content.NewService(env.provider, "Chinese"),
		Speech:           env.speech,
		Sessions:         env.sessions,
		Scheduler:        env.scheduler,
		Review:           config.ReviewConfig{FetchLimit: 50, DeckSize: 5},
		TranslationLabel: "Chinese",
		Timeout:          time.Second,
		HTTPClient: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			env.downloads = append(env.downloads, req.URL.String())
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(env.download)),
				Header:     make(http.Header),
			}, nil
		}),
	})
	return env
}

func (e *testEnv) send(text string, chatID int64) {
	e.h.Default(context.Background(), e.bot, newTestUpdate(text, chatID))
}
