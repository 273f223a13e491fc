package handlers

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/smith3v/tg-english-coach/pkg/bot/session"
)

const getFileResponse = `{"ok":true,"result":{"file_id":"voice-1","file_path":"voice/file_1.oga"}}`

func (e *testEnv) sendVoice(chatID int64) {
	e.h.Default(context.Background(), e.bot, newTestVoiceUpdate("voice-1", chatID))
}

func TestShadowingVoiceFeedback(t *testing.T) {
	env := newTestEnv(t)
	env.client.responses["getFile"] = getFileResponse

	env.send("/shadowing", 30)
	if got := env.sessions.Get(30); got.State != session.StateAwaitingShadowing || got.Expected != "I'm gonna make him an offer he can't refuse." {
		t.Fatalf("unexpected shadowing mode %+v", got)
	}
	if !strings.Contains(env.client.lastMessageText(t), "Daily Shadowing") {
		t.Fatalf("expected shadowing task, got %q", env.client.lastMessageText(t))
	}
	if got := len(env.client.calls("sendVoice")); got != 1 {
		t.Fatalf("expected the sentence to be spoken, got %d voice messages", got)
	}

	env.sendVoice(30)

	texts := env.client.texts(t)
	if texts[len(texts)-2] != msgAnalyzing {
		t.Fatalf("expected analyzing notice, got %q", texts[len(texts)-2])
	}
	last := texts[len(texts)-1]
	if !strings.HasPrefix(last, shadowingFeedbackTitle+"\n\n") || !strings.Contains(last, "Transcription: hello") {
		t.Fatalf("unexpected feedback %q", last)
	}
	if env.provider.expected[0] != "I'm gonna make him an offer he can't refuse." {
		t.Fatalf("expected sentence to be passed along, got %q", env.provider.expected[0])
	}
	if len(env.downloads) != 1 || !strings.HasSuffix(env.downloads[0], "voice/file_1.oga") {
		t.Fatalf("unexpected downloads %v", env.downloads)
	}
	if _, err := os.Stat(env.provider.audio[0]); !os.IsNotExist(err) {
		t.Fatalf("expected downloaded audio to be removed, stat err=%v", err)
	}
	if got := env.sessions.Get(30).State; got != session.StateIdle {
		t.Fatalf("expected idle after feedback, got %q", got)
	}
}

func TestVoiceWithoutShadowing(t *testing.T) {
	env := newTestEnv(t)
	env.client.responses["getFile"] = getFileResponse

	env.sendVoice(31)

	last := env.client.lastMessageText(t)
	if !strings.HasPrefix(last, voiceAnalysisTitle) {
		t.Fatalf("expected general analysis, got %q", last)
	}
	if env.provider.expected[0] != "" {
		t.Fatalf("expected no reference sentence, got %q", env.provider.expected[0])
	}
}

func TestVoiceAnalysisFailureKeepsShadowing(t *testing.T) {
	env := newTestEnv(t)
	env.client.responses["getFile"] = getFileResponse
	env.provider.audioErr = errors.New("whisper unavailable")
	env.sessions.AwaitShadowing(32, "Practice makes perfect.")

	env.sendVoice(32)

	if got := env.client.lastMessageText(t); got != msgAnalyzeFailed {
		t.Fatalf("expected failure notice, got %q", got)
	}
	mode := env.sessions.Get(32)
	if mode.State != session.StateAwaitingShadowing || mode.Expected != "Practice makes perfect." {
		t.Fatalf("expected shadowing mode to be kept, got %+v", mode)
	}
}

func TestVoiceDownloadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.client.responses["getFile"] = `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`

	env.sendVoice(33)

	if got := env.client.lastMessageText(t); got != msgAnalyzeFailed {
		t.Fatalf("expected failure notice, got %q", got)
	}
	if len(env.provider.audio) != 0 {
		t.Fatalf("expected no analysis, got %v", env.provider.audio)
	}
}

func TestLongVoiceFeedbackIsSplit(t *testing.T) {
	env := newTestEnv(t)
	env.client.responses["getFile"] = getFileResponse
	env.provider.analysis = strings.Repeat("a", 5000)

	env.sendVoice(35)

	texts := env.client.texts(t)
	if len(texts) != 3 || texts[0] != msgAnalyzing {
		t.Fatalf("expected notice plus two feedback messages, got %d", len(texts))
	}
	for i, text := range texts[1:] {
		if n := utf8.RuneCountInString(text); n > maxMessageRunes {
			t.Fatalf("message %d has %d runes", i, n)
		}
	}
	if got := texts[1] + texts[2]; got != voiceAnalysisTitle+"\n\n"+env.provider.analysis {
		t.Fatalf("feedback was not delivered intact")
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("unexpected chunks %q", got)
	}
	if got := splitMessage("", 10); len(got) != 1 || got[0] != "" {
		t.Fatalf("unexpected chunks %q", got)
	}

	got := splitMessage("first line\nsecond", 14)
	if len(got) != 2 || got[0] != "first line\n" || got[1] != "second" {
		t.Fatalf("expected split at the newline, got %q", got)
	}

	got = splitMessage(strings.Repeat("é", 25), 10)
	if len(got) != 3 || got[2] != strings.Repeat("é", 5) {
		t.Fatalf("expected rune-safe chunks, got %q", got)
	}
	for _, chunk := range got {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %q is not valid UTF-8", chunk)
		}
	}
}
