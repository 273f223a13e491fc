package handlers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/db"
)

func seedFlashcards(t *testing.T, env *testEnv, chatID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		card := &db.Flashcard{
			UserID:      chatID,
			Word:        fmt.Sprintf("word%d", i),
			Definition:  fmt.Sprintf("definition %d", i),
			Translation: fmt.Sprintf("translation %d", i),
		}
		if _, err := env.store.SaveFlashcard(context.Background(), card); err != nil {
			t.Fatalf("failed to seed flashcard: %v", err)
		}
	}
}

func (e *testEnv) press(data string, chatID int64) {
	e.h.Default(context.Background(), e.bot, newTestCallbackUpdate(data, chatID, 42))
}

func TestReviewWithoutFlashcards(t *testing.T) {
	env := newTestEnv(t)

	env.send("/review", 20)

	if got := env.client.lastMessageText(t); got != msgNoFlashcards {
		t.Fatalf("expected empty notice, got %q", got)
	}
	if got := env.sessions.Get(20).State; got != session.StateIdle {
		t.Fatalf("expected idle, got %q", got)
	}
}

func TestReviewWalkthrough(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 21
	seedFlashcards(t, env, chatID, 7)

	env.send("/review", chatID)

	mode := env.sessions.Get(chatID)
	if mode.State != session.StateShowingFront || mode.Review == nil {
		t.Fatalf("expected review on the front side, got %+v", mode)
	}
	token := mode.Review.Token
	if len(mode.Review.Deck) != 5 {
		t.Fatalf("expected a deck of 5 cards, got %d", len(mode.Review.Deck))
	}
	if !strings.Contains(env.client.lastMessageText(t), `Review \(1/5\)`) {
		t.Fatalf("unexpected first front %q", env.client.lastMessageText(t))
	}

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		word := env.sessions.Get(chatID).Review.Card().Word

		env.press(ReviewCallbackPrefix+token+":"+reviewActionReveal, chatID)
		back := env.client.lastMessageText(t)
		if !strings.Contains(back, word) || !strings.Contains(back, "definition") {
			t.Fatalf("expected back of %q, got %q", word, back)
		}
		if got := env.sessions.Get(chatID).State; got != session.StateShowingBack {
			t.Fatalf("expected back side, got %q", got)
		}

		env.press(ReviewCallbackPrefix+token+":"+reviewActionNext, chatID)
		seen[word] = true
	}

	if len(seen) != 5 {
		t.Fatalf("expected 5 distinct cards, got %d", len(seen))
	}
	if got := env.client.lastMessageText(t); got != msgReviewComplete {
		t.Fatalf("expected completion message, got %q", got)
	}
	if got := env.sessions.Get(chatID).State; got != session.StateIdle {
		t.Fatalf("expected idle after review, got %q", got)
	}
	if got := len(env.client.calls("answerCallbackQuery")); got != 10 {
		t.Fatalf("expected every press to be answered, got %d", got)
	}

	env.press(ReviewCallbackPrefix+token+":"+reviewActionReveal, chatID)
	if got := env.client.lastMessageText(t); got != msgSessionExpired {
		t.Fatalf("expected expired notice, got %q", got)
	}
}

func TestReviewSmallDeck(t *testing.T) {
	env := newTestEnv(t)
	seedFlashcards(t, env, 22, 2)

	env.send("/review", 22)

	mode := env.sessions.Get(22)
	if mode.Review == nil || len(mode.Review.Deck) != 2 {
		t.Fatalf("expected a deck of 2 cards, got %+v", mode.Review)
	}
}

func TestReviewOutOfOrderPressIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	seedFlashcards(t, env, 23, 3)
	env.send("/review", 23)
	token := env.sessions.Get(23).Review.Token
	env.client.reset()

	env.press(ReviewCallbackPrefix+token+":"+reviewActionNext, 23)

	if got := len(env.client.texts(t)); got != 0 {
		t.Fatalf("expected no messages, got %d", got)
	}
	if got := len(env.client.calls("answerCallbackQuery")); got != 1 {
		t.Fatalf("expected the press to be answered, got %d", got)
	}
	mode := env.sessions.Get(23)
	if mode.State != session.StateShowingFront || mode.Review.Cursor != 0 {
		t.Fatalf("expected untouched review, got %+v", mode)
	}
}

func TestReviewStaleTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	seedFlashcards(t, env, 24, 3)
	env.send("/review", 24)
	stale := env.sessions.Get(24).Review.Token
	env.send("/review", 24)
	fresh := env.sessions.Get(24).Review.Token
	if stale == fresh {
		t.Fatalf("expected a new token for the new review")
	}

	env.press(ReviewCallbackPrefix+stale+":"+reviewActionReveal, 24)

	if got := env.client.lastMessageText(t); got != msgSessionExpired {
		t.Fatalf("expected expired notice, got %q", got)
	}
	if got := env.sessions.Get(24).State; got != session.StateShowingFront {
		t.Fatalf("expected the new review to survive, got %q", got)
	}
}

func TestReviewReplacedByScheduledPrompt(t *testing.T) {
	env := newTestEnv(t)
	seedFlashcards(t, env, 25, 3)
	env.send("/review", 25)
	token := env.sessions.Get(25).Review.Token

	env.h.SendJournalPrompt(context.Background(), env.bot, 25)
	env.press(ReviewCallbackPrefix+token+":"+reviewActionReveal, 25)

	if got := env.client.lastMessageText(t); got != msgSessionExpired {
		t.Fatalf("expected expired notice, got %q", got)
	}
	if got := env.sessions.Get(25).State; got != session.StateAwaitingJournal {
		t.Fatalf("expected journal mode, got %q", got)
	}
}

func TestParseReviewCallback(t *testing.T) {
	token, action, ok := parseReviewCallback("rv:abc:reveal")
	if !ok || token != "abc" || action != reviewActionReveal {
		t.Fatalf("unexpected parse: %q %q %v", token, action, ok)
	}

	for _, data := range []string{"", "rv:", "rv::next", "rv:abc", "rv:abc:skip", "x:abc:next", "rv:a:b:next"} {
		if _, _, ok := parseReviewCallback(data); ok {
			t.Fatalf("expected %q to be rejected", data)
		}
	}
}
