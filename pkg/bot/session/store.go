package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/tg-english-coach/pkg/db"
)

// State is the pending conversational expectation of a chat.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingJournal   State = "awaiting-journal"
	StateAwaitingShadowing State = "awaiting-shadowing"
	StateShowingFront      State = "showing-front"
	StateShowingBack       State = "showing-back"
)

// InReview reports whether the state belongs to a flashcard review.
func (s State) InReview() bool {
	return s == StateShowingFront || s == StateShowingBack
}

var (
	ErrNoSession         = errors.New("no active review session")
	ErrIllegalTransition = errors.New("illegal review transition")
	ErrEmptyDeck         = errors.New("review deck is empty")
)

const (
	InactivityTimeout = 24 * time.Hour
	SweeperInterval   = 10 * time.Minute
)

// Mode is a copy of a chat's state; mutating it does not affect the store.
type Mode struct {
	State     State
	Expected  string // shadowing sentence awaited in the next voice note
	Review    *Review
	UpdatedAt time.Time
}

type Review struct {
	Token  string
	Deck   []db.Flashcard
	Cursor int
}

// Card returns the card under the cursor.
func (r *Review) Card() db.Flashcard {
	return r.Deck[r.Cursor]
}

// Position is the 1-based index of the current card.
func (r *Review) Position() int {
	return r.Cursor + 1
}

func (r *Review) clone() *Review {
	if r == nil {
		return nil
	}
	return &Review{
		Token:  r.Token,
		Deck:   append([]db.Flashcard(nil), r.Deck...),
		Cursor: r.Cursor,
	}
}

// Store maps chat identity to its single active Mode. Each exported method is
// one atomic transition.
type Store struct {
	mu    sync.Mutex
	modes map[int64]*Mode
	now   func() time.Time
	token func() string
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		modes: make(map[int64]*Mode),
		now:   now,
		token: uuid.NewString,
	}
}

// Get returns the chat's mode; absent chats are idle.
func (s *Store) Get(chatID int64) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode, ok := s.modes[chatID]
	if !ok {
		return Mode{State: StateIdle}
	}
	return copyMode(mode)
}

// AwaitJournal replaces whatever the chat was waiting for.
func (s *Store) AwaitJournal(chatID int64) {
	s.set(chatID, &Mode{State: StateAwaitingJournal})
}

// AwaitShadowing records the sentence the next voice note is compared against.
func (s *Store) AwaitShadowing(chatID int64, expected string) {
	s.set(chatID, &Mode{State: StateAwaitingShadowing, Expected: expected})
}

// Consume clears the chat's mode if it is currently in state and returns the
// mode that was cleared.
func (s *Store) Consume(chatID int64, state State) (Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode, ok := s.modes[chatID]
	if !ok || mode.State != state {
		return Mode{}, false
	}
	delete(s.modes, chatID)
	return copyMode(mode), true
}

func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	delete(s.modes, chatID)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.modes)
}

// StartReview opens a new review over deck, replacing any previous mode. The
// returned review carries a fresh token so buttons of older sessions expire.
func (s *Store) StartReview(chatID int64, deck []db.Flashcard) (Review, error) {
	if len(deck) == 0 {
		return Review{}, ErrEmptyDeck
	}
	review := &Review{
		Token: s.token(),
		Deck:  append([]db.Flashcard(nil), deck...),
	}
	s.set(chatID, &Mode{State: StateShowingFront, Review: review})
	return *review.clone(), nil
}

// Reveal moves the current card from front to back.
func (s *Store) Reveal(chatID int64, token string) (Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode, err := s.reviewLocked(chatID, token)
	if err != nil {
		return Review{}, err
	}
	if mode.State != StateShowingFront {
		return Review{}, ErrIllegalTransition
	}
	mode.State = StateShowingBack
	mode.UpdatedAt = s.now()
	return *mode.Review.clone(), nil
}

// Next advances past a revealed card. done is true once the deck is exhausted,
// in which case the session has been removed.
func (s *Store) Next(chatID int64, token string) (review Review, done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode, err := s.reviewLocked(chatID, token)
	if err != nil {
		return Review{}, false, err
	}
	if mode.State != StateShowingBack {
		return Review{}, false, ErrIllegalTransition
	}
	mode.Review.Cursor++
	if mode.Review.Cursor >= len(mode.Review.Deck) {
		delete(s.modes, chatID)
		return *mode.Review.clone(), true, nil
	}
	mode.State = StateShowingFront
	mode.UpdatedAt = s.now()
	return *mode.Review.clone(), false, nil
}

func (s *Store) reviewLocked(chatID int64, token string) (*Mode, error) {
	mode, ok := s.modes[chatID]
	if !ok || !mode.State.InReview() || mode.Review == nil {
		return nil, ErrNoSession
	}
	if token != "" && mode.Review.Token != token {
		return nil, ErrNoSession
	}
	return mode, nil
}

func (s *Store) set(chatID int64, mode *Mode) {
	mode.UpdatedAt = s.now()
	s.mu.Lock()
	s.modes[chatID] = mode
	s.mu.Unlock()
}

func (s *Store) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(SweeperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepInactive(s.now())
		}
	}
}

// SweepInactive drops modes untouched for longer than InactivityTimeout.
func (s *Store) SweepInactive(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for chatID, mode := range s.modes {
		if mode == nil || now.Sub(mode.UpdatedAt) > InactivityTimeout {
			delete(s.modes, chatID)
			removed++
		}
	}
	return removed
}

// BuildDeck shuffles cards and keeps at most size of them.
func BuildDeck(cards []db.Flashcard, size int) []db.Flashcard {
	deck := append([]db.Flashcard(nil), cards...)
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	if size > 0 && len(deck) > size {
		deck = deck[:size]
	}
	return deck
}

func copyMode(mode *Mode) Mode {
	out := *mode
	out.Review = mode.Review.clone()
	return out
}
