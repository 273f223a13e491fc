package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence provider used by the bot handlers and by schedule
// restoration. Every method is safe for concurrent use.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb, now: time.Now}
}

// SaveUser inserts the chat if it is unknown and reports whether it was created.
func (s *Store) SaveUser(ctx context.Context, chatID int64) (bool, error) {
	user := User{ChatID: chatID, CreatedAt: s.now().UTC()}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "chat_id"}}, DoNothing: true}).
		Create(&user)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetAllUsers(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&User{}).Order("id ASC").Pluck("chat_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveFlashcard performs a single conditional insert keyed on (user, word), so
// concurrent saves of the same word can never produce two rows.
func (s *Store) SaveFlashcard(ctx context.Context, card *Flashcard) (SaveStatus, error) {
	if card == nil {
		return "", errors.New("nil flashcard")
	}
	card.Word = strings.TrimSpace(card.Word)
	if card.Word == "" {
		return "", errors.New("flashcard word is empty")
	}
	card.WordKey = WordKey(card.Word)
	if card.CreatedAt.IsZero() {
		card.CreatedAt = s.now().UTC()
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "word_key"}},
			DoNothing: true,
		}).
		Create(card)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return SaveSkipped, nil
	}
	return SaveInserted, nil
}

// GetFlashcards returns up to limit cards, most recent first.
func (s *Store) GetFlashcards(ctx context.Context, userID int64, limit int) ([]Flashcard, error) {
	var cards []Flashcard
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *Store) CountFlashcards(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Flashcard{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (s *Store) SaveJournal(ctx context.Context, entry *JournalEntry) error {
	if entry == nil {
		return errors.New("nil journal entry")
	}
	if time.Time(entry.EntryDate).IsZero() {
		entry.EntryDate = datatypes.Date(s.now())
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// GetRandomJournal returns nil without error when the user has no entries.
func (s *Store) GetRandomJournal(ctx context.Context, userID int64) (*JournalEntry, error) {
	var entries []JournalEntry
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("RANDOM()").
		Limit(1).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) SaveMissionCompletion(ctx context.Context, completion *MissionCompletion) error {
	if completion == nil {
		return errors.New("nil mission completion")
	}
	if completion.Status == "" {
		completion.Status = MissionStatusCompleted
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = s.now().UTC()
	}
	return s.db.WithContext(ctx).Create(completion).Error
}

func WordKey(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
