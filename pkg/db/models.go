// pkg/db/models.go
package db

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"not null;uniqueIndex"` // equals the Telegram user id in private chats
	CreatedAt time.Time
}

type Flashcard struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      int64     `gorm:"not null;index;uniqueIndex:idx_flashcard_user_word"`
	Word        string    `gorm:"not null"`
	WordKey     string    `gorm:"not null;uniqueIndex:idx_flashcard_user_word"` // lower-cased Word
	Definition  string    `gorm:"not null;default:''"`
	Translation string    `gorm:"not null;default:''"`
	Example     string    `gorm:"not null;default:''"`
	CreatedAt   time.Time `gorm:"index"`
}

type JournalEntry struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    int64          `gorm:"not null;index"`
	EntryDate datatypes.Date `gorm:"not null"`
	Entry     string         `gorm:"not null"`
	CreatedAt time.Time
}

type MissionCompletion struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      int64     `gorm:"not null;index"`
	Status      string    `gorm:"not null;default:completed"`
	CompletedAt time.Time `gorm:"not null"`
}

const MissionStatusCompleted = "completed"

// SaveStatus tells an inserted flashcard apart from a duplicate.
type SaveStatus string

const (
	SaveInserted SaveStatus = "inserted"
	SaveSkipped  SaveStatus = "skipped"
)

// Models lists every table migrated by InitDB.
func Models() []any {
	return []any{&User{}, &Flashcard{}, &JournalEntry{}, &MissionCompletion{}}
}
