package schedule

import (
	"context"
	"fmt"

	"github.com/smith3v/tg-english-coach/pkg/logger"
)

// UserLister is the slice of the persistence layer restoration needs.
type UserLister interface {
	GetAllUsers(ctx context.Context) ([]int64, error)
}

// ArmUser registers every kind for the chat. Re-arming replaces the existing
// triggers, so repeated calls never double-fire.
func ArmUser(s *Scheduler, chatID int64, jobs map[Kind]Job, times Times) error {
	for _, kind := range Kinds {
		job, ok := jobs[kind]
		if !ok {
			return fmt.Errorf("no job for trigger kind %q", kind)
		}
		at, ok := times[kind]
		if !ok {
			return fmt.Errorf("no time for trigger kind %q", kind)
		}
		if err := s.Register(NewTrigger(kind, chatID, at), job); err != nil {
			return err
		}
	}
	return nil
}

// Restore arms every persisted user and returns how many were restored. A
// failing lister is logged and restores nobody.
func Restore(ctx context.Context, users UserLister, s *Scheduler, jobs map[Kind]Job, times Times) int {
	chatIDs, err := users.GetAllUsers(ctx)
	if err != nil {
		logger.Warn("could not restore schedules", "error", err)
		return 0
	}

	restored := 0
	for _, chatID := range chatIDs {
		if err := ArmUser(s, chatID, jobs, times); err != nil {
			logger.Error("failed to arm user triggers", "chat_id", chatID, "error", err)
			continue
		}
		restored++
	}
	logger.Info("restored schedules", "users", restored)
	return restored
}
