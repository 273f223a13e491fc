package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smith3v/tg-english-coach/pkg/logger"
)

type entry struct {
	id      cron.EntryID
	trigger Trigger
	job     Job
}

// Scheduler keeps at most one cron entry per trigger name.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]entry
	loc     *time.Location
	ctx     context.Context
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{})),
	)
	return &Scheduler{
		cron:    c,
		entries: make(map[string]entry),
		loc:     loc,
		ctx:     context.Background(),
	}
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Register adds the trigger, replacing any entry with the same name.
func (s *Scheduler) Register(trigger Trigger, job Job) error {
	if trigger.Name == "" {
		return fmt.Errorf("trigger has no name")
	}
	if job == nil {
		return fmt.Errorf("trigger %q has no job", trigger.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[trigger.Name]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, trigger.Name)
	}

	t := trigger
	id, err := s.cron.AddFunc(t.At.CronSpec(), func() {
		s.run(t.Name)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule for %q: %w", trigger.Name, err)
	}
	s.entries[trigger.Name] = entry{id: id, trigger: t, job: job}
	logger.Debug("registered trigger", "name", t.Name, "at", t.At.String())
	return nil
}

func (s *Scheduler) Unregister(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.entries[name]
	if !ok {
		return false
	}
	s.cron.Remove(old.id)
	delete(s.entries, name)
	return true
}

// Fire runs the named trigger's job immediately with its stored chat.
func (s *Scheduler) Fire(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("trigger %q is not registered", name)
	}
	e.job(ctx, e.trigger.ChatID)
	return nil
}

func (s *Scheduler) Trigger(name string) (Trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	return e.trigger, ok
}

// Len counts live cron entries.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Next reports the next firing time of the named trigger after now.
func (s *Scheduler) Next(name string, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	ce := s.cron.Entry(e.id)
	if !ce.Valid() {
		return time.Time{}, false
	}
	return ce.Schedule.Next(now.In(s.loc)), true
}

// Start runs the cron loop until ctx is cancelled. Jobs fired by the loop
// inherit ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	logger.Info("scheduler started", "triggers", s.Len(), "location", s.loc.String())
	<-ctx.Done()
	s.Stop()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) run(name string) {
	s.mu.Lock()
	e, ok := s.entries[name]
	ctx := s.ctx
	s.mu.Unlock()
	if !ok {
		return
	}
	logger.Debug("trigger fired", "name", name, "chat_id", e.trigger.ChatID)
	e.job(ctx, e.trigger.ChatID)
}

// cronLogger routes cron's internal logging through the project logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
