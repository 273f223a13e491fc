package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/smith3v/tg-english-coach/pkg/config"
)

// Kind identifies one of the recurring deliveries armed for every user.
type Kind string

const (
	KindWordOfDay     Kind = "wod"
	KindWeeklyMission Kind = "mission"
	KindJournalPrompt Kind = "journal"
	KindShadowing     Kind = "shadowing"
)

// Kinds lists every trigger armed per user, in arming order.
var Kinds = []Kind{KindWordOfDay, KindWeeklyMission, KindJournalPrompt, KindShadowing}

// Job delivers one kind of content to a chat.
type Job func(ctx context.Context, chatID int64)

// TriggerName is unique per user and kind, e.g. "wod_42".
func TriggerName(kind Kind, chatID int64) string {
	return fmt.Sprintf("%s_%d", kind, chatID)
}

// At is a wall-clock firing time, daily or on a single weekday.
type At struct {
	Hour    int
	Minute  int
	Weekday time.Weekday
	Weekly  bool
}

func Daily(hour, minute int) At {
	return At{Hour: hour, Minute: minute}
}

func Weekly(day time.Weekday, hour, minute int) At {
	return At{Hour: hour, Minute: minute, Weekday: day, Weekly: true}
}

// CronSpec renders the time as a five-field cron expression.
func (a At) CronSpec() string {
	if a.Weekly {
		return fmt.Sprintf("%d %d * * %d", a.Minute, a.Hour, int(a.Weekday))
	}
	return fmt.Sprintf("%d %d * * *", a.Minute, a.Hour)
}

func (a At) String() string {
	clock := fmt.Sprintf("%02d:%02d", a.Hour, a.Minute)
	if a.Weekly {
		return a.Weekday.String()[:3] + " " + clock
	}
	return clock
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseAt accepts "HH:MM" or "<weekday> HH:MM".
func ParseAt(value string) (At, error) {
	fields := strings.Fields(value)
	var at At
	switch len(fields) {
	case 1:
	case 2:
		day, ok := weekdays[strings.ToLower(fields[0])]
		if !ok {
			return At{}, fmt.Errorf("unknown weekday %q", fields[0])
		}
		at.Weekday = day
		at.Weekly = true
		fields = fields[1:]
	default:
		return At{}, fmt.Errorf("invalid schedule time %q", value)
	}

	hh, mm, ok := strings.Cut(fields[0], ":")
	if !ok {
		return At{}, fmt.Errorf("invalid clock %q", fields[0])
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return At{}, fmt.Errorf("invalid hour in %q", fields[0])
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return At{}, fmt.Errorf("invalid minute in %q", fields[0])
	}
	at.Hour = hour
	at.Minute = minute
	return at, nil
}

// Times holds the firing time of each kind.
type Times map[Kind]At

func DefaultTimes() Times {
	return Times{
		KindWordOfDay:     Daily(9, 0),
		KindWeeklyMission: Weekly(time.Monday, 9, 0),
		KindJournalPrompt: Daily(21, 0),
		KindShadowing:     Daily(22, 0),
	}
}

// TimesFromConfig parses the configured times; empty values keep the defaults.
func TimesFromConfig(cfg config.ScheduleConfig) (Times, error) {
	times := DefaultTimes()
	for kind, value := range map[Kind]string{
		KindWordOfDay:     cfg.WordOfDay,
		KindWeeklyMission: cfg.WeeklyMission,
		KindJournalPrompt: cfg.JournalPrompt,
		KindShadowing:     cfg.Shadowing,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		at, err := ParseAt(value)
		if err != nil {
			return nil, fmt.Errorf("schedule.%s: %w", kind, err)
		}
		times[kind] = at
	}
	return times, nil
}

// LoadLocation resolves the configured time zone, defaulting when empty.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		name = config.DefaultTimezone
	}
	return time.LoadLocation(name)
}

// Trigger is one registered recurring delivery for one chat.
type Trigger struct {
	Name   string
	Kind   Kind
	ChatID int64
	At     At
}

func NewTrigger(kind Kind, chatID int64, at At) Trigger {
	return Trigger{Name: TriggerName(kind, chatID), Kind: kind, ChatID: chatID, At: at}
}
