package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts the six-field form (seconds minutes hours
// day-of-month month day-of-week) used by export definitions.
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Schedule is a parsed six-field cron expression evaluated in UTC.
type Schedule struct {
	expr     string
	schedule cron.Schedule
}

// ParseSchedule parses a six-field cron expression.
func ParseSchedule(expr string) (Schedule, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Schedule{}, fmt.Errorf("schedule expression is required")
	}
	parsed, err := scheduleParser.Parse(trimmed)
	if err != nil {
		return Schedule{}, fmt.Errorf("parse schedule %q: %w", trimmed, err)
	}
	return Schedule{expr: trimmed, schedule: parsed}, nil
}

// String returns the original expression.
func (s Schedule) String() string { return s.expr }

// Next returns the first fire time strictly after t, in UTC.
func (s Schedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t.UTC())
}

// Due reports whether the schedule has a fire time after lastRun that is not
// after now. A definition that has never run is due immediately.
func (s Schedule) Due(lastRun *time.Time, now time.Time) bool {
	if lastRun == nil {
		return true
	}
	next := s.Next(*lastRun)
	return !next.After(now.UTC())
}
