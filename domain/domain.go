// Package domain defines the practice-engine entities (Goal, Quest, Skill,
// DailyDrill, Spark, Reminder), their closed state machines, and the error
// taxonomy shared by every subsystem.
//
// Entities are plain data carriers with value-returning transition methods.
// Persistence, indexing, and concurrency control live in the store package;
// the domain package owns only the rules that must hold regardless of where
// an entity is stored.
package domain

import (
	"time"
	"unicode/utf8"
)

// DateLayout is the wire format for calendar dates (drill schedules, goal
// pauses). Dates are timezone-less; the owning user's timezone decides which
// instant a date refers to.
const DateLayout = "2006-01-02"

// IndefinitePause is the sentinel pausedUntil date used when a goal is paused
// without an explicit resume date.
const IndefinitePause = "9999-12-31"

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// FormatDate renders t as YYYY-MM-DD in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// runeLen counts characters rather than bytes so length limits hold for
// non-ASCII titles and descriptions.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
