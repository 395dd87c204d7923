// Package remind generates timezone-aware reminder slots for a day of
// practice and dispatches due reminders at most once each. Schedule
// generation is pure; the Dispatcher owns the I/O.
package remind

import (
	"time"

	"github.com/emberloop/ember/domain"
)

// Schedule generation defaults.
const (
	DefaultFirstHour     = 9
	DefaultLastHour      = 19
	DefaultIntervalHours = 4
	DefaultMaxPerDay     = 4
)

// Config is the per-user reminder policy.
type Config struct {
	// Enabled gates the whole schedule; disabled users get no slots.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Timezone is the IANA zone slots are anchored in.
	Timezone string `json:"timezone" yaml:"timezone"`
	// FirstHour is the earliest slot hour, 0-23.
	FirstHour int `json:"firstHour" yaml:"firstHour"`
	// LastHour is the latest slot hour, 0-23.
	LastHour int `json:"lastHour" yaml:"lastHour"`
	// IntervalHours spaces consecutive slots.
	IntervalHours int `json:"intervalHours" yaml:"intervalHours"`
	// MaxPerDay caps the slot count. The escalation ladder caps it again
	// at MaxEscalationLevel+1 regardless.
	MaxPerDay int `json:"maxPerDay" yaml:"maxPerDay"`
	// QuietDays are weekdays with no reminders at all.
	QuietDays []time.Weekday `json:"quietDays" yaml:"quietDays"`
	// ShrinkOnEscalation makes later nudges ask for less.
	ShrinkOnEscalation bool `json:"shrinkOnEscalation" yaml:"shrinkOnEscalation"`
	// Channels are the transports reminders go out on.
	Channels []domain.ReminderChannel `json:"channels" yaml:"channels"`
}

// DefaultConfig returns the stock reminder policy: four slots between 09:00
// and 19:00, shrinking as the day runs out.
func DefaultConfig(timezone string) Config {
	return Config{
		Enabled:            true,
		Timezone:           timezone,
		FirstHour:          DefaultFirstHour,
		LastHour:           DefaultLastHour,
		IntervalHours:      DefaultIntervalHours,
		MaxPerDay:          DefaultMaxPerDay,
		ShrinkOnEscalation: true,
		Channels:           []domain.ReminderChannel{domain.ChannelPush},
	}
}

// Slot is one generated reminder occasion.
type Slot struct {
	// ScheduledTime is the dispatch instant.
	ScheduledTime time.Time `json:"scheduledTime"`
	// EscalationLevel is the 0-based slot index within the day.
	EscalationLevel int `json:"escalationLevel"`
	// SparkVariant is the verbosity the spark shrinks to at this level.
	SparkVariant domain.SparkVariant `json:"sparkVariant"`
	// Tone is the nudge voice at this level.
	Tone domain.ReminderTone `json:"tone"`
}

// VariantForLevel maps an escalation level to a spark variant. Without
// shrinking every level stays full.
func VariantForLevel(level int, shrink bool) domain.SparkVariant {
	if !shrink {
		return domain.VariantFull
	}
	switch {
	case level <= 1:
		return domain.VariantFull
	case level == 2:
		return domain.VariantReduced
	default:
		return domain.VariantMinimal
	}
}

// ToneForLevel maps an escalation level to a nudge tone.
func ToneForLevel(level int) domain.ReminderTone {
	switch {
	case level == 0:
		return domain.ToneEncouraging
	case level <= 2:
		return domain.ToneGentle
	default:
		return domain.ToneLastChance
	}
}

// GenerateSchedule computes the reminder slots for one calendar date under
// cfg. Disabled configs and quiet days yield no slots. Slot hours run
// firstHour, firstHour+interval, ... while the hour stays within lastHour,
// the count stays within maxPerDay, and the escalation ladder has levels
// left.
func GenerateSchedule(date string, cfg Config) ([]Slot, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, nil
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "unknown timezone %q", cfg.Timezone)
	}
	day, err := time.ParseInLocation(domain.DateLayout, date, loc)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "date must be YYYY-MM-DD, got %q", date)
	}
	for _, quiet := range cfg.QuietDays {
		if day.Weekday() == quiet {
			return nil, nil
		}
	}
	var slots []Slot
	for hour, level := cfg.FirstHour, 0; hour <= cfg.LastHour &&
		level < cfg.MaxPerDay && level <= domain.MaxEscalationLevel; hour, level = hour+cfg.IntervalHours, level+1 {
		slots = append(slots, Slot{
			ScheduledTime:   time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc),
			EscalationLevel: level,
			SparkVariant:    VariantForLevel(level, cfg.ShrinkOnEscalation),
			Tone:            ToneForLevel(level),
		})
	}
	return slots, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.FirstHour < 0 || cfg.FirstHour > 23:
		return domain.NewError(domain.KindValidation, "firstHour must be in [0,23], got %d", cfg.FirstHour)
	case cfg.LastHour < 0 || cfg.LastHour > 23:
		return domain.NewError(domain.KindValidation, "lastHour must be in [0,23], got %d", cfg.LastHour)
	case cfg.LastHour < cfg.FirstHour:
		return domain.NewError(domain.KindValidation, "lastHour %d precedes firstHour %d", cfg.LastHour, cfg.FirstHour)
	case cfg.IntervalHours < 1:
		return domain.NewError(domain.KindValidation, "intervalHours must be >= 1, got %d", cfg.IntervalHours)
	case cfg.MaxPerDay < 0:
		return domain.NewError(domain.KindValidation, "maxPerDay must be >= 0, got %d", cfg.MaxPerDay)
	}
	return nil
}
