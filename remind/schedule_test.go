package remind

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/domain"
)

func TestGenerateScheduleDefaults(t *testing.T) {
	cfg := DefaultConfig("America/New_York")
	slots, err := GenerateSchedule("2025-01-15", cfg)
	require.NoError(t, err)
	require.Len(t, slots, 3, "hours 9, 13, 17 fit; 21 exceeds lastHour")

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	for i, wantHour := range []int{9, 13, 17} {
		require.Equal(t, time.Date(2025, 1, 15, wantHour, 0, 0, 0, loc), slots[i].ScheduledTime)
		require.Equal(t, i, slots[i].EscalationLevel)
	}

	require.Equal(t, domain.VariantFull, slots[0].SparkVariant)
	require.Equal(t, domain.VariantFull, slots[1].SparkVariant)
	require.Equal(t, domain.VariantReduced, slots[2].SparkVariant)

	require.Equal(t, domain.ToneEncouraging, slots[0].Tone)
	require.Equal(t, domain.ToneGentle, slots[1].Tone)
	require.Equal(t, domain.ToneGentle, slots[2].Tone)
}

func TestGenerateScheduleSingleSlotWindow(t *testing.T) {
	cfg := DefaultConfig("UTC")
	cfg.FirstHour = 19
	cfg.LastHour = 19

	slots, err := GenerateSchedule("2025-01-15", cfg)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, 19, slots[0].ScheduledTime.Hour())
	require.Zero(t, slots[0].EscalationLevel)
}

func TestGenerateScheduleDisabled(t *testing.T) {
	cfg := DefaultConfig("UTC")
	cfg.Enabled = false
	slots, err := GenerateSchedule("2025-01-15", cfg)
	require.NoError(t, err)
	require.Empty(t, slots)
}

func TestGenerateScheduleQuietDay(t *testing.T) {
	cfg := DefaultConfig("UTC")
	cfg.QuietDays = []time.Weekday{time.Saturday, time.Sunday}

	// 2025-01-18 is a Saturday.
	slots, err := GenerateSchedule("2025-01-18", cfg)
	require.NoError(t, err)
	require.Empty(t, slots)

	// The following Monday produces a full day.
	slots, err = GenerateSchedule("2025-01-20", cfg)
	require.NoError(t, err)
	require.Len(t, slots, 3)
}

func TestGenerateScheduleEscalationLadderCap(t *testing.T) {
	cfg := DefaultConfig("UTC")
	cfg.IntervalHours = 1
	cfg.MaxPerDay = 10

	// Hours 9..19 would fit eleven slots; the ladder stops at level 3.
	slots, err := GenerateSchedule("2025-01-15", cfg)
	require.NoError(t, err)
	require.Len(t, slots, domain.MaxEscalationLevel+1)
	last := slots[len(slots)-1]
	require.Equal(t, domain.VariantMinimal, last.SparkVariant)
	require.Equal(t, domain.ToneLastChance, last.Tone)
}

func TestGenerateScheduleNoShrink(t *testing.T) {
	cfg := DefaultConfig("UTC")
	cfg.IntervalHours = 1
	cfg.ShrinkOnEscalation = false

	slots, err := GenerateSchedule("2025-01-15", cfg)
	require.NoError(t, err)
	for _, s := range slots {
		require.Equal(t, domain.VariantFull, s.SparkVariant)
	}
	require.Equal(t, domain.ToneLastChance, slots[3].Tone, "tone escalates regardless of shrink")
}

func TestGenerateScheduleValidation(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"negative firstHour": func(c *Config) { c.FirstHour = -1 },
		"firstHour past 23":  func(c *Config) { c.FirstHour = 24 },
		"lastHour past 23":   func(c *Config) { c.LastHour = 24 },
		"inverted window":    func(c *Config) { c.FirstHour = 15; c.LastHour = 9 },
		"zero interval":      func(c *Config) { c.IntervalHours = 0 },
		"negative maxPerDay": func(c *Config) { c.MaxPerDay = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig("UTC")
			mutate(&cfg)
			_, err := GenerateSchedule("2025-01-15", cfg)
			require.True(t, domain.IsKind(err, domain.KindValidation))
		})
	}

	_, err := GenerateSchedule("01/15/2025", DefaultConfig("UTC"))
	require.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = GenerateSchedule("2025-01-15", DefaultConfig("Mars/Olympus"))
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestGenerateScheduleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("slots are ordered, bounded, and inside the window", prop.ForAll(
		func(first, span, interval, maxPerDay int) bool {
			cfg := DefaultConfig("UTC")
			cfg.FirstHour = first
			cfg.LastHour = min(first+span, 23)
			cfg.IntervalHours = interval
			cfg.MaxPerDay = maxPerDay

			slots, err := GenerateSchedule("2025-06-01", cfg)
			if err != nil {
				return false
			}
			limit := maxPerDay
			if limit > domain.MaxEscalationLevel+1 {
				limit = domain.MaxEscalationLevel + 1
			}
			if len(slots) > limit {
				return false
			}
			for i, s := range slots {
				if s.EscalationLevel != i {
					return false
				}
				h := s.ScheduledTime.Hour()
				if h < cfg.FirstHour || h > cfg.LastHour {
					return false
				}
				if i > 0 && !slots[i-1].ScheduledTime.Before(s.ScheduledTime) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 23),
		gen.IntRange(0, 14),
		gen.IntRange(1, 6),
		gen.IntRange(0, 8),
	))

	properties.Property("rerunning generation is deterministic", prop.ForAll(
		func(interval int) bool {
			cfg := DefaultConfig("America/New_York")
			cfg.IntervalHours = interval
			a, errA := GenerateSchedule("2025-03-09", cfg)
			b, errB := GenerateSchedule("2025-03-09", cfg)
			if errA != nil || errB != nil {
				return false
			}
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if !a[i].ScheduledTime.Equal(b[i].ScheduledTime) || a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
