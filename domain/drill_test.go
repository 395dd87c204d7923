package domain

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func validDrill() *Drill {
	now := time.Date(2025, 1, 14, 8, 0, 0, 0, time.UTC)
	return &Drill{
		ID:               NewDrillID(),
		WeekPlanID:       NewWeekPlanID(),
		SkillID:          "skill_1",
		UserID:           "user_a",
		GoalID:           "goal_1",
		ScheduledDate:    "2025-01-15",
		DayNumber:        1,
		Status:           DrillStatusScheduled,
		Action:           "Write a for loop",
		PassSignal:       "Loop prints all items",
		EstimatedMinutes: 20,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestDrillRecordSetsCompletionFields(t *testing.T) {
	now := time.Now().UTC()
	d := validDrill()
	require.NoError(t, d.Activate(now))
	require.NoError(t, d.Record(OutcomePass, "felt easy", now))

	require.Equal(t, DrillStatusCompleted, d.Status)
	require.Equal(t, OutcomePass, d.Outcome)
	require.NotNil(t, d.CompletedAt)
	require.False(t, d.RepeatTomorrow)
	require.NoError(t, d.Validate())
}

func TestDrillRepeatTomorrowTracksOutcome(t *testing.T) {
	for outcome, want := range map[DrillOutcome]bool{
		OutcomePass:    false,
		OutcomePartial: true,
		OutcomeFail:    true,
		OutcomeSkipped: false,
	} {
		d := validDrill()
		now := time.Now()
		require.NoError(t, d.Activate(now))
		require.NoError(t, d.Record(outcome, "", now))
		require.Equal(t, want, d.RepeatTomorrow, "outcome %s", outcome)
	}
}

func TestDrillRecordRequiresActive(t *testing.T) {
	d := validDrill()
	err := d.Record(OutcomePass, "", time.Now())
	require.True(t, IsKind(err, KindInvalidTransition))
	var de *Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, string(DrillStatusScheduled), de.CurrentState)
	require.Contains(t, de.AllowedEvents, "activate")
}

func TestDrillRecordRejectsUnknownOutcome(t *testing.T) {
	d := validDrill()
	require.NoError(t, d.Activate(time.Now()))
	require.True(t, IsKind(d.Record("aced", "", time.Now()), KindValidation))
	require.Equal(t, DrillStatusActive, d.Status)
}

func TestDrillExpireAndSkip(t *testing.T) {
	d := validDrill()
	require.NoError(t, d.Expire(time.Now()))
	require.Equal(t, DrillStatusExpired, d.Status)
	require.True(t, d.Terminal())

	d = validDrill()
	require.NoError(t, d.Activate(time.Now()))
	require.NoError(t, d.Skip(time.Now()))
	require.Equal(t, DrillStatusSkipped, d.Status)

	require.True(t, IsKind(d.Expire(time.Now()), KindInvalidTransition))
}

func TestDrillValidate(t *testing.T) {
	cases := map[string]func(*Drill){
		"bad date":        func(d *Drill) { d.ScheduledDate = "15-01-2025" },
		"zero day":        func(d *Drill) { d.DayNumber = 0 },
		"zero minutes":    func(d *Drill) { d.EstimatedMinutes = 0 },
		"no action":       func(d *Drill) { d.Action = "" },
		"negative retry":  func(d *Drill) { d.RetryCount = -1 },
		"unknown status":  func(d *Drill) { d.Status = "done" },
		"unknown outcome": func(d *Drill) { d.Status = DrillStatusCompleted; d.Outcome = "meh"; d.CompletedAt = &d.CreatedAt },
		"completed bare":  func(d *Drill) { d.Status = DrillStatusCompleted },
		"repeat w/o fail": func(d *Drill) { d.RepeatTomorrow = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := validDrill()
			mutate(d)
			require.True(t, IsKind(d.Validate(), KindValidation))
		})
	}
}

// TestDrillCompletionInvariant drives random event sequences against a drill
// and checks that any drill observed in the completed state carries both an
// outcome and a completion timestamp, with repeatTomorrow derived from the
// outcome.
func TestDrillCompletionInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	type step struct {
		event   string
		outcome DrillOutcome
	}
	genStep := gen.OneConstOf(
		step{event: "activate"},
		step{event: "skip"},
		step{event: "expire"},
		step{event: "record", outcome: OutcomePass},
		step{event: "record", outcome: OutcomePartial},
		step{event: "record", outcome: OutcomeFail},
		step{event: "record", outcome: OutcomeSkipped},
	)

	properties.Property("completed drills always carry outcome and completedAt", prop.ForAll(
		func(steps []step) bool {
			d := validDrill()
			now := time.Now()
			for _, s := range steps {
				switch s.event {
				case "activate":
					_ = d.Activate(now)
				case "skip":
					_ = d.Skip(now)
				case "expire":
					_ = d.Expire(now)
				case "record":
					_ = d.Record(s.outcome, "", now)
				}
				if d.Status == DrillStatusCompleted {
					if d.Outcome == "" || d.CompletedAt == nil {
						return false
					}
					want := d.Outcome == OutcomeFail || d.Outcome == OutcomePartial
					if d.RepeatTomorrow != want {
						return false
					}
				}
			}
			return d.Validate() == nil
		},
		gen.SliceOf(genStep),
	))

	properties.TestingRun(t)
}
