package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/store"
	"github.com/emberloop/ember/store/inmem"
)

type fixture struct {
	store *store.Store
	sched *Scheduler
	now   time.Time
}

// newFixture pins the clock to noon Eastern on 2025-01-15.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, loc)
	clock := func() time.Time { return now }

	s, err := store.New(inmem.New(inmem.WithClock(clock)), store.WithClock(clock))
	require.NoError(t, err)
	sched, err := New(s, WithClock(clock))
	require.NoError(t, err)
	return &fixture{store: s, sched: sched, now: now}
}

func (f *fixture) seedGoal(t *testing.T, userID string, priority int, tz string, createdAt time.Time) *domain.Goal {
	t.Helper()
	g := &domain.Goal{
		ID:          domain.NewGoalID(),
		OwnerUserID: userID,
		Title:       "Learn Python",
		Status:      domain.GoalStatusActive,
		Priority:    priority,
		Timezone:    tz,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	g, err := f.store.SaveGoal(context.Background(), g, 0)
	require.NoError(t, err)
	return g
}

func (f *fixture) seedDrill(t *testing.T, goal *domain.Goal, date string, sparkID string) *domain.Drill {
	t.Helper()
	created := goal.CreatedAt
	d := &domain.Drill{
		ID:               domain.NewDrillID(),
		SkillID:          domain.NewSkillID(),
		UserID:           goal.OwnerUserID,
		GoalID:           goal.ID,
		ScheduledDate:    date,
		DayNumber:        1,
		Status:           domain.DrillStatusScheduled,
		Action:           "Write a for loop",
		PassSignal:       "Loop prints all items",
		EstimatedMinutes: 20,
		SparkID:          sparkID,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	d, err := f.store.SaveDrill(context.Background(), d, 0)
	require.NoError(t, err)
	return d
}

func TestTodayForUserHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	goal := f.seedGoal(t, "user_a", 1, "America/New_York", f.now.Add(-48*time.Hour))
	drill := f.seedDrill(t, goal, "2025-01-15", "")

	today, err := f.sched.TodayForUser(ctx, "user_a")
	require.NoError(t, err)
	require.True(t, today.HasContent)
	require.Equal(t, "2025-01-15", today.Date)
	require.Equal(t, "America/New_York", today.Timezone)
	require.Equal(t, goal.ID, today.GoalID)
	require.Equal(t, drill.ID, today.Drill.ID)
	require.Equal(t, "2025-01-15", today.Drill.ScheduledDate)
	require.Equal(t, domain.DrillStatusActive, today.Drill.Status, "first sight activates the drill")

	require.NotNil(t, today.Spark)
	require.Zero(t, today.Spark.EscalationLevel)
	require.Equal(t, domain.VariantFull, today.Spark.Variant)
	require.Equal(t, domain.SparkStatusPending, today.Spark.Status)
	require.Equal(t, 20, today.Spark.EstimatedMinutes)

	// The drill now points at the materialized spark.
	got, err := f.store.GetDrill(ctx, drill.ID)
	require.NoError(t, err)
	require.Equal(t, today.Spark.ID, got.SparkID)

	// A second call reuses the pending spark.
	again, err := f.sched.TodayForUser(ctx, "user_a")
	require.NoError(t, err)
	require.Equal(t, today.Spark.ID, again.Spark.ID)
}

func TestTodayForUserNoContent(t *testing.T) {
	f := newFixture(t)
	f.seedGoal(t, "user_a", 1, "America/New_York", f.now.Add(-time.Hour))

	today, err := f.sched.TodayForUser(context.Background(), "user_a")
	require.NoError(t, err)
	require.False(t, today.HasContent)
	require.Nil(t, today.Drill)
	require.Equal(t, "2025-01-15", today.Date)
	require.Equal(t, "America/New_York", today.Timezone)
}

func TestTodayForUserNoGoalsFallsBackToDefaultTimezone(t *testing.T) {
	f := newFixture(t)

	today, err := f.sched.TodayForUser(context.Background(), "user_nobody")
	require.NoError(t, err)
	require.False(t, today.HasContent)
	require.Equal(t, DefaultTimezone, today.Timezone)
}

func TestTodayForUserPriorityOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.now.Add(-72 * time.Hour)

	low := f.seedGoal(t, "user_a", 5, "America/New_York", base)
	high := f.seedGoal(t, "user_a", 1, "America/New_York", base.Add(time.Hour))
	f.seedDrill(t, low, "2025-01-15", "")
	wantDrill := f.seedDrill(t, high, "2025-01-15", "")

	today, err := f.sched.TodayForUser(ctx, "user_a")
	require.NoError(t, err)
	require.Equal(t, high.ID, today.GoalID, "lower priority number wins")
	require.Equal(t, wantDrill.ID, today.Drill.ID)
}

func TestTodayForUserCreatedAtTieBreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.now.Add(-72 * time.Hour)

	older := f.seedGoal(t, "user_a", 1, "America/New_York", base)
	newer := f.seedGoal(t, "user_a", 1, "America/New_York", base.Add(time.Hour))
	f.seedDrill(t, newer, "2025-01-15", "")
	wantDrill := f.seedDrill(t, older, "2025-01-15", "")

	today, err := f.sched.TodayForUser(ctx, "user_a")
	require.NoError(t, err)
	require.Equal(t, older.ID, today.GoalID, "equal priority falls back to creation order")
	require.Equal(t, wantDrill.ID, today.Drill.ID)
}

func TestTodayForUserSkipsPausedGoal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.now.Add(-72 * time.Hour)

	paused := f.seedGoal(t, "user_a", 1, "America/New_York", base)
	require.NoError(t, paused.Pause("2025-02-01", f.now))
	paused, err := f.store.SaveGoal(ctx, paused, paused.Version)
	require.NoError(t, err)
	f.seedDrill(t, paused, "2025-01-15", "")

	fallback := f.seedGoal(t, "user_a", 2, "America/New_York", base)
	wantDrill := f.seedDrill(t, fallback, "2025-01-15", "")

	today, err := f.sched.TodayForUser(ctx, "user_a")
	require.NoError(t, err)
	require.Equal(t, fallback.ID, today.GoalID, "paused-beyond-today goals are skipped")
	require.Equal(t, wantDrill.ID, today.Drill.ID)
}

func TestTodayForUserLapsedPauseSchedulesAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.now.Add(-96 * time.Hour)

	goal := f.seedGoal(t, "user_a", 1, "America/New_York", base)
	require.NoError(t, goal.Pause("2025-01-10", base))
	goal, err := f.store.SaveGoal(ctx, goal, goal.Version)
	require.NoError(t, err)
	drill := f.seedDrill(t, goal, "2025-01-15", "")

	// pausedUntil lapsed five days ago; the goal schedules again without
	// an explicit resume, but stays paused at rest.
	today, err := f.sched.TodayForUser(ctx, "user_a")
	require.NoError(t, err)
	require.True(t, today.HasContent)
	require.Equal(t, drill.ID, today.Drill.ID)

	got, err := f.store.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.Equal(t, "2025-01-10", got.PausedUntil, "scheduler never clears the pause field")
}

func TestTodayForUserTimezoneBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 12:00 Eastern on the 15th is already the 16th in Tokyo.
	goal := f.seedGoal(t, "user_tokyo", 1, "Asia/Tokyo", f.now.Add(-48*time.Hour))
	f.seedDrill(t, goal, "2025-01-15", "")
	drillTomorrow := f.seedDrill(t, goal, "2025-01-16", "")

	today, err := f.sched.TodayForUser(ctx, "user_tokyo")
	require.NoError(t, err)
	require.Equal(t, "2025-01-16", today.Date)
	require.Equal(t, "Asia/Tokyo", today.Timezone)
	require.Equal(t, drillTomorrow.ID, today.Drill.ID)
}

func TestTodayForUserRequiresUserID(t *testing.T) {
	f := newFixture(t)
	_, err := f.sched.TodayForUser(context.Background(), "")
	require.True(t, domain.IsKind(err, domain.KindValidation))
}
