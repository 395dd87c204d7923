package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/domain"
)

// seedGoalTree persists a goal with one quest, one skill, one drill, its
// spark, and two pending reminders. Returns the goal.
func seedGoalTree(t *testing.T, s *Store) *domain.Goal {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	goal := testGoal("user_a")
	_, err := s.SaveGoal(ctx, goal, 0)
	require.NoError(t, err)

	quest := &domain.Quest{
		ID:        domain.NewQuestID(),
		GoalID:    goal.ID,
		Title:     "Basics",
		Status:    domain.QuestStatusActive,
		Order:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.SaveQuest(ctx, quest, 0)
	require.NoError(t, err)

	skill := &domain.Skill{
		ID:               domain.NewSkillID(),
		QuestID:          quest.ID,
		GoalID:           goal.ID,
		UserID:           "user_a",
		Action:           "Write a for loop",
		SuccessSignal:    "Loop prints all items",
		LockedVariables:  []string{"syntax"},
		EstimatedMinutes: 20,
		Difficulty:       domain.DifficultyFoundation,
		Order:            1,
		Mastery:          domain.MasteryNotStarted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err = s.SaveSkill(ctx, skill, 0)
	require.NoError(t, err)

	drill := testDrill("user_a", goal.ID, "2025-01-15")
	drill.SkillID = skill.ID
	spark := &domain.Spark{
		ID:               domain.NewSparkID(),
		DrillID:          drill.ID,
		UserID:           "user_a",
		Status:           domain.SparkStatusPending,
		Variant:          domain.VariantFull,
		EstimatedMinutes: 20,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	drill.SparkID = spark.ID
	_, err = s.SaveDrill(ctx, drill, 0)
	require.NoError(t, err)
	_, err = s.SaveSpark(ctx, spark, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		r := testReminder(spark.ID, now.Add(time.Duration(i)*4*time.Hour))
		r.DrillID = drill.ID
		_, err = s.SaveReminder(ctx, r, 0)
		require.NoError(t, err)
	}
	return goal
}

func TestCascadeDeleteGoal(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	goal := seedGoalTree(t, s)

	res, err := s.CascadeDeleteGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, res.Deleted)
	// goal + quest + skill + drill + spark + 2 reminders
	require.Equal(t, 7, res.Count)

	_, err = s.GetGoal(ctx, goal.ID)
	require.True(t, domain.IsKind(err, domain.KindNotFound))

	goals, err := s.UserGoals(ctx, "user_a")
	require.NoError(t, err)
	require.Empty(t, goals)

	due, err := s.DueReminderIDs(ctx, time.Now().Add(24*365*time.Hour))
	require.NoError(t, err)
	require.Empty(t, due, "cascade drains the dispatch queue")

	keys, err := kv.Keys(ctx, "idx:goal:"+goal.ID+":drill:*")
	require.NoError(t, err)
	require.Empty(t, keys, "per-date index keys are removed")
}

func TestCascadeDeleteIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	goal := seedGoalTree(t, s)

	first, err := s.CascadeDeleteGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, first.Deleted)

	second, err := s.CascadeDeleteGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.False(t, second.Deleted, "second cascade is a no-op")
	require.Zero(t, second.Count)
}

func TestCascadeResumesAfterPartialFailure(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	goal := seedGoalTree(t, s)

	// Simulate a crash that removed the goal entity but left descendants.
	_, err := kv.Delete(ctx, "goal:"+goal.ID)
	require.NoError(t, err)

	res, err := s.CascadeDeleteGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, res.Deleted)
	require.Equal(t, 6, res.Count, "remainder without the goal entity")

	skills, err := s.SkillsForGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.Empty(t, skills)
}
