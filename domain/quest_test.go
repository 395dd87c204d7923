package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validQuest(order int) *Quest {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	return &Quest{
		ID:        NewQuestID(),
		GoalID:    "goal_1",
		Title:     "Basics",
		Status:    QuestStatusPending,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestQuestLifecycle(t *testing.T) {
	now := time.Now()
	q := validQuest(1)

	require.NoError(t, q.Start(now))
	require.Equal(t, QuestStatusActive, q.Status)
	require.NoError(t, q.Complete(now))
	require.True(t, q.Terminal())

	require.True(t, IsKind(q.Start(now), KindInvalidTransition))
}

func TestQuestSkipFromPendingAndActive(t *testing.T) {
	q := validQuest(1)
	require.NoError(t, q.Skip(time.Now()))
	require.Equal(t, QuestStatusSkipped, q.Status)

	q = validQuest(2)
	require.NoError(t, q.Start(time.Now()))
	require.NoError(t, q.Skip(time.Now()))
	require.Equal(t, QuestStatusSkipped, q.Status)
}

func TestQuestDemoteOnlyFromActive(t *testing.T) {
	q := validQuest(1)
	require.True(t, IsKind(q.Demote(time.Now()), KindInvalidTransition))

	require.NoError(t, q.Start(time.Now()))
	require.NoError(t, q.Demote(time.Now()))
	require.Equal(t, QuestStatusPending, q.Status)
}

func TestQuestValidate(t *testing.T) {
	q := validQuest(0)
	require.True(t, IsKind(q.Validate(), KindValidation))

	q = validQuest(1)
	q.Title = ""
	require.True(t, IsKind(q.Validate(), KindValidation))

	require.NoError(t, validQuest(3).Validate())
}
