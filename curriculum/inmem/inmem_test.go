package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/curriculum"
	"github.com/emberloop/ember/domain"
)

func TestPutGetRoundtrip(t *testing.T) {
	a := New()
	ctx := context.Background()

	cur := &curriculum.ResolvedCurriculum{
		ID:          "curriculum_1",
		UserID:      "user_a",
		Title:       "Go in Two Days",
		GeneratedAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, a.Put(ctx, cur))

	got, err := a.Get(ctx, "curriculum_1")
	require.NoError(t, err)
	require.Equal(t, "Go in Two Days", got.Title)

	// Mutating the returned copy does not touch the stored record.
	got.Title = "changed"
	again, err := a.Get(ctx, "curriculum_1")
	require.NoError(t, err)
	require.Equal(t, "Go in Two Days", again.Title)
}

func TestGetMissing(t *testing.T) {
	a := New()
	_, err := a.Get(context.Background(), "curriculum_missing")
	require.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestPutRequiresID(t *testing.T) {
	a := New()
	err := a.Put(context.Background(), &curriculum.ResolvedCurriculum{UserID: "user_a"})
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestListByUserNewestFirst(t *testing.T) {
	a := New()
	ctx := context.Background()
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"curriculum_1", "curriculum_2", "curriculum_3"} {
		require.NoError(t, a.Put(ctx, &curriculum.ResolvedCurriculum{
			ID:          id,
			UserID:      "user_a",
			GeneratedAt: base.AddDate(0, 0, i),
		}))
	}
	require.NoError(t, a.Put(ctx, &curriculum.ResolvedCurriculum{
		ID:          "curriculum_other",
		UserID:      "user_b",
		GeneratedAt: base,
	}))

	got, err := a.ListByUser(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "curriculum_3", got[0].ID)
	require.Equal(t, "curriculum_1", got[2].ID)
}
