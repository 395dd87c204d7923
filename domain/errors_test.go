package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := NewError(KindNotFound, "goal %q", "goal_1")
	require.True(t, IsKind(err, KindNotFound))
	require.Equal(t, KindNotFound, KindOf(err))
	require.Contains(t, err.Error(), "NOT_FOUND")

	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
	require.False(t, IsKind(nil, KindNotFound))
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindBackend, cause, "saving goal")
	require.True(t, errors.Is(err, cause))
	require.Contains(t, err.Error(), "connection refused")

	wrapped := fmt.Errorf("engine: %w", err)
	require.True(t, IsKind(wrapped, KindBackend))
}

func TestTransitionErrorMessage(t *testing.T) {
	err := NewTransitionError("goal", "completed", "pause", []string{"resume", "abandon"})
	require.Equal(t, "completed", err.CurrentState)
	require.Equal(t, []string{"abandon", "resume"}, err.AllowedEvents, "allowed events are sorted")
	require.Contains(t, err.Error(), "abandon, resume")
}

func TestRateLimitedErrorCarriesBackoff(t *testing.T) {
	err := NewRateLimitedError(1500*time.Millisecond, "provider throttled")
	require.Equal(t, 1500*time.Millisecond, err.RetryAfter)
	require.True(t, IsKind(err, KindRateLimited))
}
