package store

import (
	"context"
	"time"

	"github.com/emberloop/ember/domain"
)

// DueReminderIDs lists reminder ids whose scheduled time is at or before
// now, in schedule order. The queue is restartable: ids stay queued until a
// terminal reminder save or RemoveScheduled drops them, so a dispatcher that
// crashes mid-batch resumes where it left off.
func (s *Store) DueReminderIDs(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.kv.ZRangeByScore(ctx, reminderScheduleKey, 0, epochMillis(now))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list due reminders")
	}
	return ids, nil
}

// RemoveScheduled drops reminder ids from the dispatch queue without touching
// the reminders themselves. Used when a queued id turns out to be terminal or
// deleted.
func (s *Store) RemoveScheduled(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.kv.ZRem(ctx, reminderScheduleKey, ids...); err != nil {
		return domain.WrapError(domain.KindBackend, err, "remove scheduled reminders")
	}
	return nil
}

// CancelSparkReminders cancels every still-pending reminder for a spark and
// removes them from the dispatch queue. Reminders that lose their status CAS
// to a concurrent dispatcher are left as the winner wrote them; cancellation
// is idempotent. Returns how many reminders this call cancelled.
func (s *Store) CancelSparkReminders(ctx context.Context, sparkID string, now time.Time) (int, error) {
	reminders, err := s.RemindersForSpark(ctx, sparkID)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, r := range reminders {
		if r.Status != domain.ReminderStatusPending {
			continue
		}
		if err := r.Cancel(now); err != nil {
			continue
		}
		if _, err := s.SaveReminder(ctx, r, r.Version); err != nil {
			if domain.IsKind(err, domain.KindVersionConflict) || domain.IsKind(err, domain.KindNotFound) {
				continue
			}
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

// LapsedDrillIDs lists non-terminal drill ids whose scheduled date (UTC
// midnight) is at or before cutoff. The dispatcher's sweep expires them.
func (s *Store) LapsedDrillIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.kv.ZRangeByScore(ctx, drillScheduleKey, 0, epochMillis(cutoff))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list lapsed drills")
	}
	return ids, nil
}

// RemoveDrillSchedule drops drill ids from the expiry queue without touching
// the drills. Used when a queued id no longer resolves.
func (s *Store) RemoveDrillSchedule(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.kv.ZRem(ctx, drillScheduleKey, ids...); err != nil {
		return domain.WrapError(domain.KindBackend, err, "remove scheduled drills")
	}
	return nil
}
