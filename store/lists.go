package store

import (
	"context"
	"sort"

	"github.com/emberloop/ember/domain"
)

// UserGoals loads every goal owned by userID. Order is not significant;
// callers sort by their own criteria.
func (s *Store) UserGoals(ctx context.Context, userID string) ([]*domain.Goal, error) {
	ids, err := s.kv.SMembers(ctx, userGoalsKey(userID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list goals for user %s", userID)
	}
	return loadAll(ctx, ids, s.GetGoal)
}

// ActiveGoals loads the user's active goals via the userActiveGoals index.
// Paused-beyond-today filtering is the scheduler's concern.
func (s *Store) ActiveGoals(ctx context.Context, userID string) ([]*domain.Goal, error) {
	ids, err := s.kv.SMembers(ctx, userActiveGoalsKey(userID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list active goals for user %s", userID)
	}
	return loadAll(ctx, ids, s.GetGoal)
}

// QuestsForGoal loads a goal's quests ordered by Order, then CreatedAt, then
// ID.
func (s *Store) QuestsForGoal(ctx context.Context, goalID string) ([]*domain.Quest, error) {
	ids, err := s.kv.SMembers(ctx, goalQuestsKey(goalID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list quests for goal %s", goalID)
	}
	quests, err := loadAll(ctx, ids, s.GetQuest)
	if err != nil {
		return nil, err
	}
	sort.Slice(quests, func(i, j int) bool {
		if quests[i].Order != quests[j].Order {
			return quests[i].Order < quests[j].Order
		}
		if !quests[i].CreatedAt.Equal(quests[j].CreatedAt) {
			return quests[i].CreatedAt.Before(quests[j].CreatedAt)
		}
		return quests[i].ID < quests[j].ID
	})
	return quests, nil
}

// SkillsForQuest loads a quest's skills ordered by Order, then ID.
func (s *Store) SkillsForQuest(ctx context.Context, questID string) ([]*domain.Skill, error) {
	ids, err := s.kv.SMembers(ctx, questSkillsKey(questID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list skills for quest %s", questID)
	}
	return s.sortedSkills(ctx, ids)
}

// SkillsForGoal loads a goal's skills (across all quests) ordered by Order,
// then ID.
func (s *Store) SkillsForGoal(ctx context.Context, goalID string) ([]*domain.Skill, error) {
	ids, err := s.kv.SMembers(ctx, goalSkillsKey(goalID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list skills for goal %s", goalID)
	}
	return s.sortedSkills(ctx, ids)
}

func (s *Store) sortedSkills(ctx context.Context, ids []string) ([]*domain.Skill, error) {
	skills, err := loadAll(ctx, ids, s.GetSkill)
	if err != nil {
		return nil, err
	}
	sort.Slice(skills, func(i, j int) bool {
		if skills[i].Order != skills[j].Order {
			return skills[i].Order < skills[j].Order
		}
		return skills[i].ID < skills[j].ID
	})
	return skills, nil
}

// DrillsForWeek loads a week plan's drills ordered by DayNumber.
func (s *Store) DrillsForWeek(ctx context.Context, weekPlanID string) ([]*domain.Drill, error) {
	ids, err := s.kv.SMembers(ctx, weekDrillsKey(weekPlanID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list drills for week %s", weekPlanID)
	}
	drills, err := loadAll(ctx, ids, s.GetDrill)
	if err != nil {
		return nil, err
	}
	sort.Slice(drills, func(i, j int) bool {
		if drills[i].DayNumber != drills[j].DayNumber {
			return drills[i].DayNumber < drills[j].DayNumber
		}
		return drills[i].ID < drills[j].ID
	})
	return drills, nil
}

// DrillsForGoal loads every drill of a goal via the per-date index keys.
func (s *Store) DrillsForGoal(ctx context.Context, goalID string) ([]*domain.Drill, error) {
	keys, err := s.kv.Keys(ctx, drillByDatePattern(goalID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "scan drills for goal %s", goalID)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id, exists, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, domain.WrapError(domain.KindBackend, err, "read %s", key)
		}
		if exists {
			ids = append(ids, id)
		}
	}
	drills, err := loadAll(ctx, ids, s.GetDrill)
	if err != nil {
		return nil, err
	}
	sort.Slice(drills, func(i, j int) bool {
		if drills[i].ScheduledDate != drills[j].ScheduledDate {
			return drills[i].ScheduledDate < drills[j].ScheduledDate
		}
		return drills[i].ID < drills[j].ID
	})
	return drills, nil
}

// DrillByDate resolves the unique drill scheduled for (goal, date). Returns
// NOT_FOUND when the date is unscheduled.
func (s *Store) DrillByDate(ctx context.Context, goalID, date string) (*domain.Drill, error) {
	id, exists, err := s.kv.Get(ctx, drillByDateKey(goalID, date))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "resolve drill for goal %s on %s", goalID, date)
	}
	if !exists {
		return nil, domain.NewError(domain.KindNotFound, "no drill for goal %s on %s", goalID, date)
	}
	return s.GetDrill(ctx, id)
}

// ActiveDrillID returns the user's current active drill id, when set.
func (s *Store) ActiveDrillID(ctx context.Context, userID string) (string, bool, error) {
	id, exists, err := s.kv.Get(ctx, userActiveDrillKey(userID))
	if err != nil {
		return "", false, domain.WrapError(domain.KindBackend, err, "read active drill for user %s", userID)
	}
	return id, exists, nil
}

// RemindersForSpark loads every reminder created for a spark, any status.
func (s *Store) RemindersForSpark(ctx context.Context, sparkID string) ([]*domain.Reminder, error) {
	ids, err := s.kv.SMembers(ctx, sparkRemindersKey(sparkID))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list reminders for spark %s", sparkID)
	}
	reminders, err := loadAll(ctx, ids, s.GetReminder)
	if err != nil {
		return nil, err
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].ScheduledTime.Before(reminders[j].ScheduledTime)
	})
	return reminders, nil
}

// loadAll fetches a batch of entities by id. Entities that disappeared
// between the index read and the load (TTL lapse, concurrent cascade) are
// skipped; every other failure aborts the listing so corruption surfaces.
func loadAll[T any](ctx context.Context, ids []string, get func(context.Context, string) (*T, error)) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		entity, err := get(ctx, id)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
