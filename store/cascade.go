package store

import (
	"context"

	"github.com/emberloop/ember/domain"
)

// CascadeResult reports what a cascade delete removed.
type CascadeResult struct {
	// Deleted is false when nothing belonging to the goal remained.
	Deleted bool
	// Count is the number of entities removed (goal, quests, skills,
	// drills, sparks, reminders). Index keys are not counted.
	Count int
}

// CascadeDeleteGoal deletes a goal and every descendant quest, skill, drill,
// spark, and reminder, along with their index entries.
//
// The cascade is idempotent and resumable: children go first and index sets
// are dropped only after their entities, so re-invoking after a partial
// failure collects and removes the remainder. A second call after a complete
// cascade returns Deleted=false.
func (s *Store) CascadeDeleteGoal(ctx context.Context, goalID string) (CascadeResult, error) {
	var res CascadeResult

	goalExists, err := s.kv.Exists(ctx, goalKey(goalID))
	if err != nil {
		return res, domain.WrapError(domain.KindBackend, err, "check goal %s", goalID)
	}
	var goal *domain.Goal
	if goalExists {
		goal, err = s.GetGoal(ctx, goalID)
		switch {
		case err == nil:
		case domain.IsKind(err, domain.KindIntegrity), domain.IsKind(err, domain.KindDecryption):
			// An unreadable goal must still be removable; the owner is
			// recovered from a surviving child instead.
			s.log.Warn(ctx, "cascading over unreadable goal payload", "goalId", goalID, "error", err)
			goal = nil
		case domain.IsKind(err, domain.KindNotFound):
			goal = nil
		default:
			return res, err
		}
	}

	questIDs, err := s.kv.SMembers(ctx, goalQuestsKey(goalID))
	if err != nil {
		return res, domain.WrapError(domain.KindBackend, err, "collect quests for goal %s", goalID)
	}
	skillIDs, err := s.kv.SMembers(ctx, goalSkillsKey(goalID))
	if err != nil {
		return res, domain.WrapError(domain.KindBackend, err, "collect skills for goal %s", goalID)
	}
	drills, err := s.DrillsForGoal(ctx, goalID)
	if err != nil {
		return res, err
	}

	// Establish the owner for user-index cleanup. The goal payload is
	// authoritative; after a partial cascade already dropped it, any
	// surviving drill carries the denormalized owner.
	userID := ""
	if goal != nil {
		userID = goal.OwnerUserID
	} else if len(drills) > 0 {
		userID = drills[0].UserID
	}

	// Reminders and sparks hang off drills.
	sparkIDs := make([]string, 0, len(drills))
	reminderIDs := make([]string, 0, len(drills)*4)
	sparkIndexKeys := make([]string, 0, len(drills))
	for _, d := range drills {
		if d.SparkID == "" {
			continue
		}
		sparkIDs = append(sparkIDs, d.SparkID)
		sparkIndexKeys = append(sparkIndexKeys, sparkRemindersKey(d.SparkID))
		ids, err := s.kv.SMembers(ctx, sparkRemindersKey(d.SparkID))
		if err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "collect reminders for spark %s", d.SparkID)
		}
		reminderIDs = append(reminderIDs, ids...)
	}

	if !goalExists && len(questIDs) == 0 && len(skillIDs) == 0 && len(drills) == 0 {
		return res, nil
	}

	// Reminders first: drop from the dispatch queue, then the entities,
	// then their per-spark index sets.
	if len(reminderIDs) > 0 {
		if err := s.kv.ZRem(ctx, reminderScheduleKey, reminderIDs...); err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "unschedule reminders for goal %s", goalID)
		}
		n, err := s.kv.Delete(ctx, prefixAll(reminderKeyPrefix, reminderIDs)...)
		if err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete reminders for goal %s", goalID)
		}
		res.Count += int(n)
	}
	if len(sparkIndexKeys) > 0 {
		if _, err := s.kv.Delete(ctx, sparkIndexKeys...); err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete reminder indices for goal %s", goalID)
		}
	}

	// Sparks.
	if len(sparkIDs) > 0 {
		n, err := s.kv.Delete(ctx, prefixAll(sparkKeyPrefix, sparkIDs)...)
		if err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete sparks for goal %s", goalID)
		}
		res.Count += int(n)
	}

	// Drills: entities, the per-date index keys, the expiry queue, the
	// week sets, and the user's active-drill pointer when it points here.
	if len(drills) > 0 {
		drillIDs := make([]string, 0, len(drills))
		weekKeys := make(map[string]struct{}, len(drills))
		for _, d := range drills {
			drillIDs = append(drillIDs, d.ID)
			if d.WeekPlanID != "" {
				weekKeys[weekDrillsKey(d.WeekPlanID)] = struct{}{}
			}
		}
		if err := s.kv.ZRem(ctx, drillScheduleKey, drillIDs...); err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "unschedule drills for goal %s", goalID)
		}
		n, err := s.kv.Delete(ctx, prefixAll(drillKeyPrefix, drillIDs)...)
		if err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete drills for goal %s", goalID)
		}
		res.Count += int(n)
		if userID != "" {
			current, exists, err := s.kv.Get(ctx, userActiveDrillKey(userID))
			if err != nil {
				return res, domain.WrapError(domain.KindBackend, err, "read active drill for user %s", userID)
			}
			if exists && contains(drillIDs, current) {
				if _, err := s.kv.Delete(ctx, userActiveDrillKey(userID)); err != nil {
					return res, domain.WrapError(domain.KindBackend, err, "clear active drill for user %s", userID)
				}
			}
		}
		for key := range weekKeys {
			if _, err := s.kv.Delete(ctx, key); err != nil {
				return res, domain.WrapError(domain.KindBackend, err, "delete week index %s", key)
			}
		}
	}
	dateKeys, err := s.kv.Keys(ctx, drillByDatePattern(goalID))
	if err != nil {
		return res, domain.WrapError(domain.KindBackend, err, "scan date index for goal %s", goalID)
	}
	if len(dateKeys) > 0 {
		if _, err := s.kv.Delete(ctx, dateKeys...); err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete date index for goal %s", goalID)
		}
	}

	// Skills: entities, per-quest sets, the goal set, the user set.
	if len(skillIDs) > 0 {
		n, err := s.kv.Delete(ctx, prefixAll(skillKeyPrefix, skillIDs)...)
		if err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete skills for goal %s", goalID)
		}
		res.Count += int(n)
		if userID != "" {
			if err := s.kv.SRem(ctx, userSkillsKey(userID), skillIDs...); err != nil {
				return res, domain.WrapError(domain.KindBackend, err, "unindex skills for user %s", userID)
			}
		}
	}
	for _, questID := range questIDs {
		if _, err := s.kv.Delete(ctx, questSkillsKey(questID)); err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete skill index for quest %s", questID)
		}
	}
	if _, err := s.kv.Delete(ctx, goalSkillsKey(goalID)); err != nil {
		return res, domain.WrapError(domain.KindBackend, err, "delete skill index for goal %s", goalID)
	}

	// Quests.
	if len(questIDs) > 0 {
		n, err := s.kv.Delete(ctx, prefixAll(questKeyPrefix, questIDs)...)
		if err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "delete quests for goal %s", goalID)
		}
		res.Count += int(n)
	}
	if _, err := s.kv.Delete(ctx, goalQuestsKey(goalID)); err != nil {
		return res, domain.WrapError(domain.KindBackend, err, "delete quest index for goal %s", goalID)
	}

	// The goal itself: user indices first so a crash here leaves only the
	// goal key for the next invocation.
	if userID != "" {
		if err := s.kv.SRem(ctx, userGoalsKey(userID), goalID); err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "unindex goal for user %s", userID)
		}
		if err := s.kv.SRem(ctx, userActiveGoalsKey(userID), goalID); err != nil {
			return res, domain.WrapError(domain.KindBackend, err, "unindex active goal for user %s", userID)
		}
	}
	n, err := s.kv.Delete(ctx, goalKey(goalID))
	if err != nil {
		return res, domain.WrapError(domain.KindBackend, err, "delete goal %s", goalID)
	}
	res.Count += int(n)

	res.Deleted = res.Count > 0
	s.log.Info(ctx, "cascade deleted goal", "goalId", goalID, "entities", res.Count)
	return res, nil
}

func prefixAll(prefix string, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = prefix + id
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
