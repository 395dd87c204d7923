package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/emberloop/ember/domain"
)

// SaveGoal persists a goal and maintains the user goal indices. A positive
// expectedVersion enforces optimistic locking. The returned goal carries the
// new stored version; the input is never mutated.
func (s *Store) SaveGoal(ctx context.Context, g *domain.Goal, expectedVersion int64) (*domain.Goal, error) {
	if g == nil {
		return nil, domain.NewError(domain.KindValidation, "goal is required")
	}
	dup := g.Clone()
	if err := dup.Validate(); err != nil {
		return nil, err
	}
	var ttl time.Duration
	if dup.Terminal() {
		ttl = s.completedGoalTTL
	}
	key := goalKey(dup.ID)
	if _, err := s.saveRaw(ctx, key, expectedVersion, ttl, func(version int64) ([]byte, error) {
		dup.Version = version
		return json.Marshal(dup)
	}); err != nil {
		return nil, err
	}

	if err := s.indexGoal(ctx, dup); err != nil {
		s.rollbackEntity(ctx, key, err)
		return nil, domain.WrapError(domain.KindBackend, err, "index goal %s", dup.ID)
	}
	return dup, nil
}

func (s *Store) indexGoal(ctx context.Context, g *domain.Goal) error {
	if err := s.kv.SAdd(ctx, userGoalsKey(g.OwnerUserID), g.ID); err != nil {
		return err
	}
	// Paused goals stay in the active index: eligibility is a date
	// comparison against pausedUntil, so a lapsed pause schedules again
	// without an explicit resume. Only terminal goals leave the index.
	if g.Terminal() {
		return s.kv.SRem(ctx, userActiveGoalsKey(g.OwnerUserID), g.ID)
	}
	return s.kv.SAdd(ctx, userActiveGoalsKey(g.OwnerUserID), g.ID)
}

// GetGoal loads a goal by id.
func (s *Store) GetGoal(ctx context.Context, id string) (*domain.Goal, error) {
	plaintext, env, err := s.getRaw(ctx, goalKey(id))
	if err != nil {
		return nil, err
	}
	return loadInto(plaintext, env, func(g *domain.Goal, v int64) { g.Version = v })
}

// SaveQuest persists a quest and indexes it under its goal.
func (s *Store) SaveQuest(ctx context.Context, q *domain.Quest, expectedVersion int64) (*domain.Quest, error) {
	if q == nil {
		return nil, domain.NewError(domain.KindValidation, "quest is required")
	}
	dup := q.Clone()
	if err := dup.Validate(); err != nil {
		return nil, err
	}
	key := questKey(dup.ID)
	if _, err := s.saveRaw(ctx, key, expectedVersion, 0, func(version int64) ([]byte, error) {
		dup.Version = version
		return json.Marshal(dup)
	}); err != nil {
		return nil, err
	}
	if err := s.kv.SAdd(ctx, goalQuestsKey(dup.GoalID), dup.ID); err != nil {
		s.rollbackEntity(ctx, key, err)
		return nil, domain.WrapError(domain.KindBackend, err, "index quest %s", dup.ID)
	}
	return dup, nil
}

// GetQuest loads a quest by id.
func (s *Store) GetQuest(ctx context.Context, id string) (*domain.Quest, error) {
	plaintext, env, err := s.getRaw(ctx, questKey(id))
	if err != nil {
		return nil, err
	}
	return loadInto(plaintext, env, func(q *domain.Quest, v int64) { q.Version = v })
}

// SaveSkill persists a skill and maintains the quest, goal, and user skill
// indices.
func (s *Store) SaveSkill(ctx context.Context, sk *domain.Skill, expectedVersion int64) (*domain.Skill, error) {
	if sk == nil {
		return nil, domain.NewError(domain.KindValidation, "skill is required")
	}
	dup := sk.Clone()
	if err := dup.Validate(); err != nil {
		return nil, err
	}
	key := skillKey(dup.ID)
	if _, err := s.saveRaw(ctx, key, expectedVersion, 0, func(version int64) ([]byte, error) {
		dup.Version = version
		return json.Marshal(dup)
	}); err != nil {
		return nil, err
	}
	if err := s.indexSkill(ctx, dup); err != nil {
		s.rollbackEntity(ctx, key, err)
		return nil, domain.WrapError(domain.KindBackend, err, "index skill %s", dup.ID)
	}
	return dup, nil
}

func (s *Store) indexSkill(ctx context.Context, sk *domain.Skill) error {
	if err := s.kv.SAdd(ctx, questSkillsKey(sk.QuestID), sk.ID); err != nil {
		return err
	}
	if err := s.kv.SAdd(ctx, goalSkillsKey(sk.GoalID), sk.ID); err != nil {
		return err
	}
	return s.kv.SAdd(ctx, userSkillsKey(sk.UserID), sk.ID)
}

// GetSkill loads a skill by id.
func (s *Store) GetSkill(ctx context.Context, id string) (*domain.Skill, error) {
	plaintext, env, err := s.getRaw(ctx, skillKey(id))
	if err != nil {
		return nil, err
	}
	return loadInto(plaintext, env, func(sk *domain.Skill, v int64) { sk.Version = v })
}

// SaveDrill persists a drill and maintains the week, date, and active-drill
// indices. Creating a second drill for the same (goal, date) fails with
// VALIDATION_ERROR; the date index is claimed atomically.
func (s *Store) SaveDrill(ctx context.Context, d *domain.Drill, expectedVersion int64) (*domain.Drill, error) {
	if d == nil {
		return nil, domain.NewError(domain.KindValidation, "drill is required")
	}
	dup := d.Clone()
	if err := dup.Validate(); err != nil {
		return nil, err
	}
	key := drillKey(dup.ID)
	version, err := s.saveRaw(ctx, key, expectedVersion, 0, func(version int64) ([]byte, error) {
		dup.Version = version
		return json.Marshal(dup)
	})
	if err != nil {
		return nil, err
	}

	if version == 1 {
		// Claim the (goal, date) slot. Losing the claim means another
		// drill already owns the date. Drills never move dates; retries
		// create new drills on new dates.
		dateKey := drillByDateKey(dup.GoalID, dup.ScheduledDate)
		ok, err := s.kv.SetNX(ctx, dateKey, dup.ID, 0)
		if err != nil {
			s.rollbackEntity(ctx, key, err)
			return nil, domain.WrapError(domain.KindBackend, err, "claim drill date %s", dateKey)
		}
		if !ok {
			current, _, err := s.kv.Get(ctx, dateKey)
			if err != nil {
				s.rollbackEntity(ctx, key, err)
				return nil, domain.WrapError(domain.KindBackend, err, "verify drill date claim %s", dateKey)
			}
			if current != dup.ID {
				s.rollbackEntity(ctx, key, nil)
				return nil, domain.NewError(domain.KindValidation,
					"goal %s already has a drill on %s", dup.GoalID, dup.ScheduledDate)
			}
		}
	}

	if err := s.indexDrill(ctx, dup); err != nil {
		s.rollbackEntity(ctx, key, err)
		return nil, domain.WrapError(domain.KindBackend, err, "index drill %s", dup.ID)
	}
	return dup, nil
}

func (s *Store) indexDrill(ctx context.Context, d *domain.Drill) error {
	if d.WeekPlanID != "" {
		if err := s.kv.SAdd(ctx, weekDrillsKey(d.WeekPlanID), d.ID); err != nil {
			return err
		}
	}
	if d.Terminal() {
		if err := s.kv.ZRem(ctx, drillScheduleKey, d.ID); err != nil {
			return err
		}
	} else if err := s.kv.ZAdd(ctx, drillScheduleKey, dateEpochMillis(d.ScheduledDate), d.ID); err != nil {
		return err
	}
	activeKey := userActiveDrillKey(d.UserID)
	if d.Status == domain.DrillStatusActive {
		return s.kv.Set(ctx, activeKey, d.ID, 0)
	}
	if d.Terminal() {
		current, exists, err := s.kv.Get(ctx, activeKey)
		if err != nil {
			return err
		}
		if exists && current == d.ID {
			if _, err := s.kv.Delete(ctx, activeKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetDrill loads a drill by id.
func (s *Store) GetDrill(ctx context.Context, id string) (*domain.Drill, error) {
	plaintext, env, err := s.getRaw(ctx, drillKey(id))
	if err != nil {
		return nil, err
	}
	return loadInto(plaintext, env, func(d *domain.Drill, v int64) { d.Version = v })
}

// SaveSpark persists a spark. The owning drill's spark pointer is the only
// index; the engine maintains it on the drill itself.
func (s *Store) SaveSpark(ctx context.Context, sp *domain.Spark, expectedVersion int64) (*domain.Spark, error) {
	if sp == nil {
		return nil, domain.NewError(domain.KindValidation, "spark is required")
	}
	dup := sp.Clone()
	if err := dup.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.saveRaw(ctx, sparkKey(dup.ID), expectedVersion, 0, func(version int64) ([]byte, error) {
		dup.Version = version
		return json.Marshal(dup)
	}); err != nil {
		return nil, err
	}
	return dup, nil
}

// GetSpark loads a spark by id.
func (s *Store) GetSpark(ctx context.Context, id string) (*domain.Spark, error) {
	plaintext, env, err := s.getRaw(ctx, sparkKey(id))
	if err != nil {
		return nil, err
	}
	return loadInto(plaintext, env, func(sp *domain.Spark, v int64) { sp.Version = v })
}

// SaveReminder persists a reminder, indexes it under its spark, and keeps the
// dispatch queue in sync: pending reminders are scored into the schedule by
// epoch milliseconds, terminal ones are removed and stamped with the expiry
// TTL.
func (s *Store) SaveReminder(ctx context.Context, r *domain.Reminder, expectedVersion int64) (*domain.Reminder, error) {
	if r == nil {
		return nil, domain.NewError(domain.KindValidation, "reminder is required")
	}
	dup := r.Clone()
	if err := dup.Validate(); err != nil {
		return nil, err
	}
	var ttl time.Duration
	if dup.Terminal() {
		ttl = s.expiredReminderTTL
	}
	key := reminderKey(dup.ID)
	if _, err := s.saveRaw(ctx, key, expectedVersion, ttl, func(version int64) ([]byte, error) {
		dup.Version = version
		return json.Marshal(dup)
	}); err != nil {
		return nil, err
	}

	if err := s.indexReminder(ctx, dup); err != nil {
		s.rollbackEntity(ctx, key, err)
		return nil, domain.WrapError(domain.KindBackend, err, "index reminder %s", dup.ID)
	}
	return dup, nil
}

func (s *Store) indexReminder(ctx context.Context, r *domain.Reminder) error {
	if err := s.kv.SAdd(ctx, sparkRemindersKey(r.SparkID), r.ID); err != nil {
		return err
	}
	if r.Status == domain.ReminderStatusPending {
		return s.kv.ZAdd(ctx, reminderScheduleKey, epochMillis(r.ScheduledTime), r.ID)
	}
	return s.kv.ZRem(ctx, reminderScheduleKey, r.ID)
}

// GetReminder loads a reminder by id.
func (s *Store) GetReminder(ctx context.Context, id string) (*domain.Reminder, error) {
	plaintext, env, err := s.getRaw(ctx, reminderKey(id))
	if err != nil {
		return nil, err
	}
	return loadInto(plaintext, env, func(r *domain.Reminder, v int64) { r.Version = v })
}

func epochMillis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// dateEpochMillis scores a YYYY-MM-DD date at UTC midnight. Callers that
// compare against it build their cutoffs the same way.
func dateEpochMillis(date string) float64 {
	t, err := domain.ParseDate(date)
	if err != nil {
		return 0
	}
	return float64(t.UTC().UnixMilli())
}
