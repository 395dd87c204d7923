package engine

import (
	"context"
	"time"

	"github.com/emberloop/ember/domain"
)

// SparkCompletion reports everything a completed spark moved.
type SparkCompletion struct {
	// Spark is the completed spark.
	Spark *domain.Spark
	// Drill is the drill the spark delivered, now completed.
	Drill *domain.Drill
	// Skill is the practiced skill with updated mastery counters.
	Skill *domain.Skill
	// RemindersCancelled counts pending reminders drained for the spark.
	RemindersCancelled int
	// SkillMastered is true when this completion crossed the mastery bar.
	SkillMastered bool
	// QuestCompleted is true when mastering the skill finished its quest.
	QuestCompleted bool
}

// MarkSparkComplete finishes a pending spark: the spark's pending reminders
// are cancelled, the underlying drill is recorded as a pass, and the skill's
// mastery counters advance. Crossing the mastery bar moves practice to the
// next skill, or the next quest when none remain.
func (e *Engine) MarkSparkComplete(ctx context.Context, userID, sparkID string) (*SparkCompletion, error) {
	spark, err := e.ownedSpark(ctx, userID, sparkID)
	if err != nil {
		return nil, err
	}
	now := e.clock()

	if err := spark.Complete(now); err != nil {
		return nil, err
	}
	spark, err = e.store.SaveSpark(ctx, spark, spark.Version)
	if err != nil {
		return nil, err
	}

	cancelled, err := e.store.CancelSparkReminders(ctx, spark.ID, now)
	if err != nil {
		return nil, err
	}

	drill, skill, err := e.completeDrill(ctx, spark.DrillID, domain.OutcomePass, "", now)
	if err != nil {
		return nil, err
	}

	res := &SparkCompletion{
		Spark:              spark,
		Drill:              drill,
		Skill:              skill,
		RemindersCancelled: cancelled,
		SkillMastered:      skill.Mastery == domain.MasteryMastered,
	}
	if res.SkillMastered {
		questDone, err := e.progressSkill(ctx, skill)
		if err != nil {
			return nil, err
		}
		res.QuestCompleted = questDone
	}
	e.metrics.IncCounter("engine.sparks_completed", 1)
	e.logger.Info(ctx, "spark completed", "sparkId", spark.ID,
		"drillId", drill.ID, "remindersCancelled", cancelled, "mastered", res.SkillMastered)
	return res, nil
}

// SkipSpark skips a pending spark and its drill. Pending reminders are
// cancelled; mastery counters are untouched.
func (e *Engine) SkipSpark(ctx context.Context, userID, sparkID string) (*domain.Spark, error) {
	spark, err := e.ownedSpark(ctx, userID, sparkID)
	if err != nil {
		return nil, err
	}
	now := e.clock()

	if err := spark.Skip(now); err != nil {
		return nil, err
	}
	spark, err = e.store.SaveSpark(ctx, spark, spark.Version)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.CancelSparkReminders(ctx, spark.ID, now); err != nil {
		return nil, err
	}

	drill, err := e.store.GetDrill(ctx, spark.DrillID)
	if err != nil {
		return nil, err
	}
	if !drill.Terminal() {
		if err := drill.Skip(now); err != nil {
			return nil, err
		}
		if _, err := e.store.SaveDrill(ctx, drill, drill.Version); err != nil {
			return nil, err
		}
	}
	e.metrics.IncCounter("engine.sparks_skipped", 1)
	return spark, nil
}

// RecordDrillOutcome records an explicit outcome for a drill. Fail and
// partial outcomes schedule a retry drill for the next day; a pass advances
// mastery the same way completing the spark does.
func (e *Engine) RecordDrillOutcome(ctx context.Context, userID, drillID string, outcome domain.DrillOutcome, observation string) (*domain.Drill, error) {
	d, err := e.store.GetDrill(ctx, drillID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, notFound("drill", drillID)
	}
	now := e.clock()

	if d.SparkID != "" {
		if sp, err := e.store.GetSpark(ctx, d.SparkID); err == nil && !sp.Terminal() {
			if err := sp.Complete(now); err == nil {
				if _, err := e.store.SaveSpark(ctx, sp, sp.Version); err != nil {
					return nil, err
				}
			}
			if _, err := e.store.CancelSparkReminders(ctx, sp.ID, now); err != nil {
				return nil, err
			}
		}
	}

	drill, skill, err := e.completeDrill(ctx, drillID, outcome, observation, now)
	if err != nil {
		return nil, err
	}
	if skill.Mastery == domain.MasteryMastered {
		if _, err := e.progressSkill(ctx, skill); err != nil {
			return nil, err
		}
	}
	e.metrics.IncCounter("engine.drills_recorded", 1)
	return drill, nil
}

// RateDifficulty attaches the user's 1..5 difficulty rating to a skill.
func (e *Engine) RateDifficulty(ctx context.Context, userID, skillID string, rating int) (*domain.Skill, error) {
	skill, err := e.store.GetSkill(ctx, skillID)
	if err != nil {
		return nil, err
	}
	if skill.UserID != userID {
		return nil, notFound("skill", skillID)
	}
	if err := skill.Rate(rating, e.clock()); err != nil {
		return nil, err
	}
	return e.store.SaveSkill(ctx, skill, skill.Version)
}

func (e *Engine) ownedSpark(ctx context.Context, userID, sparkID string) (*domain.Spark, error) {
	spark, err := e.store.GetSpark(ctx, sparkID)
	if err != nil {
		return nil, err
	}
	if spark.UserID != userID {
		return nil, notFound("spark", sparkID)
	}
	return spark, nil
}

// completeDrill records the outcome on the drill (activating it first when it
// is still scheduled), folds the outcome into the skill, and schedules a
// retry drill when the outcome was fail or partial.
func (e *Engine) completeDrill(ctx context.Context, drillID string, outcome domain.DrillOutcome, observation string, now time.Time) (*domain.Drill, *domain.Skill, error) {
	drill, err := e.store.GetDrill(ctx, drillID)
	if err != nil {
		return nil, nil, err
	}
	if drill.Status == domain.DrillStatusScheduled {
		if err := drill.Activate(now); err != nil {
			return nil, nil, err
		}
	}
	if err := drill.Record(outcome, observation, now); err != nil {
		return nil, nil, err
	}
	drill, err = e.store.SaveDrill(ctx, drill, drill.Version)
	if err != nil {
		return nil, nil, err
	}

	skill, err := e.store.GetSkill(ctx, drill.SkillID)
	if err != nil {
		return nil, nil, err
	}
	skill.RecordOutcome(outcome, e.masteryThreshold, now)
	skill, err = e.store.SaveSkill(ctx, skill, skill.Version)
	if err != nil {
		return nil, nil, err
	}

	if drill.RepeatTomorrow {
		if err := e.scheduleRetryDrill(ctx, drill, now); err != nil {
			return nil, nil, err
		}
	}
	return drill, skill, nil
}

// scheduleRetryDrill creates next-day repetition for a failed or partial
// drill. A drill already holding the next date wins; the retry is dropped.
func (e *Engine) scheduleRetryDrill(ctx context.Context, failed *domain.Drill, now time.Time) error {
	day, err := domain.ParseDate(failed.ScheduledDate)
	if err != nil {
		return domain.WrapError(domain.KindIntegrity, err, "drill %s has malformed date %q", failed.ID, failed.ScheduledDate)
	}
	retry := &domain.Drill{
		ID:               domain.NewDrillID(),
		WeekPlanID:       failed.WeekPlanID,
		SkillID:          failed.SkillID,
		UserID:           failed.UserID,
		GoalID:           failed.GoalID,
		ScheduledDate:    domain.FormatDate(day.AddDate(0, 0, 1)),
		DayNumber:        failed.DayNumber,
		Status:           domain.DrillStatusScheduled,
		Action:           failed.Action,
		PassSignal:       failed.PassSignal,
		Constraint:       failed.Constraint,
		EstimatedMinutes: failed.EstimatedMinutes,
		CarryForward:     failed.Observation,
		IsRetry:          true,
		RetryCount:       failed.RetryCount + 1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := e.store.SaveDrill(ctx, retry, 0); err != nil {
		if domain.IsKind(err, domain.KindValidation) {
			e.logger.Warn(ctx, "retry drill date already taken", "goalId", failed.GoalID, "date", retry.ScheduledDate)
			return nil
		}
		return err
	}
	e.metrics.IncCounter("engine.retry_drills", 1)
	return nil
}

// progressSkill moves practice forward after a skill is mastered: remaining
// scheduled drills of the skill are skipped to free their dates, then the
// next unmastered skill of the quest begins, or the quest completes and the
// next pending quest starts. Returns whether the quest completed.
func (e *Engine) progressSkill(ctx context.Context, skill *domain.Skill) (bool, error) {
	now := e.clock()

	goal, err := e.store.GetGoal(ctx, skill.GoalID)
	if err != nil {
		return false, err
	}

	drills, err := e.store.DrillsForGoal(ctx, skill.GoalID)
	if err != nil {
		return false, err
	}
	for _, d := range drills {
		if d.SkillID != skill.ID || d.Terminal() {
			continue
		}
		if err := d.Skip(now); err != nil {
			return false, err
		}
		if _, err := e.store.SaveDrill(ctx, d, d.Version); err != nil {
			return false, err
		}
	}

	siblings, err := e.store.SkillsForQuest(ctx, skill.QuestID)
	if err != nil {
		return false, err
	}
	for _, next := range siblings {
		if next.Order <= skill.Order || next.Mastery == domain.MasteryMastered {
			continue
		}
		return false, e.beginSkill(ctx, goal, next)
	}

	quest, err := e.store.GetQuest(ctx, skill.QuestID)
	if err != nil {
		return false, err
	}
	if err := quest.Complete(now); err != nil {
		return false, err
	}
	if _, err := e.store.SaveQuest(ctx, quest, quest.Version); err != nil {
		return false, err
	}
	e.metrics.IncCounter("engine.quests_completed", 1)
	e.logger.Info(ctx, "quest completed", "questId", quest.ID, "goalId", goal.ID)

	quests, err := e.store.QuestsForGoal(ctx, goal.ID)
	if err != nil {
		return true, err
	}
	for _, next := range quests {
		if next.Status != domain.QuestStatusPending {
			continue
		}
		if _, err := e.startQuest(ctx, goal, next); err != nil {
			return true, err
		}
		return true, nil
	}
	return true, nil
}
