package engine

import (
	"context"
	"time"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/remind"
)

// maxDateProbes bounds how far past already-claimed dates drill scheduling
// will search.
const maxDateProbes = 30

// QuestSeed describes one quest to create under a new goal.
type QuestSeed struct {
	// Title names the milestone.
	Title string
	// Description elaborates it.
	Description string
	// Order positions the quest; zero means position by list index.
	Order int
}

// OnGoalCreated persists the goal's quests, activates the lowest-order one,
// generates its skills, schedules the first skill's drills day by day from
// today, and creates the initial spark with its reminder ladder.
func (e *Engine) OnGoalCreated(ctx context.Context, userID, goalID string, seeds []QuestSeed) ([]*domain.Quest, error) {
	goal, err := e.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, domain.NewError(domain.KindValidation, "at least one quest is required")
	}

	now := e.clock()
	quests := make([]*domain.Quest, 0, len(seeds))
	for i, seed := range seeds {
		order := seed.Order
		if order == 0 {
			order = i + 1
		}
		q := &domain.Quest{
			ID:          domain.NewQuestID(),
			GoalID:      goal.ID,
			Title:       seed.Title,
			Description: seed.Description,
			Status:      domain.QuestStatusPending,
			Order:       order,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		saved, err := e.store.SaveQuest(ctx, q, 0)
		if err != nil {
			return nil, err
		}
		quests = append(quests, saved)
	}

	first := quests[0]
	for _, q := range quests[1:] {
		if q.Order < first.Order {
			first = q
		}
	}
	if _, err := e.startQuest(ctx, goal, first); err != nil {
		return nil, err
	}
	return quests, nil
}

// StartQuest activates a pending quest, demoting any sibling active quest of
// the same goal back to pending, and generates skills when the quest has
// none.
func (e *Engine) StartQuest(ctx context.Context, userID, questID string) (*domain.Quest, error) {
	quest, err := e.store.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	goal, err := e.store.GetGoal(ctx, quest.GoalID)
	if err != nil {
		return nil, err
	}
	if goal.OwnerUserID != userID {
		return nil, notFound("quest", questID)
	}
	return e.startQuest(ctx, goal, quest)
}

func (e *Engine) startQuest(ctx context.Context, goal *domain.Goal, quest *domain.Quest) (*domain.Quest, error) {
	now := e.clock()

	siblings, err := e.store.QuestsForGoal(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.ID == quest.ID || sib.Status != domain.QuestStatusActive {
			continue
		}
		if err := sib.Demote(now); err != nil {
			return nil, err
		}
		if _, err := e.store.SaveQuest(ctx, sib, sib.Version); err != nil {
			return nil, err
		}
	}

	if err := quest.Start(now); err != nil {
		return nil, err
	}
	quest, err = e.store.SaveQuest(ctx, quest, quest.Version)
	if err != nil {
		return nil, err
	}

	skills, err := e.store.SkillsForQuest(ctx, quest.ID)
	if err != nil {
		return nil, err
	}
	if len(skills) == 0 {
		generated, err := e.skillGen.GenerateSkills(ctx, goal, quest)
		if err != nil {
			return nil, err
		}
		skills = skills[:0]
		for _, sk := range generated {
			saved, err := e.store.SaveSkill(ctx, sk, 0)
			if err != nil {
				return nil, err
			}
			skills = append(skills, saved)
		}
	}
	if len(skills) == 0 {
		return quest, nil
	}

	if err := e.beginSkill(ctx, goal, skills[0]); err != nil {
		return nil, err
	}
	e.metrics.IncCounter("engine.quests_started", 1)
	return quest, nil
}

// beginSkill schedules the skill's drills day by day from today in the
// goal's timezone and creates the first drill's spark with its reminders.
// Dates already claimed by another drill of the goal are left alone.
func (e *Engine) beginSkill(ctx context.Context, goal *domain.Goal, skill *domain.Skill) error {
	now := e.clock()
	loc := e.goalLocation(goal)
	weekPlanID := domain.NewWeekPlanID()

	var firstDrill *domain.Drill
	created := 0
	// Claimed dates (earlier drills of the goal) are stepped over so the
	// skill still gets its full run of days.
	for offset := 0; created < e.drillDays && offset < e.drillDays+maxDateProbes; offset++ {
		date := domain.Today(now.AddDate(0, 0, offset), loc)
		drill := &domain.Drill{
			ID:               domain.NewDrillID(),
			WeekPlanID:       weekPlanID,
			SkillID:          skill.ID,
			UserID:           skill.UserID,
			GoalID:           goal.ID,
			ScheduledDate:    date,
			DayNumber:        created + 1,
			Status:           domain.DrillStatusScheduled,
			Action:           skill.Action,
			PassSignal:       skill.SuccessSignal,
			EstimatedMinutes: skill.EstimatedMinutes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		saved, err := e.store.SaveDrill(ctx, drill, 0)
		if err != nil {
			if domain.IsKind(err, domain.KindValidation) {
				continue
			}
			return err
		}
		created++
		if firstDrill == nil {
			firstDrill = saved
		}
	}
	if firstDrill == nil {
		return nil
	}

	spark, err := e.createSpark(ctx, firstDrill, now)
	if err != nil {
		return err
	}
	return e.scheduleSparkReminders(ctx, goal, firstDrill, spark, now)
}

// createSpark materializes the drill's level-0 spark and points the drill at
// it.
func (e *Engine) createSpark(ctx context.Context, drill *domain.Drill, now time.Time) (*domain.Spark, error) {
	spark := &domain.Spark{
		ID:               domain.NewSparkID(),
		DrillID:          drill.ID,
		UserID:           drill.UserID,
		Status:           domain.SparkStatusPending,
		Variant:          domain.VariantFull,
		EscalationLevel:  0,
		EstimatedMinutes: clampSparkMinutes(drill.EstimatedMinutes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	spark, err := e.store.SaveSpark(ctx, spark, 0)
	if err != nil {
		return nil, err
	}
	drill.SparkID = spark.ID
	drill.UpdatedAt = now
	if updated, err := e.store.SaveDrill(ctx, drill, drill.Version); err == nil {
		*drill = *updated
	} else if !domain.IsKind(err, domain.KindVersionConflict) {
		return nil, err
	}
	return spark, nil
}

// scheduleSparkReminders persists the reminder ladder for the spark's date.
// Slots already in the past are not created.
func (e *Engine) scheduleSparkReminders(ctx context.Context, goal *domain.Goal, drill *domain.Drill, spark *domain.Spark, now time.Time) error {
	cfg := e.reminderCfg
	if goal.Timezone != "" {
		cfg.Timezone = goal.Timezone
	}
	if cfg.Timezone == "" {
		cfg.Timezone = e.defaultTZ
	}
	slots, err := remind.GenerateSchedule(drill.ScheduledDate, cfg)
	if err != nil {
		return err
	}
	created := 0
	for _, slot := range slots {
		if !slot.ScheduledTime.After(now) {
			continue
		}
		r := &domain.Reminder{
			ID:              domain.NewReminderID(),
			UserID:          drill.UserID,
			DrillID:         drill.ID,
			SparkID:         spark.ID,
			ScheduledTime:   slot.ScheduledTime,
			EscalationLevel: slot.EscalationLevel,
			SparkVariant:    slot.SparkVariant,
			Tone:            slot.Tone,
			Status:          domain.ReminderStatusPending,
			Channels:        cfg.Channels,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := e.store.SaveReminder(ctx, r, 0); err != nil {
			return err
		}
		created++
	}
	e.metrics.IncCounter("engine.reminders_scheduled", float64(created))
	return nil
}

func clampSparkMinutes(minutes int) int {
	if minutes < domain.MinSparkMinutes {
		return domain.MinSparkMinutes
	}
	if minutes > domain.MaxSparkMinutes {
		return domain.MaxSparkMinutes
	}
	return minutes
}
