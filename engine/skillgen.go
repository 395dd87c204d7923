package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emberloop/ember/domain"
)

// SkillGenerator derives a starter skill set for a quest that has none. The
// default template generator is deterministic; an LLM-backed generator can
// implement the same interface.
type SkillGenerator interface {
	GenerateSkills(ctx context.Context, goal *domain.Goal, quest *domain.Quest) ([]*domain.Skill, error)
}

// TemplateGenerator produces a fixed foundation/practice/challenge ladder
// from the quest title. It never fails and needs no network.
type TemplateGenerator struct {
	// EstimatedMinutes is the per-skill practice estimate. Defaults to 20.
	EstimatedMinutes int
}

var _ SkillGenerator = (*TemplateGenerator)(nil)

// GenerateSkills implements SkillGenerator.
func (g *TemplateGenerator) GenerateSkills(_ context.Context, goal *domain.Goal, quest *domain.Quest) ([]*domain.Skill, error) {
	if goal == nil || quest == nil {
		return nil, domain.NewError(domain.KindValidation, "goal and quest are required")
	}
	minutes := g.EstimatedMinutes
	if minutes <= 0 {
		minutes = 20
	}
	topic := strings.TrimSpace(quest.Title)
	if topic == "" {
		topic = strings.TrimSpace(goal.Title)
	}

	tiers := []struct {
		difficulty domain.SkillDifficulty
		action     string
		signal     string
		locked     string
	}{
		{domain.DifficultyFoundation,
			fmt.Sprintf("Practice the core moves of %s", topic),
			"You can perform the basic steps without looking anything up",
			"scope"},
		{domain.DifficultyPractice,
			fmt.Sprintf("Apply %s to a small real task", topic),
			"The task is done end to end using only what you practiced",
			"task size"},
		{domain.DifficultyChallenge,
			fmt.Sprintf("Stretch %s under a constraint", topic),
			"You complete the exercise within the constraint on the first try",
			"constraint"},
	}

	now := time.Now()
	skills := make([]*domain.Skill, 0, len(tiers))
	for i, tier := range tiers {
		skills = append(skills, &domain.Skill{
			ID:               domain.NewSkillID(),
			QuestID:          quest.ID,
			GoalID:           goal.ID,
			UserID:           goal.OwnerUserID,
			Action:           tier.action,
			SuccessSignal:    tier.signal,
			LockedVariables:  []string{tier.locked},
			EstimatedMinutes: minutes,
			Difficulty:       tier.difficulty,
			Order:            i + 1,
			Mastery:          domain.MasteryNotStarted,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return skills, nil
}
