package engine

import (
	"context"
	"math"
	"time"

	"github.com/emberloop/ember/domain"
)

// PathProgress summarizes how far a goal's practice path has advanced.
type PathProgress struct {
	// GoalID identifies the measured goal.
	GoalID string `json:"goalId"`
	// TotalQuests and CompletedQuests count the goal's milestones.
	TotalQuests     int `json:"totalQuests"`
	CompletedQuests int `json:"completedQuests"`
	// TotalSkills and MasteredSkills count skills across every quest.
	TotalSkills    int `json:"totalSkills"`
	MasteredSkills int `json:"masteredSkills"`
	// PercentComplete is MasteredSkills over TotalSkills, rounded to the
	// nearest whole percent. Zero when no skills exist yet.
	PercentComplete int `json:"percentComplete"`
	// OnTrack is true when no scheduled drill's date has already passed.
	OnTrack bool `json:"onTrack"`
	// DaysBehind counts scheduled drills whose date is today or earlier.
	DaysBehind int `json:"daysBehind"`
	// EstimatedCompletionDate is the latest pending drill date, when any.
	EstimatedCompletionDate string `json:"estimatedCompletionDate,omitempty"`
	// AverageDifficulty is the mean user rating over rated skills, when any
	// ratings exist.
	AverageDifficulty *float64 `json:"averageDifficulty,omitempty"`
	// LastActivityAt is the most recent recorded drill outcome.
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

// GetPathProgress computes the goal's progress snapshot from its quests,
// skills, and drills.
func (e *Engine) GetPathProgress(ctx context.Context, userID, goalID string) (*PathProgress, error) {
	goal, err := e.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	p := &PathProgress{GoalID: goal.ID, OnTrack: true}

	quests, err := e.store.QuestsForGoal(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	p.TotalQuests = len(quests)
	for _, q := range quests {
		if q.Status == domain.QuestStatusCompleted {
			p.CompletedQuests++
		}
	}

	skills, err := e.store.SkillsForGoal(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	p.TotalSkills = len(skills)
	var ratingSum, ratingCount int
	for _, sk := range skills {
		if sk.Mastery == domain.MasteryMastered {
			p.MasteredSkills++
		}
		if sk.DifficultyRating != nil {
			ratingSum += *sk.DifficultyRating
			ratingCount++
		}
	}
	if p.TotalSkills > 0 {
		p.PercentComplete = int(math.Round(float64(p.MasteredSkills) / float64(p.TotalSkills) * 100))
	}
	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		p.AverageDifficulty = &avg
	}

	drills, err := e.store.DrillsForGoal(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	today := domain.Today(e.clock(), e.goalLocation(goal))
	for _, d := range drills {
		switch d.Status {
		case domain.DrillStatusScheduled, domain.DrillStatusActive:
			if d.ScheduledDate <= today {
				p.DaysBehind++
			}
			if d.ScheduledDate > p.EstimatedCompletionDate {
				p.EstimatedCompletionDate = d.ScheduledDate
			}
		}
		if d.CompletedAt != nil && (p.LastActivityAt == nil || d.CompletedAt.After(*p.LastActivityAt)) {
			t := *d.CompletedAt
			p.LastActivityAt = &t
		}
	}
	p.OnTrack = p.DaysBehind == 0
	return p, nil
}
