package domain

import "github.com/google/uuid"

// NewID mints an opaque, non-reusable identifier with a readable type
// prefix (e.g. "goal_7f9c...").
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewGoalID mints a goal identifier.
func NewGoalID() string { return NewID("goal") }

// NewQuestID mints a quest identifier.
func NewQuestID() string { return NewID("quest") }

// NewSkillID mints a skill identifier.
func NewSkillID() string { return NewID("skill") }

// NewDrillID mints a drill identifier.
func NewDrillID() string { return NewID("drill") }

// NewSparkID mints a spark identifier.
func NewSparkID() string { return NewID("spark") }

// NewReminderID mints a reminder identifier.
func NewReminderID() string { return NewID("reminder") }

// NewWeekPlanID mints a week-plan batch identifier.
func NewWeekPlanID() string { return NewID("week") }
