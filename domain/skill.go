package domain

import "time"

// SkillDifficulty tiers a skill within its quest.
type SkillDifficulty string

const (
	// DifficultyFoundation marks entry-level skills.
	DifficultyFoundation SkillDifficulty = "foundation"
	// DifficultyPractice marks core repetition skills.
	DifficultyPractice SkillDifficulty = "practice"
	// DifficultyChallenge marks stretch skills.
	DifficultyChallenge SkillDifficulty = "challenge"
)

// Mastery is the ordinal practice progression of a skill.
type Mastery string

const (
	// MasteryNotStarted indicates no recorded drill outcomes yet.
	MasteryNotStarted Mastery = "not_started"
	// MasteryPracticing indicates at least one recorded outcome below the
	// mastery bar.
	MasteryPracticing Mastery = "practicing"
	// MasteryMastered indicates the consecutive-pass threshold was reached.
	MasteryMastered Mastery = "mastered"
)

// DefaultMasteryThreshold is the number of consecutive passing drills that
// promotes a skill to mastered when no threshold is configured.
const DefaultMasteryThreshold = 3

const (
	// MinDifficultyRating and MaxDifficultyRating bound user difficulty
	// ratings attached via rateDifficulty.
	MinDifficultyRating = 1
	MaxDifficultyRating = 5
)

// Skill is a unit of practiced capability under a Quest. GoalID and UserID
// are denormalized from the owning quest's goal so lookups and ownership
// checks need no joins.
type Skill struct {
	// ID is the opaque skill identifier.
	ID string `json:"id"`
	// QuestID identifies the owning quest.
	QuestID string `json:"questId"`
	// GoalID is the owning goal, denormalized. Must agree with the quest.
	GoalID string `json:"goalId"`
	// UserID is the owning user, denormalized. Must agree with the goal.
	UserID string `json:"userId"`
	// Action is the concrete practice instruction.
	Action string `json:"action"`
	// SuccessSignal describes how the user knows the action succeeded.
	SuccessSignal string `json:"successSignal"`
	// LockedVariables are the aspects held constant across drills. At
	// least one.
	LockedVariables []string `json:"lockedVariables"`
	// EstimatedMinutes is the expected practice time. Positive.
	EstimatedMinutes int `json:"estimatedMinutes"`
	// Difficulty tiers the skill.
	Difficulty SkillDifficulty `json:"difficulty"`
	// Order positions the skill within its quest, starting at 1.
	Order int `json:"order"`
	// Mastery is the derived progression state.
	Mastery Mastery `json:"mastery"`
	// PassCount counts passing drill outcomes.
	PassCount int `json:"passCount"`
	// FailCount counts failing and partial drill outcomes.
	FailCount int `json:"failCount"`
	// ConsecutivePasses counts the current passing streak. Reset by fail
	// and partial outcomes.
	ConsecutivePasses int `json:"consecutivePasses"`
	// LastPracticedAt records the most recent scored drill outcome.
	LastPracticedAt *time.Time `json:"lastPracticedAt,omitempty"`
	// DifficultyRating is the user's opaque 1..5 rating, when given.
	DifficultyRating *int `json:"difficultyRating,omitempty"`
	// CreatedAt records creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the last mutation time.
	UpdatedAt time.Time `json:"updatedAt"`
	// Version is the monotonic per-entity counter maintained by the store.
	Version int64 `json:"version"`
}

// RecordOutcome folds a drill outcome into the skill's mastery counters.
// Pass outcomes extend the streak; fail and partial break it; skipped leaves
// the skill untouched. Mastery is recomputed against threshold (<=0 uses
// DefaultMasteryThreshold).
func (s *Skill) RecordOutcome(outcome DrillOutcome, threshold int, now time.Time) {
	if threshold <= 0 {
		threshold = DefaultMasteryThreshold
	}
	switch outcome {
	case OutcomePass:
		s.PassCount++
		s.ConsecutivePasses++
	case OutcomeFail, OutcomePartial:
		s.FailCount++
		s.ConsecutivePasses = 0
	case OutcomeSkipped:
		return
	default:
		return
	}
	s.LastPracticedAt = &now
	switch {
	case s.ConsecutivePasses >= threshold:
		s.Mastery = MasteryMastered
	case s.PassCount+s.FailCount > 0:
		s.Mastery = MasteryPracticing
	default:
		s.Mastery = MasteryNotStarted
	}
	s.UpdatedAt = now
}

// Rate attaches an opaque difficulty rating. No state transition.
func (s *Skill) Rate(rating int, now time.Time) error {
	if rating < MinDifficultyRating || rating > MaxDifficultyRating {
		return NewError(KindValidation, "difficulty rating must be in [%d,%d], got %d",
			MinDifficultyRating, MaxDifficultyRating, rating)
	}
	s.DifficultyRating = &rating
	s.UpdatedAt = now
	return nil
}

// Validate enforces the field constraints on a Skill.
func (s *Skill) Validate() error {
	switch {
	case s.ID == "":
		return NewError(KindValidation, "skill id must not be empty")
	case s.QuestID == "":
		return NewError(KindValidation, "skill questId must not be empty")
	case s.GoalID == "":
		return NewError(KindValidation, "skill goalId must not be empty")
	case s.UserID == "":
		return NewError(KindValidation, "skill userId must not be empty")
	case s.Action == "":
		return NewError(KindValidation, "skill action must not be empty")
	case s.SuccessSignal == "":
		return NewError(KindValidation, "skill successSignal must not be empty")
	case len(s.LockedVariables) < 1:
		return NewError(KindValidation, "skill requires at least one locked variable")
	case s.EstimatedMinutes <= 0:
		return NewError(KindValidation, "skill estimatedMinutes must be > 0, got %d", s.EstimatedMinutes)
	case s.Order < 1:
		return NewError(KindValidation, "skill order must be >= 1, got %d", s.Order)
	case s.ConsecutivePasses > s.PassCount+s.FailCount:
		return NewError(KindValidation, "skill consecutivePasses exceeds recorded outcomes")
	}
	switch s.Difficulty {
	case DifficultyFoundation, DifficultyPractice, DifficultyChallenge:
	default:
		return NewError(KindValidation, "unknown skill difficulty %q", s.Difficulty)
	}
	switch s.Mastery {
	case MasteryNotStarted, MasteryPracticing, MasteryMastered:
	default:
		return NewError(KindValidation, "unknown skill mastery %q", s.Mastery)
	}
	if s.DifficultyRating != nil {
		if r := *s.DifficultyRating; r < MinDifficultyRating || r > MaxDifficultyRating {
			return NewError(KindValidation, "difficulty rating must be in [%d,%d], got %d",
				MinDifficultyRating, MaxDifficultyRating, r)
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Skill) Clone() *Skill {
	if s == nil {
		return nil
	}
	dup := *s
	dup.LockedVariables = append([]string(nil), s.LockedVariables...)
	if s.LastPracticedAt != nil {
		t := *s.LastPracticedAt
		dup.LastPracticedAt = &t
	}
	if s.DifficultyRating != nil {
		r := *s.DifficultyRating
		dup.DifficultyRating = &r
	}
	return &dup
}
