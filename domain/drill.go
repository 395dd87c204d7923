package domain

import "time"

// DrillStatus is the lifecycle state of a DailyDrill.
type DrillStatus string

const (
	// DrillStatusScheduled indicates the drill waits for its date.
	DrillStatusScheduled DrillStatus = "scheduled"
	// DrillStatusActive indicates the drill is the user's current practice.
	DrillStatusActive DrillStatus = "active"
	// DrillStatusCompleted indicates an outcome was recorded. Terminal.
	DrillStatusCompleted DrillStatus = "completed"
	// DrillStatusSkipped indicates the drill was deliberately passed over.
	// Terminal.
	DrillStatusSkipped DrillStatus = "skipped"
	// DrillStatusExpired indicates the drill's date lapsed with no outcome.
	// Terminal.
	DrillStatusExpired DrillStatus = "expired"
)

// DrillOutcome scores a completed drill.
type DrillOutcome string

const (
	// OutcomePass indicates the success signal was met.
	OutcomePass DrillOutcome = "pass"
	// OutcomePartial indicates incomplete success. Counts as a fail for
	// mastery and sets RepeatTomorrow.
	OutcomePartial DrillOutcome = "partial"
	// OutcomeFail indicates the success signal was not met.
	OutcomeFail DrillOutcome = "fail"
	// OutcomeSkipped indicates the user declined the drill. No mastery
	// update.
	OutcomeSkipped DrillOutcome = "skipped"
)

// Drill is one scheduled day of practice for a Skill. UserID and GoalID are
// denormalized for ownership checks and date indexing.
type Drill struct {
	// ID is the opaque drill identifier.
	ID string `json:"id"`
	// WeekPlanID groups the drill with its generation batch.
	WeekPlanID string `json:"weekPlanId,omitempty"`
	// SkillID identifies the practiced skill.
	SkillID string `json:"skillId"`
	// UserID is the owning user, denormalized.
	UserID string `json:"userId"`
	// GoalID is the owning goal, denormalized.
	GoalID string `json:"goalId"`
	// ScheduledDate is the YYYY-MM-DD practice date in the goal's timezone.
	// At most one drill exists per (goal, date).
	ScheduledDate string `json:"scheduledDate"`
	// DayNumber is the 1-based position within the generation batch.
	DayNumber int `json:"dayNumber"`
	// Status is the lifecycle state.
	Status DrillStatus `json:"status"`
	// Action is the concrete instruction for the day.
	Action string `json:"action"`
	// PassSignal tells the user how to judge success.
	PassSignal string `json:"passSignal"`
	// Constraint narrows the day's practice (e.g. "without autocomplete").
	Constraint string `json:"constraint,omitempty"`
	// EstimatedMinutes is the expected practice time. Positive.
	EstimatedMinutes int `json:"estimatedMinutes"`
	// Outcome is set when the drill completes.
	Outcome DrillOutcome `json:"outcome,omitempty"`
	// Observation is the user's note recorded with the outcome.
	Observation string `json:"observation,omitempty"`
	// CarryForward is guidance carried into the next drill.
	CarryForward string `json:"carryForward,omitempty"`
	// IsRetry marks drills created to repeat a failed or partial day.
	IsRetry bool `json:"isRetry,omitempty"`
	// RetryCount is how many retries preceded this drill.
	RetryCount int `json:"retryCount,omitempty"`
	// RepeatTomorrow is derived on completion: true iff the outcome was
	// fail or partial.
	RepeatTomorrow bool `json:"repeatTomorrow,omitempty"`
	// CompletedAt is set when an outcome is recorded.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	// SparkID points at the drill's current spark, when one exists.
	SparkID string `json:"sparkId,omitempty"`
	// CreatedAt records creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the last mutation time.
	UpdatedAt time.Time `json:"updatedAt"`
	// Version is the monotonic per-entity counter maintained by the store.
	Version int64 `json:"version"`
}

// Activate marks a scheduled drill as the user's current practice.
func (d *Drill) Activate(now time.Time) error {
	if d.Status != DrillStatusScheduled {
		return NewTransitionError("drill", string(d.Status), "activate", drillAllowedEvents(d.Status))
	}
	d.Status = DrillStatusActive
	d.UpdatedAt = now
	return nil
}

// Record completes an active drill with the given outcome. It sets Outcome,
// CompletedAt, and RepeatTomorrow (true iff fail or partial).
func (d *Drill) Record(outcome DrillOutcome, observation string, now time.Time) error {
	switch outcome {
	case OutcomePass, OutcomePartial, OutcomeFail, OutcomeSkipped:
	default:
		return NewError(KindValidation, "unknown drill outcome %q", outcome)
	}
	if d.Status != DrillStatusActive {
		return NewTransitionError("drill", string(d.Status), "record", drillAllowedEvents(d.Status))
	}
	d.Status = DrillStatusCompleted
	d.Outcome = outcome
	d.Observation = observation
	d.RepeatTomorrow = outcome == OutcomeFail || outcome == OutcomePartial
	d.CompletedAt = &now
	d.UpdatedAt = now
	return nil
}

// Skip terminates a scheduled or active drill without an outcome.
func (d *Drill) Skip(now time.Time) error {
	if d.Status != DrillStatusScheduled && d.Status != DrillStatusActive {
		return NewTransitionError("drill", string(d.Status), "skip", drillAllowedEvents(d.Status))
	}
	d.Status = DrillStatusSkipped
	d.UpdatedAt = now
	return nil
}

// Expire terminates a scheduled or active drill whose date lapsed with no
// recorded outcome. Used by the dispatcher's sweep.
func (d *Drill) Expire(now time.Time) error {
	if d.Status != DrillStatusScheduled && d.Status != DrillStatusActive {
		return NewTransitionError("drill", string(d.Status), "expire", drillAllowedEvents(d.Status))
	}
	d.Status = DrillStatusExpired
	d.UpdatedAt = now
	return nil
}

// Terminal reports whether the drill is in a terminal state.
func (d *Drill) Terminal() bool {
	switch d.Status {
	case DrillStatusCompleted, DrillStatusSkipped, DrillStatusExpired:
		return true
	}
	return false
}

func drillAllowedEvents(status DrillStatus) []string {
	switch status {
	case DrillStatusScheduled:
		return []string{"activate", "skip", "expire"}
	case DrillStatusActive:
		return []string{"record", "skip", "expire"}
	default:
		return nil
	}
}

// Validate enforces the field constraints on a Drill.
func (d *Drill) Validate() error {
	switch {
	case d.ID == "":
		return NewError(KindValidation, "drill id must not be empty")
	case d.SkillID == "":
		return NewError(KindValidation, "drill skillId must not be empty")
	case d.UserID == "":
		return NewError(KindValidation, "drill userId must not be empty")
	case d.GoalID == "":
		return NewError(KindValidation, "drill goalId must not be empty")
	case !ValidDate(d.ScheduledDate):
		return NewError(KindValidation, "drill scheduledDate must be YYYY-MM-DD, got %q", d.ScheduledDate)
	case d.DayNumber < 1:
		return NewError(KindValidation, "drill dayNumber must be >= 1, got %d", d.DayNumber)
	case d.Action == "":
		return NewError(KindValidation, "drill action must not be empty")
	case d.EstimatedMinutes <= 0:
		return NewError(KindValidation, "drill estimatedMinutes must be > 0, got %d", d.EstimatedMinutes)
	case d.RetryCount < 0:
		return NewError(KindValidation, "drill retryCount must be >= 0, got %d", d.RetryCount)
	}
	switch d.Status {
	case DrillStatusScheduled, DrillStatusActive, DrillStatusCompleted, DrillStatusSkipped, DrillStatusExpired:
	default:
		return NewError(KindValidation, "unknown drill status %q", d.Status)
	}
	if d.Status == DrillStatusCompleted {
		if d.Outcome == "" {
			return NewError(KindValidation, "completed drill must carry an outcome")
		}
		if d.CompletedAt == nil {
			return NewError(KindValidation, "completed drill must carry completedAt")
		}
	}
	if d.Outcome != "" {
		switch d.Outcome {
		case OutcomePass, OutcomePartial, OutcomeFail, OutcomeSkipped:
		default:
			return NewError(KindValidation, "unknown drill outcome %q", d.Outcome)
		}
		want := d.Outcome == OutcomeFail || d.Outcome == OutcomePartial
		if d.RepeatTomorrow != want {
			return NewError(KindValidation, "drill repeatTomorrow must be %t for outcome %q", want, d.Outcome)
		}
	} else if d.RepeatTomorrow {
		return NewError(KindValidation, "drill repeatTomorrow requires a fail or partial outcome")
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *Drill) Clone() *Drill {
	if d == nil {
		return nil
	}
	dup := *d
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		dup.CompletedAt = &t
	}
	return &dup
}
