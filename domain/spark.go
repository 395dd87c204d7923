package domain

import "time"

// SparkStatus is the lifecycle state of a Spark.
type SparkStatus string

const (
	// SparkStatusPending indicates the spark awaits the user.
	SparkStatusPending SparkStatus = "pending"
	// SparkStatusCompleted is terminal.
	SparkStatusCompleted SparkStatus = "completed"
	// SparkStatusSkipped is terminal.
	SparkStatusSkipped SparkStatus = "skipped"
)

// SparkVariant is the verbosity of a delivered spark. Escalation shrinks the
// variant so later nudges ask for less.
type SparkVariant string

const (
	// VariantFull is the complete practice prompt.
	VariantFull SparkVariant = "full"
	// VariantReduced trims the prompt to its core ask.
	VariantReduced SparkVariant = "reduced"
	// VariantMinimal is the last-chance one-liner.
	VariantMinimal SparkVariant = "minimal"
)

const (
	// MinSparkMinutes and MaxSparkMinutes bound a spark's estimated time.
	MinSparkMinutes = 5
	MaxSparkMinutes = 120
	// MaxEscalationLevel is the highest reminder escalation a spark can
	// carry. Levels run 0..3.
	MaxEscalationLevel = 3
)

// Spark is a delivered practice prompt for a drill. At most one pending
// spark exists per drill.
type Spark struct {
	// ID is the opaque spark identifier.
	ID string `json:"id"`
	// DrillID identifies the drill this spark delivers.
	DrillID string `json:"drillId"`
	// UserID is the owning user, denormalized.
	UserID string `json:"userId"`
	// Status is the lifecycle state.
	Status SparkStatus `json:"status"`
	// Variant is the delivered verbosity.
	Variant SparkVariant `json:"variant"`
	// EscalationLevel is how many reminder fires preceded this spark
	// today, 0..MaxEscalationLevel.
	EscalationLevel int `json:"escalationLevel"`
	// EstimatedMinutes is the expected practice time, within
	// [MinSparkMinutes, MaxSparkMinutes].
	EstimatedMinutes int `json:"estimatedMinutes"`
	// CreatedAt records creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the last mutation time.
	UpdatedAt time.Time `json:"updatedAt"`
	// Version is the monotonic per-entity counter maintained by the store.
	Version int64 `json:"version"`
}

// SparkAllowedEvents lists the events status accepts.
func SparkAllowedEvents(status SparkStatus) []string {
	if status == SparkStatusPending {
		return []string{"complete", "skip"}
	}
	return nil
}

// Complete finishes a pending spark. Terminal.
func (s *Spark) Complete(now time.Time) error {
	if s.Status != SparkStatusPending {
		return NewTransitionError("spark", string(s.Status), "complete", SparkAllowedEvents(s.Status))
	}
	s.Status = SparkStatusCompleted
	s.UpdatedAt = now
	return nil
}

// Skip skips a pending spark. Terminal.
func (s *Spark) Skip(now time.Time) error {
	if s.Status != SparkStatusPending {
		return NewTransitionError("spark", string(s.Status), "skip", SparkAllowedEvents(s.Status))
	}
	s.Status = SparkStatusSkipped
	s.UpdatedAt = now
	return nil
}

// Terminal reports whether the spark is in a terminal state.
func (s *Spark) Terminal() bool {
	return s.Status == SparkStatusCompleted || s.Status == SparkStatusSkipped
}

// Validate enforces the field constraints on a Spark.
func (s *Spark) Validate() error {
	switch {
	case s.ID == "":
		return NewError(KindValidation, "spark id must not be empty")
	case s.DrillID == "":
		return NewError(KindValidation, "spark drillId must not be empty")
	case s.UserID == "":
		return NewError(KindValidation, "spark userId must not be empty")
	case s.EstimatedMinutes < MinSparkMinutes || s.EstimatedMinutes > MaxSparkMinutes:
		return NewError(KindValidation, "spark estimatedMinutes must be in [%d,%d], got %d",
			MinSparkMinutes, MaxSparkMinutes, s.EstimatedMinutes)
	case s.EscalationLevel < 0 || s.EscalationLevel > MaxEscalationLevel:
		return NewError(KindValidation, "spark escalationLevel must be in [0,%d], got %d",
			MaxEscalationLevel, s.EscalationLevel)
	}
	switch s.Status {
	case SparkStatusPending, SparkStatusCompleted, SparkStatusSkipped:
	default:
		return NewError(KindValidation, "unknown spark status %q", s.Status)
	}
	switch s.Variant {
	case VariantFull, VariantReduced, VariantMinimal:
		return nil
	default:
		return NewError(KindValidation, "unknown spark variant %q", s.Variant)
	}
}

// Clone returns a copy of s.
func (s *Spark) Clone() *Spark {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}
