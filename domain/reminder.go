package domain

import "time"

// ReminderStatus is the lifecycle state of a Reminder. Reminders are
// immutable once they leave pending.
type ReminderStatus string

const (
	// ReminderStatusPending indicates the reminder awaits dispatch.
	ReminderStatusPending ReminderStatus = "pending"
	// ReminderStatusSent indicates delivery was attempted and accepted.
	ReminderStatusSent ReminderStatus = "sent"
	// ReminderStatusCancelled indicates the spark resolved before
	// dispatch.
	ReminderStatusCancelled ReminderStatus = "cancelled"
	// ReminderStatusFailed indicates every delivery channel rejected the
	// reminder.
	ReminderStatusFailed ReminderStatus = "failed"
)

// ReminderTone is the voice of the nudge, escalating with level.
type ReminderTone string

const (
	// ToneEncouraging opens the day.
	ToneEncouraging ReminderTone = "encouraging"
	// ToneGentle follows missed opportunities.
	ToneGentle ReminderTone = "gentle"
	// ToneLastChance closes the day.
	ToneLastChance ReminderTone = "last_chance"
)

// ReminderChannel names a delivery transport.
type ReminderChannel string

const (
	// ChannelPush delivers via mobile push.
	ChannelPush ReminderChannel = "push"
	// ChannelEmail delivers via email.
	ChannelEmail ReminderChannel = "email"
	// ChannelSMS delivers via SMS.
	ChannelSMS ReminderChannel = "sms"
)

// Reminder is a scheduled outbound nudge for a spark.
type Reminder struct {
	// ID is the opaque reminder identifier.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"userId"`
	// DrillID identifies the drill being nudged.
	DrillID string `json:"drillId"`
	// SparkID identifies the spark being nudged. Cancelling the spark
	// cancels all pending reminders for it.
	SparkID string `json:"sparkId"`
	// ScheduledTime is the instant the reminder becomes due.
	ScheduledTime time.Time `json:"scheduledTime"`
	// EscalationLevel is the 0-based slot index within the day.
	EscalationLevel int `json:"escalationLevel"`
	// SparkVariant is the verbosity the spark shrinks to at this level.
	SparkVariant SparkVariant `json:"sparkVariant"`
	// Tone is the nudge voice at this level.
	Tone ReminderTone `json:"tone"`
	// Status is the lifecycle state.
	Status ReminderStatus `json:"status"`
	// Channels are the delivery transports to attempt.
	Channels []ReminderChannel `json:"channels"`
	// SentAt is set when the reminder transitions to sent.
	SentAt *time.Time `json:"sentAt,omitempty"`
	// CreatedAt records creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the last mutation time.
	UpdatedAt time.Time `json:"updatedAt"`
	// Version is the monotonic per-entity counter maintained by the store.
	Version int64 `json:"version"`
}

// ReminderAllowedEvents lists the events status accepts.
func ReminderAllowedEvents(status ReminderStatus) []string {
	if status == ReminderStatusPending {
		return []string{"send", "cancel", "fail"}
	}
	return nil
}

func (r *Reminder) transition(event string, next ReminderStatus, now time.Time) error {
	if r.Status != ReminderStatusPending {
		return NewTransitionError("reminder", string(r.Status), event, ReminderAllowedEvents(r.Status))
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// MarkSent records a successful dispatch and sets SentAt.
func (r *Reminder) MarkSent(now time.Time) error {
	if err := r.transition("send", ReminderStatusSent, now); err != nil {
		return err
	}
	r.SentAt = &now
	return nil
}

// MarkFailed records that every channel rejected the reminder.
func (r *Reminder) MarkFailed(now time.Time) error {
	return r.transition("fail", ReminderStatusFailed, now)
}

// Cancel voids a pending reminder whose spark resolved.
func (r *Reminder) Cancel(now time.Time) error {
	return r.transition("cancel", ReminderStatusCancelled, now)
}

// Terminal reports whether the reminder left pending.
func (r *Reminder) Terminal() bool {
	return r.Status != ReminderStatusPending
}

// Validate enforces the field constraints on a Reminder.
func (r *Reminder) Validate() error {
	switch {
	case r.ID == "":
		return NewError(KindValidation, "reminder id must not be empty")
	case r.UserID == "":
		return NewError(KindValidation, "reminder userId must not be empty")
	case r.DrillID == "":
		return NewError(KindValidation, "reminder drillId must not be empty")
	case r.SparkID == "":
		return NewError(KindValidation, "reminder sparkId must not be empty")
	case r.ScheduledTime.IsZero():
		return NewError(KindValidation, "reminder scheduledTime must be set")
	case r.EscalationLevel < 0 || r.EscalationLevel > MaxEscalationLevel:
		return NewError(KindValidation, "reminder escalationLevel must be in [0,%d], got %d",
			MaxEscalationLevel, r.EscalationLevel)
	case len(r.Channels) == 0:
		return NewError(KindValidation, "reminder requires at least one channel")
	}
	for _, ch := range r.Channels {
		switch ch {
		case ChannelPush, ChannelEmail, ChannelSMS:
		default:
			return NewError(KindValidation, "unknown reminder channel %q", ch)
		}
	}
	switch r.SparkVariant {
	case VariantFull, VariantReduced, VariantMinimal:
	default:
		return NewError(KindValidation, "unknown reminder sparkVariant %q", r.SparkVariant)
	}
	switch r.Tone {
	case ToneEncouraging, ToneGentle, ToneLastChance:
	default:
		return NewError(KindValidation, "unknown reminder tone %q", r.Tone)
	}
	switch r.Status {
	case ReminderStatusPending, ReminderStatusSent, ReminderStatusCancelled, ReminderStatusFailed:
	default:
		return NewError(KindValidation, "unknown reminder status %q", r.Status)
	}
	if r.Status == ReminderStatusSent && r.SentAt == nil {
		return NewError(KindValidation, "sent reminder must carry sentAt")
	}
	return nil
}

// Clone returns a deep copy of r.
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	dup := *r
	dup.Channels = append([]ReminderChannel(nil), r.Channels...)
	if r.SentAt != nil {
		t := *r.SentAt
		dup.SentAt = &t
	}
	return &dup
}
