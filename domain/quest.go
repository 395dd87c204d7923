package domain

import "time"

// QuestStatus is the lifecycle state of a Quest.
type QuestStatus string

const (
	// QuestStatusPending indicates the quest has not started yet.
	QuestStatusPending QuestStatus = "pending"
	// QuestStatusActive indicates the quest is the one currently practiced.
	// At most one quest per goal is active at any moment.
	QuestStatusActive QuestStatus = "active"
	// QuestStatusCompleted is terminal.
	QuestStatusCompleted QuestStatus = "completed"
	// QuestStatusSkipped is terminal.
	QuestStatusSkipped QuestStatus = "skipped"
)

// QuestEvent names an edge in the Quest state machine.
type QuestEvent string

const (
	// QuestEventStart activates a pending quest.
	QuestEventStart QuestEvent = "start"
	// QuestEventComplete finishes an active quest.
	QuestEventComplete QuestEvent = "complete"
	// QuestEventSkip skips a pending or active quest.
	QuestEventSkip QuestEvent = "skip"
)

// Quest is an ordered milestone under a Goal.
type Quest struct {
	// ID is the opaque quest identifier.
	ID string `json:"id"`
	// GoalID identifies the owning goal.
	GoalID string `json:"goalId"`
	// Title names the milestone.
	Title string `json:"title"`
	// Description elaborates the milestone.
	Description string `json:"description,omitempty"`
	// Status is the lifecycle state.
	Status QuestStatus `json:"status"`
	// Order positions the quest within its goal, starting at 1. Unique per
	// goal.
	Order int `json:"order"`
	// CreatedAt records creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the last mutation time.
	UpdatedAt time.Time `json:"updatedAt"`
	// Version is the monotonic per-entity counter maintained by the store.
	Version int64 `json:"version"`
}

var questTransitions = map[QuestStatus]map[QuestEvent]QuestStatus{
	QuestStatusPending: {
		QuestEventStart: QuestStatusActive,
		QuestEventSkip:  QuestStatusSkipped,
	},
	QuestStatusActive: {
		QuestEventComplete: QuestStatusCompleted,
		QuestEventSkip:     QuestStatusSkipped,
	},
}

// QuestAllowedEvents lists the events status accepts.
func QuestAllowedEvents(status QuestStatus) []string {
	return allowedEvents(questTransitions[status])
}

func (q *Quest) apply(event QuestEvent, now time.Time) error {
	next, ok := questTransitions[q.Status][event]
	if !ok {
		return NewTransitionError("quest", string(q.Status), string(event), QuestAllowedEvents(q.Status))
	}
	q.Status = next
	q.UpdatedAt = now
	return nil
}

// Start activates a pending quest. The caller must demote any sibling active
// quest first; the store and engine enforce the one-active-quest invariant.
func (q *Quest) Start(now time.Time) error {
	return q.apply(QuestEventStart, now)
}

// Complete finishes an active quest. Terminal.
func (q *Quest) Complete(now time.Time) error {
	return q.apply(QuestEventComplete, now)
}

// Skip skips a pending or active quest. Terminal.
func (q *Quest) Skip(now time.Time) error {
	return q.apply(QuestEventSkip, now)
}

// Demote moves an active quest back to pending. It is not a public event:
// only the engine uses it when another quest of the same goal starts and
// displaces this one.
func (q *Quest) Demote(now time.Time) error {
	if q.Status != QuestStatusActive {
		return NewTransitionError("quest", string(q.Status), "demote", QuestAllowedEvents(q.Status))
	}
	q.Status = QuestStatusPending
	q.UpdatedAt = now
	return nil
}

// Terminal reports whether the quest is in a terminal state.
func (q *Quest) Terminal() bool {
	return q.Status == QuestStatusCompleted || q.Status == QuestStatusSkipped
}

// Validate enforces the field constraints on a Quest.
func (q *Quest) Validate() error {
	switch {
	case q.ID == "":
		return NewError(KindValidation, "quest id must not be empty")
	case q.GoalID == "":
		return NewError(KindValidation, "quest goalId must not be empty")
	case q.Title == "":
		return NewError(KindValidation, "quest title must not be empty")
	case q.Order < 1:
		return NewError(KindValidation, "quest order must be >= 1, got %d", q.Order)
	}
	switch q.Status {
	case QuestStatusPending, QuestStatusActive, QuestStatusCompleted, QuestStatusSkipped:
		return nil
	default:
		return NewError(KindValidation, "unknown quest status %q", q.Status)
	}
}

// Clone returns a copy of q.
func (q *Quest) Clone() *Quest {
	if q == nil {
		return nil
	}
	dup := *q
	return &dup
}
