package domain

import "time"

// GoalStatus is the lifecycle state of a Goal.
type GoalStatus string

const (
	// GoalStatusActive indicates the goal is eligible for daily scheduling.
	GoalStatusActive GoalStatus = "active"
	// GoalStatusPaused indicates the goal is suspended until PausedUntil.
	GoalStatusPaused GoalStatus = "paused"
	// GoalStatusCompleted is terminal.
	GoalStatusCompleted GoalStatus = "completed"
	// GoalStatusAbandoned is terminal.
	GoalStatusAbandoned GoalStatus = "abandoned"
)

// GoalEvent names an edge in the Goal state machine.
type GoalEvent string

const (
	// GoalEventPause suspends an active goal.
	GoalEventPause GoalEvent = "pause"
	// GoalEventResume reactivates a paused goal.
	GoalEventResume GoalEvent = "resume"
	// GoalEventComplete finishes an active goal.
	GoalEventComplete GoalEvent = "complete"
	// GoalEventAbandon abandons an active or paused goal.
	GoalEventAbandon GoalEvent = "abandon"
)

const (
	// MaxGoalTitleLen bounds goal titles, in characters.
	MaxGoalTitleLen = 500
	// MaxGoalDescriptionLen bounds goal descriptions, in characters.
	MaxGoalDescriptionLen = 10000
	// DefaultGoalPriority is assigned when the caller supplies none. Lower
	// numbers schedule first.
	DefaultGoalPriority = 999
)

// Goal is the user's stated learning outcome and the root of the ownership
// tree: a Goal owns Quests, which own Skills, which own Drills.
type Goal struct {
	// ID is the opaque goal identifier.
	ID string `json:"id"`
	// OwnerUserID identifies the owning user. Ownership never changes.
	OwnerUserID string `json:"ownerUserId"`
	// Title is the user-stated outcome, at most MaxGoalTitleLen characters.
	Title string `json:"title"`
	// Description elaborates the title, at most MaxGoalDescriptionLen
	// characters.
	Description string `json:"description,omitempty"`
	// Status is the lifecycle state.
	Status GoalStatus `json:"status"`
	// Priority orders goals for scheduling; lower is scheduled first. Ties
	// break by CreatedAt, then ID.
	Priority int `json:"priority"`
	// PausedUntil is the YYYY-MM-DD date until which the goal is paused.
	// Set if and only if Status is paused.
	PausedUntil string `json:"pausedUntil,omitempty"`
	// Timezone is the IANA zone the goal's daily schedule runs in. Empty
	// means the engine default.
	Timezone string `json:"timezone,omitempty"`
	// Annotations carries auxiliary typed facts attached at creation.
	Annotations Annotations `json:"annotations,omitempty"`
	// CreatedAt records creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the last mutation time.
	UpdatedAt time.Time `json:"updatedAt"`
	// Version is the monotonic per-entity counter maintained by the store.
	Version int64 `json:"version"`
}

var goalTransitions = map[GoalStatus]map[GoalEvent]GoalStatus{
	GoalStatusActive: {
		GoalEventPause:    GoalStatusPaused,
		GoalEventComplete: GoalStatusCompleted,
		GoalEventAbandon:  GoalStatusAbandoned,
	},
	GoalStatusPaused: {
		GoalEventResume:  GoalStatusActive,
		GoalEventAbandon: GoalStatusAbandoned,
	},
}

// GoalAllowedEvents lists the events status accepts.
func GoalAllowedEvents(status GoalStatus) []string {
	return allowedEvents(goalTransitions[status])
}

func (g *Goal) apply(event GoalEvent, now time.Time) error {
	next, ok := goalTransitions[g.Status][event]
	if !ok {
		return NewTransitionError("goal", string(g.Status), string(event), GoalAllowedEvents(g.Status))
	}
	g.Status = next
	g.UpdatedAt = now
	return nil
}

// Pause suspends the goal until the given YYYY-MM-DD date. An empty until
// pauses indefinitely.
func (g *Goal) Pause(until string, now time.Time) error {
	if until == "" {
		until = IndefinitePause
	}
	if !ValidDate(until) {
		return NewError(KindValidation, "pausedUntil must be YYYY-MM-DD, got %q", until)
	}
	if err := g.apply(GoalEventPause, now); err != nil {
		return err
	}
	g.PausedUntil = until
	return nil
}

// Resume reactivates a paused goal and clears PausedUntil.
func (g *Goal) Resume(now time.Time) error {
	if err := g.apply(GoalEventResume, now); err != nil {
		return err
	}
	g.PausedUntil = ""
	return nil
}

// Complete finishes the goal. Terminal.
func (g *Goal) Complete(now time.Time) error {
	return g.apply(GoalEventComplete, now)
}

// Abandon abandons the goal. Terminal.
func (g *Goal) Abandon(now time.Time) error {
	if err := g.apply(GoalEventAbandon, now); err != nil {
		return err
	}
	g.PausedUntil = ""
	return nil
}

// Terminal reports whether the goal is in a terminal state.
func (g *Goal) Terminal() bool {
	return g.Status == GoalStatusCompleted || g.Status == GoalStatusAbandoned
}

// PausedBeyond reports whether the goal is paused past the given date. A
// paused goal whose PausedUntil is on or before date is treated as eligible
// again; the field itself is only cleared by Resume.
func (g *Goal) PausedBeyond(date string) bool {
	return g.Status == GoalStatusPaused && g.PausedUntil > date
}

// Validate enforces the field constraints on a Goal.
func (g *Goal) Validate() error {
	switch {
	case g.ID == "":
		return NewError(KindValidation, "goal id must not be empty")
	case g.OwnerUserID == "":
		return NewError(KindValidation, "goal ownerUserId must not be empty")
	case g.Title == "":
		return NewError(KindValidation, "goal title must not be empty")
	case runeLen(g.Title) > MaxGoalTitleLen:
		return NewError(KindValidation, "goal title exceeds %d characters", MaxGoalTitleLen)
	case runeLen(g.Description) > MaxGoalDescriptionLen:
		return NewError(KindValidation, "goal description exceeds %d characters", MaxGoalDescriptionLen)
	case g.Priority < 1:
		return NewError(KindValidation, "goal priority must be >= 1, got %d", g.Priority)
	}
	switch g.Status {
	case GoalStatusActive, GoalStatusPaused, GoalStatusCompleted, GoalStatusAbandoned:
	default:
		return NewError(KindValidation, "unknown goal status %q", g.Status)
	}
	if g.Status == GoalStatusPaused {
		if g.PausedUntil == "" {
			return NewError(KindValidation, "paused goal must carry pausedUntil")
		}
		if !ValidDate(g.PausedUntil) {
			return NewError(KindValidation, "pausedUntil must be YYYY-MM-DD, got %q", g.PausedUntil)
		}
	} else if g.PausedUntil != "" {
		return NewError(KindValidation, "pausedUntil is only valid on paused goals")
	}
	return g.Annotations.Validate()
}

// Clone returns a deep copy of g.
func (g *Goal) Clone() *Goal {
	if g == nil {
		return nil
	}
	dup := *g
	dup.Annotations = g.Annotations.Clone()
	return &dup
}

// allowedEvents renders a transition row as event names for error reporting.
func allowedEvents[E ~string, S ~string](row map[E]S) []string {
	out := make([]string, 0, len(row))
	for ev := range row {
		out = append(out, string(ev))
	}
	return out
}
