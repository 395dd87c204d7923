package engine

import (
	"context"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/store"
)

// CreateGoalParams carries the caller-supplied goal fields.
type CreateGoalParams struct {
	// UserID is the authenticated owner.
	UserID string
	// Title is the stated outcome.
	Title string
	// Description elaborates the title.
	Description string
	// Priority orders goals for scheduling; zero means the default.
	Priority int
	// Timezone is the IANA zone daily practice runs in.
	Timezone string
	// Annotations carries auxiliary typed facts.
	Annotations domain.Annotations
}

// CreateGoal persists a new active goal at version 1 and indexes it under
// the user's goal sets.
func (e *Engine) CreateGoal(ctx context.Context, params CreateGoalParams) (*domain.Goal, error) {
	now := e.clock()
	priority := params.Priority
	if priority == 0 {
		priority = domain.DefaultGoalPriority
	}
	g := &domain.Goal{
		ID:          domain.NewGoalID(),
		OwnerUserID: params.UserID,
		Title:       params.Title,
		Description: params.Description,
		Status:      domain.GoalStatusActive,
		Priority:    priority,
		Timezone:    params.Timezone,
		Annotations: params.Annotations,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	saved, err := e.store.SaveGoal(ctx, g, 0)
	if err != nil {
		return nil, err
	}
	e.metrics.IncCounter("engine.goals_created", 1)
	e.logger.Info(ctx, "goal created", "goalId", saved.ID, "user", saved.OwnerUserID)
	return saved, nil
}

// GetGoal loads a goal with an ownership check. Goals owned by other users
// are indistinguishable from missing ones.
func (e *Engine) GetGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	g, err := e.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if g.OwnerUserID != userID {
		return nil, notFound("goal", goalID)
	}
	return g, nil
}

// SetGoalPriority updates the goal's scheduling priority, clamped to >= 1.
func (e *Engine) SetGoalPriority(ctx context.Context, userID, goalID string, priority int) (*domain.Goal, error) {
	g, err := e.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if priority < 1 {
		priority = 1
	}
	g.Priority = priority
	g.UpdatedAt = e.clock()
	return e.store.SaveGoal(ctx, g, g.Version)
}

// PauseGoal suspends the goal until the given YYYY-MM-DD date. An empty
// until pauses indefinitely.
func (e *Engine) PauseGoal(ctx context.Context, userID, goalID, until string) (*domain.Goal, error) {
	g, err := e.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := g.Pause(until, e.clock()); err != nil {
		return nil, err
	}
	return e.store.SaveGoal(ctx, g, g.Version)
}

// ResumeGoal reactivates a paused goal and clears pausedUntil.
func (e *Engine) ResumeGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	g, err := e.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := g.Resume(e.clock()); err != nil {
		return nil, err
	}
	return e.store.SaveGoal(ctx, g, g.Version)
}

// CompleteGoal finishes an active goal.
func (e *Engine) CompleteGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	g, err := e.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := g.Complete(e.clock()); err != nil {
		return nil, err
	}
	return e.store.SaveGoal(ctx, g, g.Version)
}

// AbandonGoal abandons an active or paused goal.
func (e *Engine) AbandonGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	g, err := e.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := g.Abandon(e.clock()); err != nil {
		return nil, err
	}
	return e.store.SaveGoal(ctx, g, g.Version)
}

// DeleteGoal cascade-deletes the goal and every descendant quest, skill,
// drill, spark, and reminder. Idempotent: a second call reports Deleted=false.
func (e *Engine) DeleteGoal(ctx context.Context, userID, goalID string) (store.CascadeResult, error) {
	if _, err := e.GetGoal(ctx, userID, goalID); err != nil {
		return store.CascadeResult{}, err
	}
	res, err := e.store.CascadeDeleteGoal(ctx, goalID)
	if err != nil {
		return res, err
	}
	e.metrics.IncCounter("engine.goals_deleted", 1)
	e.logger.Info(ctx, "goal deleted", "goalId", goalID, "entities", res.Count)
	return res, nil
}
