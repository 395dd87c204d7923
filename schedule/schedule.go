// Package schedule answers "what should this user practice right now": it
// resolves the user's active goals, the calendar date in their timezone, and
// the drill and spark for that date.
package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/store"
	"github.com/emberloop/ember/telemetry"
)

// DefaultTimezone anchors users whose goals carry no timezone.
const DefaultTimezone = "UTC"

// Today is the scheduler's answer for one user and instant.
type Today struct {
	// HasContent reports whether a drill exists for the user today.
	HasContent bool `json:"hasContent"`
	// Drill is today's practice, when HasContent.
	Drill *domain.Drill `json:"drill,omitempty"`
	// Spark is the drill's pending spark, when HasContent.
	Spark *domain.Spark `json:"spark,omitempty"`
	// Date is the resolved YYYY-MM-DD in Timezone.
	Date string `json:"date"`
	// Timezone is the IANA zone the date was computed in.
	Timezone string `json:"timezone"`
	// GoalID is the owning goal, when HasContent.
	GoalID string `json:"goalId,omitempty"`
	// QuestID is the owning quest, when HasContent.
	QuestID string `json:"questId,omitempty"`
}

// Scheduler resolves daily practice. It is read-mostly: the only writes are
// activating today's drill and materializing a missing spark.
type Scheduler struct {
	store     *store.Store
	defaultTZ string
	logger    telemetry.Logger
	clock     func() time.Time
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithDefaultTimezone overrides the fallback timezone.
func WithDefaultTimezone(tz string) Option {
	return func(s *Scheduler) { s.defaultTZ = tz }
}

// WithLogger sets the scheduler logger.
func WithLogger(l telemetry.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock overrides the scheduler time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// New builds a Scheduler over the store.
func New(st *store.Store, opts ...Option) (*Scheduler, error) {
	if st == nil {
		return nil, domain.NewError(domain.KindValidation, "scheduler requires a store")
	}
	s := &Scheduler{
		store:     st,
		defaultTZ: DefaultTimezone,
		logger:    telemetry.NewNoopLogger(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TodayForUser resolves the user's current drill and spark.
//
// Goals are considered in priority order (lower first), then by creation
// time, then by id. The user timezone is the first active goal's timezone,
// falling back to the configured default. Goals paused beyond today in that
// timezone are skipped; the pause comparison uses the date, never the field's
// mere presence, so lapsed pauses schedule again without an explicit resume.
func (s *Scheduler) TodayForUser(ctx context.Context, userID string) (*Today, error) {
	if userID == "" {
		return nil, domain.NewError(domain.KindValidation, "userId is required")
	}
	goals, err := s.store.ActiveGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortGoals(goals)

	tz := s.defaultTZ
	for _, g := range goals {
		if g.Timezone != "" {
			tz = g.Timezone
			break
		}
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Warn(ctx, "unknown goal timezone, using default", "timezone", tz, "user", userID)
		tz = s.defaultTZ
		loc = time.UTC
	}
	now := s.clock()
	today := domain.Today(now, loc)
	result := &Today{Date: today, Timezone: tz}

	for _, g := range goals {
		if g.PausedBeyond(today) {
			continue
		}
		drill, err := s.store.DrillByDate(ctx, g.ID, today)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				continue
			}
			return nil, err
		}
		if drill.Terminal() {
			continue
		}
		spark, err := s.resolveSpark(ctx, drill, now)
		if err != nil {
			return nil, err
		}
		if drill.Status == domain.DrillStatusScheduled {
			drill = s.activate(ctx, drill, now)
		}

		result.HasContent = true
		result.Drill = drill
		result.Spark = spark
		result.GoalID = g.ID
		if skill, err := s.store.GetSkill(ctx, drill.SkillID); err == nil {
			result.QuestID = skill.QuestID
		}
		return result, nil
	}
	return result, nil
}

// resolveSpark returns the drill's pending spark, creating one at escalation
// level 0 when none exists.
func (s *Scheduler) resolveSpark(ctx context.Context, drill *domain.Drill, now time.Time) (*domain.Spark, error) {
	if drill.SparkID != "" {
		spark, err := s.store.GetSpark(ctx, drill.SparkID)
		if err == nil && !spark.Terminal() {
			return spark, nil
		}
		if err != nil && !domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
	}

	spark := &domain.Spark{
		ID:               domain.NewSparkID(),
		DrillID:          drill.ID,
		UserID:           drill.UserID,
		Status:           domain.SparkStatusPending,
		Variant:          domain.VariantFull,
		EscalationLevel:  0,
		EstimatedMinutes: clampSparkMinutes(drill.EstimatedMinutes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	spark, err := s.store.SaveSpark(ctx, spark, 0)
	if err != nil {
		return nil, err
	}
	drill.SparkID = spark.ID
	drill.UpdatedAt = now
	if updated, err := s.store.SaveDrill(ctx, drill, drill.Version); err == nil {
		*drill = *updated
	} else if !domain.IsKind(err, domain.KindVersionConflict) {
		return nil, err
	}
	return spark, nil
}

// activate promotes a scheduled drill to active on first sight. A lost race
// means another worker already did it.
func (s *Scheduler) activate(ctx context.Context, drill *domain.Drill, now time.Time) *domain.Drill {
	if err := drill.Activate(now); err != nil {
		return drill
	}
	updated, err := s.store.SaveDrill(ctx, drill, drill.Version)
	if err != nil {
		if fresh, loadErr := s.store.GetDrill(ctx, drill.ID); loadErr == nil {
			return fresh
		}
		return drill
	}
	return updated
}

func sortGoals(goals []*domain.Goal) {
	sort.Slice(goals, func(i, j int) bool {
		if goals[i].Priority != goals[j].Priority {
			return goals[i].Priority < goals[j].Priority
		}
		if !goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].CreatedAt.Before(goals[j].CreatedAt)
		}
		return goals[i].ID < goals[j].ID
	})
}

func clampSparkMinutes(minutes int) int {
	if minutes < domain.MinSparkMinutes {
		return domain.MinSparkMinutes
	}
	if minutes > domain.MaxSparkMinutes {
		return domain.MaxSparkMinutes
	}
	return minutes
}
