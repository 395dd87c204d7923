// Package engine is the orchestrator: it composes the store, scheduler,
// reminder engine, notification registry, provider cache, and curriculum
// structurer behind the public operations, preserving invariants across
// subsystem boundaries. Every operation performs ownership checks and
// returns either the updated entity or a taxonomized error; nothing is
// thrown across package lines.
package engine

import (
	"context"
	"time"

	"github.com/emberloop/ember/cache"
	"github.com/emberloop/ember/curriculum"
	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/notify"
	"github.com/emberloop/ember/remind"
	"github.com/emberloop/ember/schedule"
	"github.com/emberloop/ember/store"
	"github.com/emberloop/ember/telemetry"
)

// DefaultDrillDays is how many consecutive daily drills are scheduled when a
// skill starts. Matches the consecutive-pass mastery bar so an unbroken
// streak masters the skill exactly as its schedule runs out.
const DefaultDrillDays = domain.DefaultMasteryThreshold

type (
	// Engine exposes the public practice operations.
	Engine struct {
		store     *store.Store
		scheduler *schedule.Scheduler

		skillGen   SkillGenerator
		structurer *curriculum.Structurer
		archive    curriculum.Archive
		registry   *notify.Registry
		cache      *cache.Cache

		reminderCfg      remind.Config
		masteryThreshold int
		drillDays        int
		defaultTZ        string

		logger  telemetry.Logger
		metrics telemetry.Metrics
		clock   func() time.Time

		startedAt time.Time
	}

	// Option customizes an Engine.
	Option func(*Engine)

	// Stats is a read-only operational snapshot.
	Stats struct {
		// Uptime since the engine was constructed.
		Uptime time.Duration `json:"uptime"`
		// Cache holds provider cache counters when a cache is attached.
		Cache *cache.Stats `json:"cache,omitempty"`
		// Channels counts registered notification channels.
		Channels int `json:"channels"`
	}
)

// WithSkillGenerator overrides the default template skill generator.
func WithSkillGenerator(g SkillGenerator) Option {
	return func(e *Engine) { e.skillGen = g }
}

// WithStructurer attaches a curriculum structurer for GenerateCurriculum.
func WithStructurer(s *curriculum.Structurer) Option {
	return func(e *Engine) { e.structurer = s }
}

// WithArchive attaches a curriculum archive. Archival is best-effort.
func WithArchive(a curriculum.Archive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithRegistry attaches the notification channel registry.
func WithRegistry(r *notify.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithCache attaches the provider cache for Stats reporting.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithReminderConfig overrides the stock reminder policy.
func WithReminderConfig(cfg remind.Config) Option {
	return func(e *Engine) { e.reminderCfg = cfg }
}

// WithMasteryThreshold overrides the consecutive-pass bar.
func WithMasteryThreshold(n int) Option {
	return func(e *Engine) { e.masteryThreshold = n }
}

// WithDrillDays overrides how many drills are scheduled per skill.
func WithDrillDays(n int) Option {
	return func(e *Engine) { e.drillDays = n }
}

// WithDefaultTimezone overrides the fallback timezone.
func WithDefaultTimezone(tz string) Option {
	return func(e *Engine) { e.defaultTZ = tz }
}

// WithLogger sets the engine logger.
func WithLogger(l telemetry.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New builds an Engine over the store.
func New(st *store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, domain.NewError(domain.KindValidation, "engine requires a store")
	}
	e := &Engine{
		store:            st,
		skillGen:         &TemplateGenerator{},
		reminderCfg:      remind.DefaultConfig(schedule.DefaultTimezone),
		masteryThreshold: domain.DefaultMasteryThreshold,
		drillDays:        DefaultDrillDays,
		defaultTZ:        schedule.DefaultTimezone,
		logger:           telemetry.NewNoopLogger(),
		metrics:          telemetry.NewNoopMetrics(),
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.drillDays < 1 {
		e.drillDays = 1
	}
	sched, err := schedule.New(st,
		schedule.WithDefaultTimezone(e.defaultTZ),
		schedule.WithLogger(e.logger),
		schedule.WithClock(e.clock),
	)
	if err != nil {
		return nil, err
	}
	e.scheduler = sched
	e.startedAt = e.clock()
	return e, nil
}

// GetTodayForUser resolves the user's current drill and spark.
func (e *Engine) GetTodayForUser(ctx context.Context, userID string) (*schedule.Today, error) {
	return e.scheduler.TodayForUser(ctx, userID)
}

// GenerateCurriculum runs the structurer and archives the result. Archive
// failures are logged, never surfaced: the accepted curriculum is the
// operation's outcome.
func (e *Engine) GenerateCurriculum(ctx context.Context, req curriculum.Request) (*curriculum.ResolvedCurriculum, error) {
	if e.structurer == nil {
		return nil, domain.NewError(domain.KindValidation, "llm client not initialized")
	}
	cur, err := e.structurer.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if e.archive != nil {
		if err := e.archive.Put(ctx, cur); err != nil {
			e.logger.Warn(ctx, "curriculum archive failed", "curriculumId", cur.ID, "err", err)
		}
	}
	return cur, nil
}

// Stats snapshots operational counters.
func (e *Engine) Stats() Stats {
	s := Stats{Uptime: e.clock().Sub(e.startedAt)}
	if e.cache != nil {
		cs := e.cache.Stats()
		s.Cache = &cs
	}
	if e.registry != nil {
		s.Channels = len(e.registry.All())
	}
	return s
}

// notFound hides ownership mismatches behind NOT_FOUND so ids cannot be
// enumerated across users.
func notFound(entity, id string) error {
	return domain.NewError(domain.KindNotFound, "%s %s not found", entity, id)
}

// goalLocation resolves the IANA location a goal's dates live in.
func (e *Engine) goalLocation(g *domain.Goal) *time.Location {
	tz := g.Timezone
	if tz == "" {
		tz = e.defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
