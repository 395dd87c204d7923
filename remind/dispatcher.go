package remind

import (
	"context"
	"fmt"
	"time"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/notify"
	"github.com/emberloop/ember/store"
	"github.com/emberloop/ember/telemetry"
)

// DefaultTickInterval paces the dispatch loop.
const DefaultTickInterval = time.Minute

// Dispatcher drains the due-reminder queue, delivers each reminder once, and
// sweeps lapsed drills. Multiple dispatchers may run concurrently; the
// per-reminder status CAS decides the winner.
type Dispatcher struct {
	store    *store.Store
	registry *notify.Registry
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	clock    func() time.Time
	interval time.Duration
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l telemetry.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the dispatcher metrics sink.
func WithMetrics(m telemetry.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides the dispatcher time source for tests.
func WithClock(clock func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.clock = clock }
}

// WithTickInterval overrides the dispatch loop period.
func WithTickInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.interval = interval }
}

// NewDispatcher builds a Dispatcher over the store and channel registry.
func NewDispatcher(s *store.Store, registry *notify.Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if s == nil {
		return nil, domain.NewError(domain.KindValidation, "dispatcher requires a store")
	}
	if registry == nil {
		return nil, domain.NewError(domain.KindValidation, "dispatcher requires a channel registry")
	}
	d := &Dispatcher{
		store:    s,
		registry: registry,
		logger:   telemetry.NewNoopLogger(),
		metrics:  telemetry.NewNoopMetrics(),
		clock:    time.Now,
		interval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// TickResult summarizes one dispatch pass.
type TickResult struct {
	// Due is how many queued ids the tick saw.
	Due int
	// Sent is how many reminders this dispatcher delivered.
	Sent int
	// Failed is how many reminders every channel rejected.
	Failed int
	// Consumed is how many queued ids were dropped without dispatch
	// (already terminal, drill resolved, or reminder gone).
	Consumed int
	// ExpiredDrills is how many drills the sweep expired.
	ExpiredDrills int
}

// Run ticks the dispatcher until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Tick(ctx); err != nil {
				d.logger.Error(ctx, "reminder tick failed", "error", err)
			}
		}
	}
}

// Tick performs one dispatch pass: deliver every due reminder, then expire
// drills whose date fully lapsed.
func (d *Dispatcher) Tick(ctx context.Context) (TickResult, error) {
	now := d.clock()
	var res TickResult

	due, err := d.store.DueReminderIDs(ctx, now)
	if err != nil {
		return res, err
	}
	res.Due = len(due)
	for _, id := range due {
		outcome, err := d.dispatch(ctx, id, now)
		if err != nil {
			d.logger.Error(ctx, "reminder dispatch failed", "reminder", id, "error", err)
			continue
		}
		switch outcome {
		case dispatchSent:
			res.Sent++
		case dispatchFailed:
			res.Failed++
		case dispatchConsumed:
			res.Consumed++
		}
	}

	expired, err := d.SweepLapsedDrills(ctx)
	if err != nil {
		d.logger.Error(ctx, "drill sweep failed", "error", err)
	}
	res.ExpiredDrills = expired

	d.metrics.IncCounter("reminders_sent", float64(res.Sent))
	d.metrics.IncCounter("reminders_failed", float64(res.Failed))
	d.metrics.IncCounter("reminders_consumed", float64(res.Consumed))
	return res, nil
}

type dispatchOutcome int

const (
	dispatchSent dispatchOutcome = iota
	dispatchFailed
	dispatchConsumed
)

// dispatch delivers one due reminder. Reminders that are no longer pending,
// whose drill already resolved, or that lost the status CAS to another worker
// are consumed silently.
func (d *Dispatcher) dispatch(ctx context.Context, id string, now time.Time) (dispatchOutcome, error) {
	r, err := d.store.GetReminder(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return dispatchConsumed, d.store.RemoveScheduled(ctx, id)
		}
		return dispatchConsumed, err
	}
	if r.Status != domain.ReminderStatusPending {
		return dispatchConsumed, d.store.RemoveScheduled(ctx, id)
	}

	drill, err := d.store.GetDrill(ctx, r.DrillID)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return dispatchConsumed, err
	}
	if drill == nil || drill.Terminal() {
		// The day already resolved; honor that instead of nudging.
		if cancelErr := r.Cancel(now); cancelErr == nil {
			if _, err := d.store.SaveReminder(ctx, r, r.Version); err != nil && !isLostRace(err) {
				return dispatchConsumed, err
			}
		}
		return dispatchConsumed, nil
	}

	delivered := d.deliver(ctx, r, drill)
	if delivered {
		err = r.MarkSent(now)
	} else {
		err = r.MarkFailed(now)
	}
	if err != nil {
		return dispatchConsumed, nil
	}
	if _, err := d.store.SaveReminder(ctx, r, r.Version); err != nil {
		if isLostRace(err) {
			return dispatchConsumed, nil
		}
		return dispatchConsumed, err
	}
	if delivered {
		return dispatchSent, nil
	}
	return dispatchFailed, nil
}

// deliver fans the reminder out to its enabled channels. Delivery succeeds
// when at least one channel accepts.
func (d *Dispatcher) deliver(ctx context.Context, r *domain.Reminder, drill *domain.Drill) bool {
	channels := d.registry.Enabled(r.Channels...)
	if len(channels) == 0 {
		d.logger.Warn(ctx, "no enabled channels for reminder", "reminder", r.ID)
		return false
	}
	msg := renderMessage(r, drill)
	delivered := false
	for _, ch := range channels {
		if err := ch.Send(ctx, msg); err != nil {
			d.logger.Warn(ctx, "channel rejected reminder",
				"reminder", r.ID, "channel", ch.ID(), "error", err)
			continue
		}
		delivered = true
	}
	return delivered
}

// renderMessage builds the outbound payload for a reminder. The body shrinks
// with the variant.
func renderMessage(r *domain.Reminder, drill *domain.Drill) notify.Message {
	msg := notify.Message{
		ReminderID: r.ID,
		UserID:     r.UserID,
		Tone:       r.Tone,
		Variant:    r.SparkVariant,
	}
	switch r.SparkVariant {
	case domain.VariantMinimal:
		msg.Title = "Last call"
		msg.Body = fmt.Sprintf("%d minutes. That's all today asks.", drill.EstimatedMinutes)
	case domain.VariantReduced:
		msg.Title = "Still time today"
		msg.Body = fmt.Sprintf("%s (~%d min)", drill.Action, drill.EstimatedMinutes)
	default:
		msg.Title = "Time to practice"
		msg.Body = fmt.Sprintf("%s (~%d min). Success looks like: %s",
			drill.Action, drill.EstimatedMinutes, drill.PassSignal)
	}
	return msg
}

// SweepLapsedDrills expires every non-terminal drill whose scheduled date is
// at least one full day past in its goal's timezone. Returns how many drills
// this pass expired.
func (d *Dispatcher) SweepLapsedDrills(ctx context.Context) (int, error) {
	now := d.clock()
	// The queue scores dates at UTC midnight, so the listing over-selects
	// drills whose local day is still running; the per-drill date check
	// below keeps those alive.
	ids, err := d.store.LapsedDrillIDs(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		ok, err := d.expireDrill(ctx, id, now)
		if err != nil {
			d.logger.Error(ctx, "drill expiry failed", "drill", id, "error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (d *Dispatcher) expireDrill(ctx context.Context, id string, now time.Time) (bool, error) {
	drill, err := d.store.GetDrill(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return false, d.store.RemoveDrillSchedule(ctx, id)
		}
		return false, err
	}
	if drill.Terminal() {
		return false, d.store.RemoveDrillSchedule(ctx, id)
	}

	loc := time.UTC
	if goal, err := d.store.GetGoal(ctx, drill.GoalID); err == nil && goal.Timezone != "" {
		if l, err := time.LoadLocation(goal.Timezone); err == nil {
			loc = l
		}
	}
	// A drill stays live through its own date; it expires only once the
	// local calendar has fully moved past it.
	if drill.ScheduledDate >= domain.Today(now, loc) {
		return false, nil
	}

	if err := drill.Expire(now); err != nil {
		return false, nil
	}
	if _, err := d.store.SaveDrill(ctx, drill, drill.Version); err != nil {
		if isLostRace(err) {
			return false, nil
		}
		return false, err
	}
	if drill.SparkID != "" {
		d.resolveSpark(ctx, drill.SparkID, now)
	}
	return true, nil
}

// resolveSpark skips a still-pending spark of an expired drill and cancels
// its remaining reminders. Races with user completion are tolerated.
func (d *Dispatcher) resolveSpark(ctx context.Context, sparkID string, now time.Time) {
	if _, err := d.store.CancelSparkReminders(ctx, sparkID, now); err != nil {
		d.logger.Warn(ctx, "cancel reminders for expired drill failed", "spark", sparkID, "error", err)
	}
	spark, err := d.store.GetSpark(ctx, sparkID)
	if err != nil || spark.Terminal() {
		return
	}
	if err := spark.Skip(now); err != nil {
		return
	}
	if _, err := d.store.SaveSpark(ctx, spark, spark.Version); err != nil && !isLostRace(err) {
		d.logger.Warn(ctx, "skip spark for expired drill failed", "spark", sparkID, "error", err)
	}
}

// isLostRace reports whether a save failed because another worker already
// moved the entity.
func isLostRace(err error) bool {
	return domain.IsKind(err, domain.KindVersionConflict) ||
		domain.IsKind(err, domain.KindNotFound) ||
		domain.IsKind(err, domain.KindInvalidTransition)
}
