package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
	"github.com/emberloop/ember/telemetry"
)

const (
	// DefaultMaxRetries is how many times a retryable failure is retried
	// before generation gives up.
	DefaultMaxRetries = 2

	// DefaultTemperature is used when the caller does not set one.
	DefaultTemperature = 0.7

	// minutesTolerance bounds the accepted gap between a day's declared
	// totalMinutes and the sum of its itemized minutes before a warning is
	// recorded.
	minutesTolerance = 5
)

type (
	// Request describes one generation call.
	Request struct {
		// UserID attributes the request for provider-side audit.
		UserID string
		// GoalID links the curriculum back to the goal it serves.
		GoalID string
		// GoalTitle seeds the prompt.
		GoalTitle string
		// Days is the plan length. Must be at least 1.
		Days int
		// MinutesPerDay is the daily study budget in minutes.
		MinutesPerDay int
		// Resources is the verified resource list. Must be non-empty.
		Resources []Resource
	}

	// Structurer runs the generation pipeline against an llm.Client.
	Structurer struct {
		client llm.Client
		schema *jsonschema.Schema

		model       string
		temperature float64
		maxRetries  int

		logger  telemetry.Logger
		metrics telemetry.Metrics
		clock   func() time.Time
	}

	// Option customizes a Structurer.
	Option func(*Structurer)
)

// WithModel overrides the client's default model.
func WithModel(model string) Option {
	return func(s *Structurer) { s.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *Structurer) { s.temperature = t }
}

// WithMaxRetries sets how many retryable failures are retried.
func WithMaxRetries(n int) Option {
	return func(s *Structurer) { s.maxRetries = n }
}

// WithLogger sets the structured logger.
func WithLogger(l telemetry.Logger) Option {
	return func(s *Structurer) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(s *Structurer) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Structurer) { s.clock = clock }
}

// New builds a Structurer around client.
func New(client llm.Client, opts ...Option) (*Structurer, error) {
	if client == nil {
		return nil, domain.NewError(domain.KindValidation, "llm client not initialized")
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "plan schema")
	}
	s := &Structurer{
		client:      client,
		schema:      schema,
		temperature: DefaultTemperature,
		maxRetries:  DefaultMaxRetries,
		logger:      telemetry.NewNoopLogger(),
		metrics:     telemetry.NewNoopMetrics(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	return s, nil
}

// Generate runs the full pipeline: prompt, complete, extract, validate,
// cross-check, resolve. Structural failures are retried with the same prompt
// up to the configured retry budget; validation failures of the request
// itself and sanitization refusals from the client are terminal.
func (s *Structurer) Generate(ctx context.Context, req Request) (*ResolvedCurriculum, error) {
	if len(req.Resources) == 0 {
		return nil, domain.NewError(domain.KindValidation, "no resources to structure")
	}
	if req.Days < 1 {
		return nil, domain.NewError(domain.KindValidation, "invalid day count %d", req.Days)
	}

	llmReq := llm.Request{
		System:      systemPrompt,
		User:        buildUserPrompt(req.GoalTitle, req.Days, req.MinutesPerDay, req.Resources),
		Model:       s.model,
		Temperature: s.temperature,
		UserID:      req.UserID,
	}
	if err := llm.ValidateRequest(llmReq); err != nil {
		return nil, err
	}

	started := s.clock()
	attempts := s.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := s.client.Complete(ctx, llmReq)
		if err != nil {
			if domain.IsKind(err, domain.KindValidation) {
				return nil, err
			}
			lastErr = err
			s.logger.Warn(ctx, "curriculum completion failed",
				"attempt", attempt, "err", err)
			continue
		}

		plan, warnings, err := s.checkPlan(resp.Content, req)
		if err != nil {
			lastErr = err
			s.metrics.IncCounter("curriculum.plan_rejected", 1)
			s.logger.Warn(ctx, "curriculum plan rejected",
				"attempt", attempt, "err", err)
			continue
		}

		cur := resolve(plan, req, resp, warnings)
		cur.GeneratedAt = s.clock()
		cur.Temperature = s.temperature
		s.metrics.IncCounter("curriculum.generated", 1)
		s.metrics.RecordTimer("curriculum.generation", s.clock().Sub(started))
		return cur, nil
	}
	s.metrics.IncCounter("curriculum.generation_failed", 1)
	return nil, domain.WrapError(domain.KindGenerationFailed, lastErr,
		"curriculum generation failed after %d attempts", attempts)
}

// checkPlan extracts, schema-validates, and cross-checks one raw response.
func (s *Structurer) checkPlan(raw string, req Request) (*Plan, []string, error) {
	text, err := extractJSON(raw)
	if err != nil {
		return nil, nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, nil, domain.WrapError(domain.KindValidation, err, "response is not valid JSON")
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, nil, domain.WrapError(domain.KindValidation, err, "plan failed schema validation")
	}

	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, nil, domain.WrapError(domain.KindValidation, err, "plan decode")
	}

	if err := checkIndices(&plan, len(req.Resources)); err != nil {
		return nil, nil, err
	}
	if err := checkDaySequence(&plan); err != nil {
		return nil, nil, err
	}
	if err := checkPrerequisites(&plan); err != nil {
		return nil, nil, err
	}
	return &plan, collectWarnings(&plan), nil
}

// checkIndices enforces that every resource reference lands inside the input
// list. The message lists the offending indices for the retry log.
func checkIndices(plan *Plan, resourceCount int) error {
	var bad []int
	for _, day := range plan.Days {
		for _, ref := range day.Resources {
			if ref.Index < 1 || ref.Index > resourceCount {
				bad = append(bad, ref.Index)
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Ints(bad)
	return domain.NewError(domain.KindValidation,
		"Invalid resource indices: %v (have %d resources)", bad, resourceCount)
}

// checkDaySequence enforces day numbers 1..N with no gaps or duplicates.
func checkDaySequence(plan *Plan) error {
	seen := make(map[int]bool, len(plan.Days))
	for _, day := range plan.Days {
		if seen[day.Day] {
			return domain.NewError(domain.KindValidation, "duplicate day %d", day.Day)
		}
		seen[day.Day] = true
	}
	for n := 1; n <= len(plan.Days); n++ {
		if !seen[n] {
			return domain.NewError(domain.KindValidation,
				"day sequence has a gap at day %d", n)
		}
	}
	return nil
}

// checkPrerequisites enforces that prerequisites only point at earlier days.
func checkPrerequisites(plan *Plan) error {
	for _, day := range plan.Days {
		for _, p := range day.PrerequisiteDays {
			if p >= day.Day {
				return domain.NewError(domain.KindValidation,
					"day %d lists prerequisite day %d, which is not earlier", day.Day, p)
			}
		}
	}
	return nil
}

// collectWarnings records non-fatal findings: minutes that do not add up and
// non-ASCII text in themes or descriptions.
func collectWarnings(plan *Plan) []string {
	var warnings []string
	for _, day := range plan.Days {
		sum := 0
		for _, r := range day.Resources {
			sum += r.Minutes
		}
		for _, e := range day.Exercises {
			sum += e.Minutes
		}
		if diff := day.TotalMinutes - sum; diff > minutesTolerance || diff < -minutesTolerance {
			warnings = append(warnings, fmt.Sprintf(
				"day %d: totalMinutes %d does not match itemized sum %d",
				day.Day, day.TotalMinutes, sum))
		}
		if !isPrintableASCII(day.Theme) {
			warnings = append(warnings, fmt.Sprintf(
				"day %d: theme contains non-ASCII characters", day.Day))
		}
	}
	if !isPrintableASCII(plan.Description) {
		warnings = append(warnings, "description contains non-ASCII characters")
	}
	return warnings
}

func isPrintableASCII(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return (r < ' ' || r > '~') && r != '\n' && r != '\t'
	}) < 0
}

// resolve attaches the full input record to every resource reference and
// stamps generation metadata.
func resolve(plan *Plan, req Request, resp *llm.Response, warnings []string) *ResolvedCurriculum {
	cur := &ResolvedCurriculum{
		ID:          domain.NewID("curriculum"),
		UserID:      req.UserID,
		GoalID:      req.GoalID,
		Title:       plan.Title,
		Description: plan.Description,
		Difficulty:  plan.Difficulty,
		Progression: plan.Progression,
		Days:        make([]ResolvedDay, 0, len(plan.Days)),
		Warnings:    warnings,
		Model:       resp.Model,
		RequestID:   resp.RequestID,
		TotalTokens: resp.Usage.TotalTokens,
	}
	for _, day := range plan.Days {
		rd := ResolvedDay{
			Day:              day.Day,
			Theme:            day.Theme,
			Objectives:       day.Objectives,
			Exercises:        day.Exercises,
			TotalMinutes:     day.TotalMinutes,
			Difficulty:       day.Difficulty,
			PrerequisiteDays: day.PrerequisiteDays,
			Resources:        make([]ResolvedResource, 0, len(day.Resources)),
		}
		for _, ref := range day.Resources {
			rd.Resources = append(rd.Resources, ResolvedResource{
				Index:    ref.Index,
				Minutes:  ref.Minutes,
				Optional: ref.Optional,
				Focus:    ref.Focus,
				Resource: req.Resources[ref.Index-1],
			})
		}
		cur.Days = append(cur.Days, rd)
	}
	return cur
}
