package curriculum

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
)

// scriptedClient returns one canned response per call, repeating the last
// entry once the script runs out.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Provider() string { return "scripted" }

func (c *scriptedClient) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	return &llm.Response{
		Content:   c.responses[i],
		Model:     "test-model",
		RequestID: "req_1",
		Usage:     llm.Usage{TotalTokens: 321},
	}, nil
}

func testResources() []Resource {
	return []Resource{
		{Title: "A Tour of Go", URL: "https://go.dev/tour", Provider: "go.dev", Difficulty: "beginner", Minutes: 45, Topics: []string{"basics", "syntax"}},
		{Title: "Effective Go", URL: "https://go.dev/doc/effective_go", Provider: "go.dev", Difficulty: "intermediate", Minutes: 90},
		{Title: "Go by Example", URL: "https://gobyexample.com", Provider: "gobyexample.com", Difficulty: "beginner", Minutes: 60},
	}
}

func testRequest() Request {
	return Request{
		UserID:        "user_a",
		GoalID:        "goal_1",
		GoalTitle:     "Learn Go",
		Days:          2,
		MinutesPerDay: 60,
		Resources:     testResources(),
	}
}

const validPlan = `{
  "title": "Go in Two Days",
  "description": "A short ramp into Go.",
  "difficulty": "beginner",
  "progression": "gradual",
  "days": [
    {
      "day": 1,
      "theme": "Syntax and tooling",
      "objectives": ["read basic Go"],
      "resources": [{"index": 1, "minutes": 45}],
      "exercises": [{"type": "practice", "description": "write hello world", "minutes": 15}],
      "totalMinutes": 60,
      "difficulty": "beginner"
    },
    {
      "day": 2,
      "theme": "Idioms",
      "objectives": ["use slices and maps"],
      "resources": [{"index": 2, "minutes": 40}, {"index": 3, "minutes": 20, "optional": true}],
      "exercises": [],
      "totalMinutes": 60,
      "difficulty": "beginner",
      "prerequisiteDays": [1]
    }
  ]
}`

func TestGenerateResolvesValidPlan(t *testing.T) {
	client := &scriptedClient{responses: []string{validPlan}}
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	s, err := New(client, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	cur, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "Go in Two Days", cur.Title)
	require.Equal(t, "user_a", cur.UserID)
	require.Equal(t, "goal_1", cur.GoalID)
	require.Equal(t, "test-model", cur.Model)
	require.Equal(t, "req_1", cur.RequestID)
	require.Equal(t, 321, cur.TotalTokens)
	require.Equal(t, now, cur.GeneratedAt)
	require.Empty(t, cur.Warnings)

	require.Len(t, cur.Days, 2)
	require.Equal(t, "A Tour of Go", cur.Days[0].Resources[0].Resource.Title)
	require.Equal(t, "https://go.dev/tour", cur.Days[0].Resources[0].Resource.URL)
	require.Equal(t, 3, cur.Days[1].Resources[1].Index)
	require.True(t, cur.Days[1].Resources[1].Optional)
	require.Equal(t, []int{1}, cur.Days[1].PrerequisiteDays)
	require.Equal(t, 1, client.calls)
}

func TestGenerateAcceptsFencedResponse(t *testing.T) {
	fenced := "Here is your plan:\n```json\n" + validPlan + "\n```\nEnjoy!"
	client := &scriptedClient{responses: []string{fenced}}
	s, err := New(client)
	require.NoError(t, err)

	cur, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "Go in Two Days", cur.Title)
}

func TestGenerateOutOfRangeIndexExhaustsRetries(t *testing.T) {
	bad := strings.Replace(validPlan, `{"index": 2, "minutes": 40}`, `{"index": 5, "minutes": 40}`, 1)
	client := &scriptedClient{responses: []string{bad}}
	s, err := New(client, WithMaxRetries(2))
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), testRequest())
	require.True(t, domain.IsKind(err, domain.KindGenerationFailed))
	require.Contains(t, err.Error(), "Invalid resource indices")
	require.Equal(t, 3, client.calls, "initial attempt plus two retries")
}

func TestGenerateRecoversOnRetry(t *testing.T) {
	client := &scriptedClient{responses: []string{"not json at all", validPlan}}
	s, err := New(client, WithMaxRetries(2))
	require.NoError(t, err)

	cur, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "Go in Two Days", cur.Title)
	require.Equal(t, 2, client.calls)
}

func TestGenerateDayGapRejected(t *testing.T) {
	gapped := strings.Replace(validPlan, `"day": 2,`, `"day": 3,`, 1)
	client := &scriptedClient{responses: []string{gapped}}
	s, err := New(client, WithMaxRetries(0))
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), testRequest())
	require.True(t, domain.IsKind(err, domain.KindGenerationFailed))
	require.Contains(t, err.Error(), "gap")
}

func TestGeneratePrerequisiteMustBeEarlier(t *testing.T) {
	bad := strings.Replace(validPlan, `"prerequisiteDays": [1]`, `"prerequisiteDays": [2]`, 1)
	client := &scriptedClient{responses: []string{bad}}
	s, err := New(client, WithMaxRetries(0))
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), testRequest())
	require.True(t, domain.IsKind(err, domain.KindGenerationFailed))
	require.Contains(t, err.Error(), "prerequisite")
}

func TestGenerateSchemaRejectsBadDifficulty(t *testing.T) {
	bad := strings.Replace(validPlan, `"difficulty": "beginner",
  "progression"`, `"difficulty": "expert",
  "progression"`, 1)
	client := &scriptedClient{responses: []string{bad}}
	s, err := New(client, WithMaxRetries(0))
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), testRequest())
	require.True(t, domain.IsKind(err, domain.KindGenerationFailed))
}

func TestGenerateMinutesMismatchWarnsOnly(t *testing.T) {
	off := strings.Replace(validPlan, `"totalMinutes": 60,
      "difficulty": "beginner"
    },`, `"totalMinutes": 90,
      "difficulty": "beginner"
    },`, 1)
	client := &scriptedClient{responses: []string{off}}
	s, err := New(client)
	require.NoError(t, err)

	cur, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, cur.Warnings, 1)
	require.Contains(t, cur.Warnings[0], "does not match")
}

func TestGenerateNoResources(t *testing.T) {
	s, err := New(&scriptedClient{responses: []string{validPlan}})
	require.NoError(t, err)

	req := testRequest()
	req.Resources = nil
	_, err = s.Generate(context.Background(), req)
	require.True(t, domain.IsKind(err, domain.KindValidation))
	require.Contains(t, err.Error(), "no resources")
}

func TestGenerateInvalidDays(t *testing.T) {
	s, err := New(&scriptedClient{responses: []string{validPlan}})
	require.NoError(t, err)

	req := testRequest()
	req.Days = 0
	_, err = s.Generate(context.Background(), req)
	require.True(t, domain.IsKind(err, domain.KindValidation))
	require.Contains(t, err.Error(), "invalid day count")
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil)
	require.True(t, domain.IsKind(err, domain.KindValidation))
	require.Contains(t, err.Error(), "not initialized")
}

func TestGenerateClientValidationIsTerminal(t *testing.T) {
	client := &scriptedClient{
		responses: []string{""},
		errs:      []error{domain.NewError(domain.KindValidation, "prompt exceeds token budget")},
	}
	s, err := New(client, WithMaxRetries(2))
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), testRequest())
	require.True(t, domain.IsKind(err, domain.KindValidation))
	require.Equal(t, 1, client.calls, "no retry on terminal client rejection")
}

func TestGenerateRetriesRateLimit(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"", validPlan},
		errs:      []error{domain.NewRateLimitedError(time.Second, "throttled"), nil},
	}
	s, err := New(client, WithMaxRetries(1))
	require.NoError(t, err)

	cur, err := s.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "Go in Two Days", cur.Title)
	require.Equal(t, 2, client.calls)
}

func TestBuildUserPromptFormat(t *testing.T) {
	prompt := buildUserPrompt("Learn Go", 2, 60, testResources())
	require.Contains(t, prompt, "[1] A Tour of Go (go.dev, beginner, ~45min) — Topics: basics, syntax")
	require.Contains(t, prompt, "[2] Effective Go (go.dev, intermediate, ~90min)")
	require.Contains(t, prompt, "2 days, about 60 minutes per day")
	require.NotContains(t, prompt, "https://", "URLs never reach the model")
}
