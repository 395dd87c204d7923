// Package llm defines the single-turn completion contract the curriculum
// structurer generates against. Provider adapters (anthropic, openai,
// bedrock) satisfy Client; middleware wraps it. The package owns prompt
// sanitization and the token budget so every provider enforces the same
// policy.
package llm

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/emberloop/ember/domain"
)

const (
	// DefaultTimeout bounds one completion round trip.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxTokens caps the completion when a request does not set one.
	DefaultMaxTokens = 4096
	// MaxPromptTokens is the input budget. Requests whose estimated prompt
	// size exceeds it are refused before any provider call.
	MaxPromptTokens = 100000
)

// Request is a single-turn completion request.
type Request struct {
	// System is the system prompt.
	System string `json:"system"`
	// User is the user prompt.
	User string `json:"user"`
	// Model overrides the adapter's default model identifier.
	Model string `json:"model,omitempty"`
	// Temperature is the sampling temperature; zero means provider default.
	Temperature float64 `json:"temperature,omitempty"`
	// MaxTokens caps the completion length; zero falls back to the
	// adapter default.
	MaxTokens int `json:"maxTokens,omitempty"`
	// UserID attributes the request for provider-side abuse detection.
	UserID string `json:"userId,omitempty"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Response is the provider's answer plus its audit trail.
type Response struct {
	// Content is the raw completion text.
	Content string `json:"content"`
	// Model is the model that actually served the request.
	Model string `json:"model"`
	// RequestID is the provider-side request identifier.
	RequestID string `json:"requestId"`
	// Usage reports token consumption.
	Usage Usage `json:"usage"`
}

// Client is a single-turn completion provider. Implementations map provider
// throttling onto RATE_LIMITED errors and refuse unsanitary or over-budget
// prompts with VALIDATION_ERROR.
type Client interface {
	// Complete issues one completion.
	Complete(ctx context.Context, req Request) (*Response, error)
	// Provider names the backing provider for logs and curriculum
	// metadata.
	Provider() string
}

// ValidateRequest enforces the shared request policy: prompts present,
// control characters stripped out by sanitization, estimated input within the
// token budget. Adapters call it before building provider params.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.User) == "" {
		return domain.NewError(domain.KindValidation, "llm request requires a user prompt")
	}
	if req.MaxTokens < 0 {
		return domain.NewError(domain.KindValidation, "llm maxTokens must be >= 0, got %d", req.MaxTokens)
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return domain.NewError(domain.KindValidation, "llm temperature must be in [0,2], got %v", req.Temperature)
	}
	if est := EstimateTokens(req.System) + EstimateTokens(req.User); est > MaxPromptTokens {
		return domain.NewError(domain.KindValidation,
			"llm prompt estimate %d tokens exceeds budget %d", est, MaxPromptTokens)
	}
	return nil
}

// Sanitize strips control characters (except newline and tab) from a prompt
// fragment so user-supplied resource titles cannot smuggle terminal escapes
// or prompt-splitting tricks into the request.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// EstimateTokens approximates the token count of a prompt. Four characters
// per token is the conventional planning estimate; the budget check only
// needs the order of magnitude.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}
