// Package openai provides an llm.Client backed by the OpenAI Chat
// Completions API using github.com/openai/openai-go.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
)

type (
	// ChatClient captures the subset of the OpenAI SDK used by the
	// adapter. It is satisfied by the SDK's chat completion service so
	// tests can substitute a mock.
	ChatClient interface {
		New(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) (*oai.ChatCompletion, error)
	}

	// Options configures the OpenAI adapter.
	Options struct {
		// DefaultModel is the model identifier used when
		// llm.Request.Model is empty.
		DefaultModel string

		// MaxTokens caps the completion when a request does not set
		// one. Zero falls back to llm.DefaultMaxTokens.
		MaxTokens int

		// Temperature is used when a request does not set one.
		Temperature float64

		// Timeout bounds one round trip. Zero falls back to
		// llm.DefaultTimeout.
		Timeout time.Duration
	}

	// Client implements llm.Client via OpenAI Chat Completions.
	Client struct {
		chat    ChatClient
		model   string
		maxTok  int
		temp    float64
		timeout time.Duration
	}
)

// New builds an OpenAI-backed completion client.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, domain.NewError(domain.KindValidation, "openai chat client is required")
	}
	if opts.DefaultModel == "" {
		return nil, domain.NewError(domain.KindValidation, "openai default model is required")
	}
	c := &Client{
		chat:    chat,
		model:   opts.DefaultModel,
		maxTok:  opts.MaxTokens,
		temp:    opts.Temperature,
		timeout: opts.Timeout,
	}
	if c.maxTok <= 0 {
		c.maxTok = llm.DefaultMaxTokens
	}
	if c.timeout <= 0 {
		c.timeout = llm.DefaultTimeout
	}
	return c, nil
}

// NewFromAPIKey constructs a client using the default OpenAI HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, domain.NewError(domain.KindValidation, "openai api key is required")
	}
	oc := oai.NewClient(option.WithAPIKey(apiKey))
	return New(&oc.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Provider implements llm.Client.
func (c *Client) Provider() string { return "openai" }

// Complete issues one chat completion.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := llm.ValidateRequest(req); err != nil {
		return nil, err
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}

	var messages []oai.ChatCompletionMessageParamUnion
	if system := llm.Sanitize(req.System); system != "" {
		messages = append(messages, oai.SystemMessage(system))
	}
	messages = append(messages, oai.UserMessage(llm.Sanitize(req.User)))

	params := oai.ChatCompletionNewParams{
		Model:               oai.ChatModel(modelID),
		Messages:            messages,
		MaxCompletionTokens: oai.Int(int64(maxTokens)),
	}
	if t := req.Temperature; t > 0 {
		params.Temperature = oai.Float(t)
	} else if c.temp > 0 {
		params.Temperature = oai.Float(c.temp)
	}
	if req.UserID != "" {
		params.User = oai.String(req.UserID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	completion, err := c.chat.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return translateResponse(completion)
}

// mapError classifies SDK failures: 429 becomes RATE_LIMITED with the
// server's retry-after when present, everything else BACKEND_ERROR.
func mapError(err error) error {
	var apierr *oai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
		e := domain.WrapError(domain.KindRateLimited, err, "openai rate limited")
		e.RetryAfter = retryAfterHeader(apierr.Response)
		return e
	}
	return domain.WrapError(domain.KindBackend, err, "openai chat.completions.new")
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func translateResponse(completion *oai.ChatCompletion) (*llm.Response, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, domain.NewError(domain.KindBackend, "openai returned no choices")
	}
	return &llm.Response{
		Content:   completion.Choices[0].Message.Content,
		Model:     completion.Model,
		RequestID: completion.ID,
		Usage: llm.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}, nil
}
