// Package anthropic provides an llm.Client backed by the Anthropic Claude
// Messages API. It translates single-turn requests into anthropic.Message
// calls using github.com/anthropics/anthropic-sdk-go and maps throttling onto
// the engine's rate-limit taxonomy.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
)

type (
	// MessagesClient captures the subset of the Anthropic SDK client used
	// by the adapter. It is satisfied by *sdk.MessageService so callers can
	// pass either a real client or a mock in tests.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	}

	// Options configures the Anthropic adapter.
	Options struct {
		// DefaultModel is the Claude model identifier used when
		// llm.Request.Model is empty. Use the typed constants from
		// anthropic-sdk-go or the identifiers in Anthropic's model
		// reference.
		DefaultModel string

		// MaxTokens caps the completion when a request does not set one.
		// Zero falls back to llm.DefaultMaxTokens.
		MaxTokens int

		// Temperature is used when a request does not set one.
		Temperature float64

		// Timeout bounds one round trip. Zero falls back to
		// llm.DefaultTimeout.
		Timeout time.Duration
	}

	// Client implements llm.Client on top of Anthropic Claude Messages.
	Client struct {
		msg     MessagesClient
		model   string
		maxTok  int
		temp    float64
		timeout time.Duration
	}
)

// New builds an Anthropic-backed completion client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, domain.NewError(domain.KindValidation, "anthropic messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, domain.NewError(domain.KindValidation, "anthropic default model is required")
	}
	c := &Client{
		msg:     msg,
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

// NewFromAPIKey constructs a client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, domain.NewError(domain.KindValidation, "anthropic api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Provider implements llm.Client.
func (c *Client) Provider() string { return "anthropic" }

// Complete issues a non-streaming Messages.New request.
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
	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(llm.Sanitize(req.User))),
		},
	}
	if system := llm.Sanitize(req.System); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if t := effectiveTemperature(req.Temperature, c.temp); t > 0 {
		params.Temperature = sdk.Float(t)
	}
	if req.UserID != "" {
		params.Metadata = sdk.MetadataParam{UserID: sdk.String(req.UserID)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return translateResponse(msg)
}

func effectiveTemperature(requested, fallback float64) float64 {
	if requested > 0 {
		return requested
	}
	return fallback
}

// mapError classifies SDK failures: 429 becomes RATE_LIMITED with the
// server's retry-after when present, everything else BACKEND_ERROR.
func mapError(err error) error {
	var apierr *sdk.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
		e := domain.WrapError(domain.KindRateLimited, err, "anthropic rate limited")
		e.RetryAfter = retryAfterHeader(apierr.Response)
		return e
	}
	return domain.WrapError(domain.KindBackend, err, "anthropic messages.new")
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

func translateResponse(msg *sdk.Message) (*llm.Response, error) {
	if msg == nil {
		return nil, domain.NewError(domain.KindBackend, "anthropic returned an empty response")
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	resp := &llm.Response{
		Content:   sb.String(),
		Model:     string(msg.Model),
		RequestID: msg.ID,
	}
	if u := msg.Usage; u.InputTokens != 0 || u.OutputTokens != 0 {
		resp.Usage = llm.Usage{
			InputTokens:  int(u.InputTokens),
			OutputTokens: int(u.OutputTokens),
			TotalTokens:  int(u.InputTokens + u.OutputTokens),
		}
	}
	return resp, nil
}
