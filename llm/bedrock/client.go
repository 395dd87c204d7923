// Package bedrock provides an llm.Client backed by the AWS Bedrock Converse
// API. It splits the system prompt from the user turn, issues a single
// Converse call, and maps AWS throttling onto the engine's rate-limit
// taxonomy.
package bedrock

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmw "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client required
// by the adapter. It matches *bedrockruntime.Client so callers can pass
// either the real client or a mock in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	// DefaultModel is the model identifier used when llm.Request.Model is
	// empty (e.g. an inference profile ARN or a foundation model id).
	DefaultModel string

	// MaxTokens caps the completion when a request does not set one. Zero
	// falls back to llm.DefaultMaxTokens.
	MaxTokens int

	// Temperature is used when a request does not set one.
	Temperature float64

	// Timeout bounds one round trip. Zero falls back to
	// llm.DefaultTimeout.
	Timeout time.Duration
}

// Client implements llm.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime RuntimeClient
	model   string
	maxTok  int
	temp    float64
	timeout time.Duration
}

// New builds a Bedrock-backed completion client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, domain.NewError(domain.KindValidation, "bedrock runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, domain.NewError(domain.KindValidation, "bedrock default model is required")
	}
	c := &Client{
		runtime: runtime,
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

// Provider implements llm.Client.
func (c *Client) Provider() string { return "bedrock" }

// Complete issues one Converse call.
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

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		Messages: []brtypes.Message{{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: llm.Sanitize(req.User)},
			},
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(maxTokens)),
		},
	}
	if system := llm.Sanitize(req.System); system != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: system},
		}
	}
	if t := req.Temperature; t > 0 {
		input.InferenceConfig.Temperature = aws.Float32(float32(t))
	} else if c.temp > 0 {
		input.InferenceConfig.Temperature = aws.Float32(float32(c.temp))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return translateResponse(out, modelID)
}

// mapError classifies AWS failures: throttling codes and HTTP 429 become
// RATE_LIMITED, everything else BACKEND_ERROR.
func mapError(err error) error {
	if isThrottled(err) {
		return domain.WrapError(domain.KindRateLimited, err, "bedrock rate limited")
	}
	return domain.WrapError(domain.KindBackend, err, "bedrock converse")
}

func isThrottled(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusTooManyRequests
}

func translateResponse(out *bedrockruntime.ConverseOutput, modelID string) (*llm.Response, error) {
	if out == nil {
		return nil, domain.NewError(domain.KindBackend, "bedrock returned an empty response")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, domain.NewError(domain.KindBackend, "bedrock returned no message output")
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	resp := &llm.Response{
		Content: sb.String(),
		Model:   modelID,
	}
	if id, ok := awsmw.GetRequestIDMetadata(out.ResultMetadata); ok {
		resp.RequestID = id
	}
	if u := out.Usage; u != nil {
		resp.Usage = llm.Usage{
			InputTokens:  int(aws.ToInt32(u.InputTokens)),
			OutputTokens: int(aws.ToInt32(u.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(u.TotalTokens)),
		}
	}
	return resp, nil
}
