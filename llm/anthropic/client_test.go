package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestCompleteTranslatesResponse(t *testing.T) {
	stub := &stubMessagesClient{
		resp: &sdk.Message{
			ID:    "msg_123",
			Model: "claude-sonnet-4-5",
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "{\"title\":\"Python in 7 days\"}"},
			},
			Usage: sdk.Usage{InputTokens: 120, OutputTokens: 80},
		},
	}
	cl, err := New(stub, Options{DefaultModel: "claude-sonnet-4-5", MaxTokens: 256})
	require.NoError(t, err)

	resp, err := cl.Complete(context.Background(), llm.Request{
		System:      "You structure curricula.",
		User:        "Build a 7 day plan.",
		Temperature: 0.2,
		UserID:      "user_a",
	})
	require.NoError(t, err)
	require.Equal(t, "{\"title\":\"Python in 7 days\"}", resp.Content)
	require.Equal(t, "claude-sonnet-4-5", resp.Model)
	require.Equal(t, "msg_123", resp.RequestID)
	require.Equal(t, llm.Usage{InputTokens: 120, OutputTokens: 80, TotalTokens: 200}, resp.Usage)

	require.EqualValues(t, 256, stub.lastParams.MaxTokens)
	require.Len(t, stub.lastParams.System, 1)
	require.Equal(t, "You structure curricula.", stub.lastParams.System[0].Text)
	require.Equal(t, "user_a", stub.lastParams.Metadata.UserID.Value)
}

func TestCompleteRequiresUserPrompt(t *testing.T) {
	cl, err := New(&stubMessagesClient{}, Options{DefaultModel: "claude-sonnet-4-5"})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), llm.Request{System: "sys"})
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestCompleteSanitizesControlCharacters(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: "ok"}},
	}}
	cl, err := New(stub, Options{DefaultModel: "claude-sonnet-4-5"})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), llm.Request{User: "plan\x1b[2Jfor\x00me"})
	require.NoError(t, err)
	require.Equal(t, "plan[2Jforme",
		stub.lastParams.Messages[0].Content[0].OfText.Text)
}

func TestCompleteRefusesOverBudgetPrompt(t *testing.T) {
	cl, err := New(&stubMessagesClient{}, Options{DefaultModel: "claude-sonnet-4-5"})
	require.NoError(t, err)

	huge := make([]byte, (llm.MaxPromptTokens+1)*4)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err = cl.Complete(context.Background(), llm.Request{User: string(huge)})
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestCompleteMapsBackendError(t *testing.T) {
	stub := &stubMessagesClient{err: context.DeadlineExceeded}
	cl, err := New(stub, Options{DefaultModel: "claude-sonnet-4-5"})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), llm.Request{User: "plan"})
	require.True(t, domain.IsKind(err, domain.KindBackend))
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Options{DefaultModel: "claude-sonnet-4-5"})
	require.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = New(&stubMessagesClient{}, Options{})
	require.True(t, domain.IsKind(err, domain.KindValidation))
}
