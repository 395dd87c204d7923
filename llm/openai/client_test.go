package openai

import (
	"context"
	"testing"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
)

type stubChatClient struct {
	lastParams oai.ChatCompletionNewParams
	resp       *oai.ChatCompletion
	err        error
}

func (s *stubChatClient) New(_ context.Context, body oai.ChatCompletionNewParams, _ ...option.RequestOption) (*oai.ChatCompletion, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestCompleteTranslatesResponse(t *testing.T) {
	stub := &stubChatClient{
		resp: &oai.ChatCompletion{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []oai.ChatCompletionChoice{
				{Message: oai.ChatCompletionMessage{Content: "{\"title\":\"Go in 7 days\"}"}},
			},
			Usage: oai.CompletionUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		},
	}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o-mini", MaxTokens: 512})
	require.NoError(t, err)

	resp, err := cl.Complete(context.Background(), llm.Request{
		System: "You structure curricula.",
		User:   "Build a 7 day plan.",
		UserID: "user_a",
	})
	require.NoError(t, err)
	require.Equal(t, "{\"title\":\"Go in 7 days\"}", resp.Content)
	require.Equal(t, "gpt-4o-mini", resp.Model)
	require.Equal(t, "chatcmpl-123", resp.RequestID)
	require.Equal(t, llm.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150}, resp.Usage)

	require.EqualValues(t, 512, stub.lastParams.MaxCompletionTokens.Value)
	require.Equal(t, "user_a", stub.lastParams.User.Value)
	require.Len(t, stub.lastParams.Messages, 2, "system then user")
}

func TestCompleteModelOverride(t *testing.T) {
	stub := &stubChatClient{
		resp: &oai.ChatCompletion{
			Choices: []oai.ChatCompletionChoice{{Message: oai.ChatCompletionMessage{Content: "ok"}}},
		},
	}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), llm.Request{User: "plan", Model: "gpt-4o"})
	require.NoError(t, err)
	require.EqualValues(t, "gpt-4o", stub.lastParams.Model)
}

func TestCompleteNoChoices(t *testing.T) {
	stub := &stubChatClient{resp: &oai.ChatCompletion{}}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), llm.Request{User: "plan"})
	require.True(t, domain.IsKind(err, domain.KindBackend))
}

func TestCompleteMapsBackendError(t *testing.T) {
	stub := &stubChatClient{err: context.DeadlineExceeded}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), llm.Request{User: "plan"})
	require.True(t, domain.IsKind(err, domain.KindBackend))
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Options{DefaultModel: "gpt-4o-mini"})
	require.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = New(&stubChatClient{}, Options{})
	require.True(t, domain.IsKind(err, domain.KindValidation))
}
