package middleware

import (
	"context"
	"testing"

	"golang.org/x/time/rate"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/llm"
)

type fakeClient struct {
	completeErr   error
	completeCalls int
}

func (f *fakeClient) Provider() string { return "fake" }

func (f *fakeClient) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	f.completeCalls++
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &llm.Response{Content: "ok"}, nil
}

func TestAdaptiveRateLimiter_BackoffOnRateLimited(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60000, 60000)

	initialTPM := limiter.currentTPM

	client := &fakeClient{
		completeErr: domain.NewRateLimitedError(0, "provider throttled"),
	}
	wrapped := limiter.Middleware()(client)

	_, err := wrapped.Complete(context.Background(), llm.Request{User: "hello"})
	if !domain.IsKind(err, domain.KindRateLimited) {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	if limiter.currentTPM >= initialTPM {
		t.Fatalf("expected TPM to decrease, got %f (initial %f)",
			limiter.currentTPM, initialTPM)
	}
}

func TestAdaptiveRateLimiter_ProbeOnSuccess(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60000, 120000)

	limiter.mu.Lock()
	initialTPM := limiter.currentTPM
	limiter.recoveryRate = 1000
	limiter.mu.Unlock()

	client := &fakeClient{}
	wrapped := limiter.Middleware()(client)

	_, err := wrapped.Complete(context.Background(), llm.Request{User: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	if limiter.currentTPM <= initialTPM {
		t.Fatalf("expected TPM to increase, got %f (initial %f)",
			limiter.currentTPM, initialTPM)
	}
}

func TestAdaptiveRateLimiter_BackendErrorLeavesBudget(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60000, 120000)

	initialTPM := limiter.currentTPM

	client := &fakeClient{
		completeErr: domain.NewError(domain.KindBackend, "upstream down"),
	}
	wrapped := limiter.Middleware()(client)

	_, err := wrapped.Complete(context.Background(), llm.Request{User: "hello"})
	if !domain.IsKind(err, domain.KindBackend) {
		t.Fatalf("expected BACKEND_ERROR, got %v", err)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	if limiter.currentTPM != initialTPM {
		t.Fatalf("expected TPM unchanged, got %f (initial %f)",
			limiter.currentTPM, initialTPM)
	}
}

func TestAdaptiveRateLimiter_RefusesWhenExhausted(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60, 60)

	limiter.mu.Lock()
	// Configure an impossible limiter so any non-zero token request fails
	// immediately. This exercises the error path without relying on timing.
	limiter.limiter = rate.NewLimiter(0, 0)
	limiter.mu.Unlock()

	client := &fakeClient{}
	wrapped := limiter.Middleware()(client)

	longText := make([]byte, 600)
	for i := range longText {
		longText[i] = 'a'
	}

	_, err := wrapped.Complete(context.Background(), llm.Request{User: string(longText)})
	if !domain.IsKind(err, domain.KindRateLimited) {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}
	if client.completeCalls != 0 {
		t.Fatalf("expected underlying client not to be called, got %d calls",
			client.completeCalls)
	}
}

func TestEstimateCostMonotonic(t *testing.T) {
	small := estimateCost(llm.Request{User: "short"})
	big := estimateCost(llm.Request{User: "this is a much longer message than the short one above"})

	if small <= 0 {
		t.Fatalf("expected positive cost for small request, got %d", small)
	}
	if big <= small {
		t.Fatalf("expected larger cost for larger request, small=%d big=%d",
			small, big)
	}
}
