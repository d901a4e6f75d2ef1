package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// ThrottledClient paces outbound calls to a generation backend.
//
// A local model server typically serves one request at a time; pacing keeps
// a burst of crafting requests from piling up behind it. Callers blocked on
// the limiter give up when their context ends.
type ThrottledClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewThrottledClient allows perSecond calls per second with the given burst.
// A non-positive perSecond disables pacing.
func NewThrottledClient(inner LLMClient, perSecond float64, burst int) *ThrottledClient {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledClient{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Generate implements the LLMClient interface
func (t *ThrottledClient) Generate(ctx context.Context, prompt string, params GenerationParams) (*Completion, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for generation slot: %w", err)
	}
	return t.inner.Generate(ctx, prompt, params)
}

// Chat forwards to the inner client's Chat, or to Generate with the
// messages flattened when the inner client has no chat endpoint.
func (t *ThrottledClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (*Completion, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for generation slot: %w", err)
	}
	if chat, ok := t.inner.(ChatClient); ok {
		return chat.Chat(ctx, messages, params)
	}
	return t.inner.Generate(ctx, FlattenChatML(messages), params)
}

// Unwrap returns the paced client.
func (t *ThrottledClient) Unwrap() LLMClient {
	return t.inner
}
