package perception

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited enforces a minimum spacing between calls to the wrapped
// client. Callers block until the next slot or until ctx is done.
type RateLimited struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimited wraps inner. A non-positive minDelay disables limiting.
func NewRateLimited(inner LLMClient, minDelay time.Duration) *RateLimited {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, 1)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Complete waits for a slot and forwards the prompt.
func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Complete(ctx, prompt)
}

// CompleteWithSystem waits for a slot and forwards the prompts.
func (r *RateLimited) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
}
