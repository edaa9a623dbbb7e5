package perception

import (
	"context"
	"sync/atomic"
	"time"

	"homeplan/internal/logging"
)

// TracingClient logs every call to the wrapped client and counts them.
type TracingClient struct {
	inner  LLMClient
	calls  atomic.Int64
	errors atomic.Int64
}

// NewTracingClient wraps inner.
func NewTracingClient(inner LLMClient) *TracingClient {
	return &TracingClient{inner: inner}
}

// Complete forwards and logs.
func (t *TracingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return t.trace(func() (string, error) { return t.inner.Complete(ctx, prompt) }, len(prompt))
}

// CompleteWithSystem forwards and logs.
func (t *TracingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return t.trace(func() (string, error) {
		return t.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	}, len(systemPrompt)+len(userPrompt))
}

func (t *TracingClient) trace(call func() (string, error), promptLen int) (string, error) {
	n := t.calls.Add(1)
	start := time.Now()
	logging.APIDebug("call #%d: prompt %d chars", n, promptLen)

	out, err := call()
	if err != nil {
		t.errors.Add(1)
		logging.APIError("call #%d failed after %v: %v", n, time.Since(start), err)
		return "", err
	}
	logging.API("call #%d ok in %v: %d chars", n, time.Since(start), len(out))
	return out, nil
}

// Calls returns the number of calls made.
func (t *TracingClient) Calls() int64 { return t.calls.Load() }

// Errors returns the number of failed calls.
func (t *TracingClient) Errors() int64 { return t.errors.Load() }
