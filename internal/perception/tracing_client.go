package perception

import (
	"context"
	"time"

	"lifecoach/internal/logging"
	"lifecoach/internal/usage"
)

// TracingLLMClient wraps any LLMClient, logs every call and records it in the
// request metrics carried by the call's context under the context's operation label.
type TracingLLMClient struct {
	underlying LLMClient
}

// NewTracingLLMClient creates a tracing wrapper around an existing LLM client.
func NewTracingLLMClient(underlying LLMClient) *TracingLLMClient {
	return &TracingLLMClient{underlying: underlying}
}

// Complete implements LLMClient.Complete with tracing.
func (tc *TracingLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	return tc.trace(ctx, len(prompt), func() (string, error) {
		return tc.underlying.Complete(ctx, prompt)
	})
}

// CompleteWithSystem implements LLMClient.CompleteWithSystem with tracing.
func (tc *TracingLLMClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return tc.trace(ctx, len(userPrompt), func() (string, error) {
		return tc.underlying.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	})
}

func (tc *TracingLLMClient) trace(ctx context.Context, promptLen int, call func() (string, error)) (string, error) {
	op := usage.OperationFromContext(ctx)
	start := time.Now()
	logging.APIDebug("LLM call started: op=%s prompt_len=%d", op, promptLen)

	resp, err := call()

	usage.RequestFromContext(ctx).RecordLLMCall(op, err)
	if err != nil {
		logging.APIWarn("LLM call failed: op=%s duration=%v err=%v", op, time.Since(start), err)
		return "", err
	}
	logging.API("LLM call completed: op=%s duration=%v response_len=%d", op, time.Since(start), len(resp))
	return resp, nil
}

// Unwrap returns the wrapped client.
func (tc *TracingLLMClient) Unwrap() LLMClient {
	return tc.underlying
}
