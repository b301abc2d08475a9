package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/xiaot623/fingenie/internal/logger"
)

// RetryingClient retries transient failures of the wrapped client with
// exponential backoff.
type RetryingClient struct {
	next       LLMClient
	maxRetries uint64
	base       time.Duration
}

// WithRetry wraps next. maxRetries of zero disables retries.
func WithRetry(next LLMClient, maxRetries int, base time.Duration) *RetryingClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return &RetryingClient{next: next, maxRetries: uint64(maxRetries), base: base}
}

// CreateChatCompletion implements LLMClient.
func (r *RetryingClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.base))

	var out *ChatCompletionResponse
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := r.next.CreateChatCompletion(ctx, req)
		if err != nil {
			if isRetryable(ctx, err) {
				logger.FromContext(ctx).Warn("llm call failed, retrying", "model", req.Model, "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}
	return !errors.Is(err, ErrEmptyCompletion)
}
