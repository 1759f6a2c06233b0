package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

// RetryPolicy bounds the retry behavior of a retrying client. Zero values
// fall back to sensible defaults; MaxRetries counts retries, not attempts.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type retryingClient struct {
	inner  Client
	policy RetryPolicy
	logger *log.Logger
}

// NewRetryingClient wraps inner with bounded exponential backoff. Only
// transient and timeout failures are retried; fatal errors and context
// cancellation pass straight through. Every retry is logged so the policy
// is visible to operators, never silent.
func NewRetryingClient(inner Client, policy RetryPolicy, logger *log.Logger) Client {
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 500 * time.Millisecond
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = 10 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	return &retryingClient{inner: inner, policy: policy, logger: logger}
}

func (c *retryingClient) Generate(ctx context.Context, messages []Message) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.InitialInterval
	bo.MaxInterval = c.policy.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by retry count and context, not wall clock

	var answer string
	operation := func() error {
		generated, err := c.inner.Generate(ctx, messages)
		if err != nil {
			if !Retryable(err) || errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			return err
		}
		answer = generated
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying completion request", "error", err, "wait", wait)
	}

	wrapped := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.policy.MaxRetries)), ctx)
	if err := backoff.RetryNotify(operation, wrapped, notify); err != nil {
		return "", err
	}
	return answer, nil
}
