package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	base := errors.New("upstream said no")

	t.Run("Should treat auth failures as fatal", func(t *testing.T) {
		assert.ErrorIs(t, classifyStatus(401, base), ErrFatal)
		assert.ErrorIs(t, classifyStatus(403, base), ErrFatal)
	})

	t.Run("Should treat rate limits and server errors as transient", func(t *testing.T) {
		assert.ErrorIs(t, classifyStatus(429, base), ErrTransient)
		assert.ErrorIs(t, classifyStatus(500, base), ErrTransient)
		assert.ErrorIs(t, classifyStatus(503, base), ErrTransient)
	})

	t.Run("Should pass other statuses through unclassified", func(t *testing.T) {
		err := classifyStatus(404, base)
		assert.ErrorIs(t, err, base)
		assert.False(t, Retryable(err))
	})
}

func TestClassifyCtx(t *testing.T) {
	t.Run("Should map an exceeded deadline to ErrTimeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		err, ok := classifyCtx(ctx, ctx.Err())
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.True(t, Retryable(err))
	})

	t.Run("Should pass cancellation through untouched", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err, ok := classifyCtx(ctx, ctx.Err())
		require.True(t, ok)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, Retryable(err))
	})

	t.Run("Should not claim unrelated errors", func(t *testing.T) {
		_, ok := classifyCtx(context.Background(), errors.New("boom"))
		assert.False(t, ok)
	})
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrTransient))
	assert.True(t, Retryable(ErrTimeout))
	assert.False(t, Retryable(ErrFatal))
	assert.False(t, Retryable(errors.New("other")))
}
