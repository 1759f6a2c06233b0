package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Completion failures fall into three buckets. Transient and timeout
// failures may be retried with backoff; fatal ones (bad credentials, bad
// configuration) surface immediately.
var (
	ErrTransient = errors.New("transient completion failure")
	ErrFatal     = errors.New("fatal completion failure")
	ErrTimeout   = errors.New("completion timed out")
)

// Retryable reports whether a retrying client should attempt err again.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// classifyStatus maps an HTTP status from a completion backend onto the
// taxonomy: auth problems are fatal, rate limits and server errors are
// transient, anything else keeps the original error.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrFatal, err)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	default:
		return err
	}
}

// classifyCtx recognizes deadline and cancellation conditions. A deadline is
// treated like a transient failure by the retry policy; cancellation is
// passed through untouched so callers see their own context error.
func classifyCtx(ctx context.Context, err error) (error, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err), true
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return err, true
	default:
		return nil, false
	}
}
