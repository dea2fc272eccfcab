package retry

import (
	"context"
	"errors"
	"fmt"
)

// Do runs fn, retrying through the context's Retrier (FromContextOrNoop) until
// it succeeds, the retrier declines a further attempt, or max attempts is
// reached. It is a generic, transport-agnostic counterpart to the
// HTTP-specific retry loops in protocol/client: callers that just need "try
// this, retry on transient failure" without HTTP status-code semantics
// should use this instead of hand-rolling a loop.
func Do[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	retrier := FromContextOrNoop(ctx)
	maxAttempts := retrier.MaxAttempts()

	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		if !retrier.ShouldRetry(ctx, err, attempt) {
			return zero, err
		}

		if maxAttempts > 0 && attempt >= maxAttempts {
			return zero, fmt.Errorf("max retry attempts (%d) reached: %w", maxAttempts, err)
		}

		if waitErr := retrier.Wait(ctx, attempt); waitErr != nil {
			if errors.Is(waitErr, context.Canceled) || errors.Is(waitErr, context.DeadlineExceeded) {
				return zero, fmt.Errorf("context cancelled: %w", waitErr)
			}
			return zero, waitErr
		}
	}
}

// DoVoid is Do for operations with no result value.
func DoVoid(ctx context.Context, fn func() error) error {
	_, err := Do(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
