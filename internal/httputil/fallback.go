package httputil

import (
	"context"
	"errors"
	"time"
)

// FirstSuccess runs fn against each endpoint in ranked order and
// returns the first successful result. Every attempt gets its own
// timeout, so one hung endpoint costs at most attemptTimeout before
// the next is tried. When all endpoints fail, the last error is
// returned for diagnostics.
func FirstSuccess[T any](ctx context.Context, endpoints []string, attemptTimeout time.Duration, fn func(ctx context.Context, endpoint string) (T, error)) (T, error) {
	var zero T
	if len(endpoints) == 0 {
		return zero, errors.New("no endpoints to try")
	}

	var lastErr error
	for _, ep := range endpoints {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		out, err := fn(attemptCtx, ep)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
