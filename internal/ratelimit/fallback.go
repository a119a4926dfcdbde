package ratelimit

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoEndpoints is returned when a fallback chain is invoked with an empty
// endpoint list.
var ErrNoEndpoints = errors.New("fallback: no endpoints configured")

// CallWithFallback tries fn against each endpoint in order and returns the
// first success. It fails only when every endpoint has been exhausted,
// returning the last endpoint's error.
func CallWithFallback[T any](ctx context.Context, endpoints []string, fn func(ctx context.Context, endpoint string) (T, error)) (T, error) {
	var zero T
	if len(endpoints) == 0 {
		return zero, ErrNoEndpoints
	}

	var lastErr error
	for _, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx, endpoint)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return zero, fmt.Errorf("all %d endpoints failed: %w", len(endpoints), lastErr)
}
