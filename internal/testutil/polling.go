package testutil

import (
	"context"
	"fmt"
	"time"
)

// Poll repeatedly checks condition until it holds, the timeout expires or
// ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	return err
}

// WaitForState polls getter until predicate accepts its value, and returns
// that value.
//
//	runs, err := WaitForState(ctx, list,
//		func(r []*storage.Run) bool { return len(r) == 1 },
//		5*time.Second, 10*time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		state := getter()
		if predicate(state) {
			return state, nil
		}
		if !time.Now().Before(deadline) {
			var zero T
			return zero, fmt.Errorf("timeout waiting for %T state (threshold: %v)", state, timeout)
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(interval):
		}
	}
}
