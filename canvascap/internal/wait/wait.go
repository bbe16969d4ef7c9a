// Package wait provides bounded polling for UI state that settles
// asynchronously.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Until when the condition did not hold before the
// deadline.
var ErrTimeout = errors.New("wait: timeout")

// Cond reports whether the awaited state has been reached.
type Cond func(ctx context.Context) (bool, error)

// Until polls cond every interval until it returns true, returns an error,
// the timeout elapses, or ctx is done. cond is always evaluated at least once.
func Until(ctx context.Context, timeout, interval time.Duration, cond Cond) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
