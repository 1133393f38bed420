package sijut

import (
	"context"
	"time"
)

// condition is polled by waitFor until it reports true.
type condition func(ctx context.Context) (bool, error)

// waitFor polls cond every interval until it holds or timeout elapses.
// It reports false on timeout. An error from cond, or ctx ending, stops
// the wait immediately.
func waitFor(ctx context.Context, timeout, interval time.Duration, cond condition) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}
