package driven

import "context"

// RunLock provides single-flight exclusion across pipeline runs.
type RunLock interface {
	// Acquire takes the lock for key without waiting.
	// Returns domain.ErrRunInProgress if another holder has it.
	// The returned release func must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
