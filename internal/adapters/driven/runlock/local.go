// Package runlock implements driven.RunLock, the optional single-flight
// guard around pipeline runs.
//
// Local excludes runs inside one process. Redis excludes runs across every
// process sharing the redis instance.
package runlock

import (
	"context"
	"sync"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// Ensure Local implements the interface.
var _ driven.RunLock = (*Local)(nil)

// Local is an in-process lock keyed by name.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocal creates an in-process lock.
func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

// Acquire takes key without waiting.
func (l *Local) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, domain.ErrRunInProgress
	}
	l.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
