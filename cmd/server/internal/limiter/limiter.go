// Package limiter bounds the number of concurrent outbound inference calls.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
)

// ErrBusy is returned when no slot frees up within the acquire timeout.
var ErrBusy = errors.New("inference capacity exhausted")

// Limiter controls the maximum number of concurrent calls per capability.
// Each capability has its own semaphore so a burst of one kind of call
// cannot starve the others.
type Limiter struct {
	semaphores     map[inference.Capability]*semaphore.Weighted
	maxConcurrent  int
	acquireTimeout time.Duration
	mu             sync.RWMutex
}

// New creates a limiter with maxConcurrent slots for every known capability.
// Acquire waits at most acquireTimeout for a slot.
func New(maxConcurrent int, acquireTimeout time.Duration) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	l := &Limiter{
		semaphores:     make(map[inference.Capability]*semaphore.Weighted),
		maxConcurrent:  maxConcurrent,
		acquireTimeout: acquireTimeout,
	}
	for _, c := range inference.AllCapabilities {
		l.semaphores[c] = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return l
}

// Acquire blocks until a slot for capability is available.
// It returns ErrBusy when the acquire timeout elapses and ctx.Err() when the
// caller's context ends first.
func (l *Limiter) Acquire(ctx context.Context, c inference.Capability) error {
	l.mu.RLock()
	sem, exists := l.semaphores[c]
	l.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no semaphore configured for capability: %s", c)
	}

	timeoutCtx := ctx
	if l.acquireTimeout > 0 {
		var cancel context.CancelFunc
		timeoutCtx, cancel = context.WithTimeout(ctx, l.acquireTimeout)
		defer cancel()
	}

	if err := sem.Acquire(timeoutCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s after %s", ErrBusy, c, l.acquireTimeout)
	}
	return nil
}

// Release returns a slot for capability. Call it once per successful Acquire.
func (l *Limiter) Release(c inference.Capability) {
	l.mu.RLock()
	sem, exists := l.semaphores[c]
	l.mu.RUnlock()

	if exists {
		sem.Release(1)
	}
}

// MaxConcurrent returns the per-capability slot count.
func (l *Limiter) MaxConcurrent() int {
	return l.maxConcurrent
}
