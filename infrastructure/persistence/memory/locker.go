package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aokaito/annotune-sub000/pkg/errors"
)

// DocumentLocker is a process-local ports.DocumentLocker. Each resource
// maps to a one-slot channel; holding the slot holds the lock.
type DocumentLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewDocumentLocker creates a locker that waits up to wait for a held lock
func NewDocumentLocker(wait time.Duration) *DocumentLocker {
	return &DocumentLocker{
		slots: make(map[string]chan struct{}),
		wait:  wait,
	}
}

// Acquire blocks until the resource is free, the wait expires or ctx ends
func (l *DocumentLocker) Acquire(ctx context.Context, resource string) (func(context.Context) error, error) {
	l.mu.Lock()
	slot, ok := l.slots[resource]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[resource] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
	case <-timer.C:
		return nil, errors.LockContention(resource)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}
