// Package syncx provides a context-aware mutex built on a weighted
// semaphore, for callers that must give up on lock acquisition when
// their deadline expires instead of blocking forever.
package syncx

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Mutex is a mutual-exclusion lock whose acquisition honors context
// cancellation. The zero value is not usable; call NewMutex.
type Mutex struct {
	sem *semaphore.Weighted
}

func NewMutex() *Mutex {
	return &Mutex{sem: semaphore.NewWeighted(1)}
}

// Lock blocks until the lock is held.
func (m *Mutex) Lock() {
	_ = m.sem.Acquire(context.Background(), 1)
}

// LockContext blocks until the lock is held or ctx is done, returning
// ctx.Err() in the latter case.
func (m *Mutex) LockContext(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

func (m *Mutex) Unlock() {
	m.sem.Release(1)
}
