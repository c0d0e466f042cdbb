// Package gate serializes guestbook writes so concurrent submissions never
// interleave appends into the log.
package gate

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned when the lock could not be acquired within the wait
// window. Callers should surface it as a transient "try again" condition.
var ErrBusy = errors.New("gate: server is busy")

// Gate is the abstraction over different lock backends.
type Gate interface {
	// Acquire blocks until the lock is held, the wait window elapses
	// (ErrBusy), or ctx is done. On success the returned func releases
	// the lock and must be called on every exit path.
	Acquire(ctx context.Context) (func(), error)
}

// InMemory is a channel-backed gate for single-instance deployments and
// tests.
type InMemory struct {
	slot chan struct{}
	wait time.Duration
}

// NewInMemory creates a gate that waits up to wait for the lock.
func NewInMemory(wait time.Duration) *InMemory {
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &InMemory{slot: make(chan struct{}, 1), wait: wait}
}

// Acquire takes the single slot or gives up after the wait window.
func (g *InMemory) Acquire(ctx context.Context) (func(), error) {
	timer := time.NewTimer(g.wait)
	defer timer.Stop()

	select {
	case g.slot <- struct{}{}:
		return func() { <-g.slot }, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
