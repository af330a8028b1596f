package gate

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCapacity is returned when no slot frees up within the admission wait.
// Callers should surface it as a retry-later condition, not a failure of
// the download itself.
var ErrCapacity = errors.New("capacity exceeded")

// Gate is a fixed-capacity slot pool. A download attempt holds one slot
// from admission until it reaches a terminal state.
type Gate struct {
	sem chan struct{}
}

func New(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{sem: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free, the wait elapses, or ctx is done.
// On success it returns a release func that must be called exactly once;
// calling it again is a no-op.
//
// A wait of zero (or less) never blocks: it either takes a free slot
// immediately or returns ErrCapacity.
func (g *Gate) Acquire(ctx context.Context, wait time.Duration) (release func(), err error) {
	if wait <= 0 {
		select {
		case g.sem <- struct{}{}:
			return g.releaser(), nil
		default:
			return nil, ErrCapacity
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case g.sem <- struct{}{}:
		return g.releaser(), nil
	case <-timer.C:
		return nil, ErrCapacity
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gate) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-g.sem })
	}
}

func (g *Gate) Capacity() int {
	return cap(g.sem)
}

// Available reports how many slots are currently free.
func (g *Gate) Available() int {
	return cap(g.sem) - len(g.sem)
}
