package escore

import (
	"context"
	"sync"
)

// barrier is a one-shot cross-request latch: the first caller to invoke
// run performs fn while holding the latch; concurrent callers wait for it
// to finish and then observe the same result. Once fn has run to
// completion the latch is permanently "done": later callers get the
// recorded result without running fn again.
//
// Modelled after spec §9's description of the source's process-wide lock
// primitive: a tri-state guard {NotStarted, InProgress, Done} with
// cooperatively-suspending waiters rather than a spinlock.
type barrier struct {
	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

func (b *barrier) run(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.started {
		ch := b.done
		b.mu.Unlock()
		select {
		case <-ch:
			return b.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.started = true
	b.done = make(chan struct{})
	b.mu.Unlock()

	err := fn(ctx)

	b.mu.Lock()
	b.err = err
	close(b.done)
	b.mu.Unlock()

	return err
}
