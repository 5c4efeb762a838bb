package fuse

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"
)

// executor runs units of work bounded by a deadline. It holds no per-call
// state; each run is independent.
type executor struct {
	clock clockwork.Clock
	done  <-chan struct{}
}

// run invokes fn and waits for whichever resolves first: completion, the
// timeout, caller cancellation, or breaker teardown. fn runs on its own
// goroutine and writes into a one-slot channel, so an abandoned fn can
// finish and exit without a reader. On timeout the context passed to fn is
// cancelled so cooperative work can stop early, but the work is not
// forcibly terminated and its late result is never read, so it cannot be
// accounted a second time.
func (e *executor) run(ctx context.Context, fn Func, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- &panicError{value: r, stack: debug.Stack()}
			}
		}()
		result <- fn(ctx)
	}()

	timer := e.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.Chan():
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

// schedule arms a one-shot timer that invokes fn once after delay. fn runs
// on its own goroutine.
func (e *executor) schedule(delay time.Duration, fn func()) *cooldown {
	return &cooldown{timer: e.clock.AfterFunc(delay, fn)}
}

// cooldown is a handle on a scheduled one-shot action.
type cooldown struct {
	timer clockwork.Timer
}

// stop cancels the action if it has not fired yet. Safe to call more than
// once and after firing.
func (c *cooldown) stop() {
	c.timer.Stop()
}

// panicError carries a panic recovered from a work goroutine so the caller
// side can rethrow it after accounting.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v\n%s", p.value, p.stack)
}
