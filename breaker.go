package fuse

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
)

// Func is the function signature for protected operations.
type Func func(ctx context.Context) error

// Condition determines whether an error should count as a failure.
type Condition func(error) bool

// OnStateChangeFunc is called when the breaker changes state. Transitions
// may be driven by cooldown timers and concurrent callers, so the hook may
// run concurrently and must not block.
type OnStateChangeFunc func(name string, from, to State)

// OnCallFunc is called after each admitted call with the primary outcome.
type OnCallFunc func(name string, state State, err error)

// OnRejectFunc is called when a call is rejected without running.
type OnRejectFunc func(name string)

// Default values.
const (
	DefaultFailureThreshold = 5
	DefaultCallTimeout      = 1 * time.Second
	DefaultResetDelay       = 30 * time.Second
)

// Breaker is a circuit breaker. Safe for concurrent use.
//
// A Breaker routes calls through one of three preconstructed behavior
// modes. The active mode and a transition generation share one atomic word,
// so admission checks are a single load and transitions a single
// compare-and-swap; there is no lock on the call path.
type Breaker struct {
	name string
	cfg  config
	exec *executor

	current atomic.Uint64

	closed   *closedState
	open     *openState
	halfOpen *halfOpenState

	stop sync.Once
	done chan struct{}
}

// New creates a Breaker with the given options.
func New(name string, opts ...Option) (*Breaker, error) {
	cfg := config{
		failureThreshold: DefaultFailureThreshold,
		callTimeout:      DefaultCallTimeout,
		resetDelay:       DefaultResetDelay,
		condition:        defaultCondition,
		clock:            clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.failureThreshold <= 0 {
		return nil, trace.BadParameter("breaker %q: failure threshold must be positive, got %d", name, cfg.failureThreshold)
	}
	if cfg.callTimeout <= 0 {
		return nil, trace.BadParameter("breaker %q: call timeout must be positive, got %v", name, cfg.callTimeout)
	}
	if cfg.resetDelay <= 0 {
		return nil, trace.BadParameter("breaker %q: reset delay must be positive, got %v", name, cfg.resetDelay)
	}

	b := &Breaker{
		name: name,
		cfg:  cfg,
		done: make(chan struct{}),
	}
	b.exec = &executor{clock: cfg.clock, done: b.done}
	b.closed = &closedState{b: b}
	b.open = &openState{b: b, delay: cfg.resetDelay}
	b.halfOpen = &halfOpenState{b: b}
	b.current.Store(pack(Closed, 0))
	return b, nil
}

// Do executes fn with breaker protection. The call is bounded by the
// configured call timeout; on expiry Do returns ErrTimeout and fn, which
// may still be running, has its context cancelled and its eventual result
// discarded.
func (b *Breaker) Do(ctx context.Context, fn Func) error {
	if fn == nil {
		return trace.BadParameter("breaker %q: fn is required", b.name)
	}
	return b.dispatch(ctx, guardedCall{primary: fn, timeout: b.cfg.callTimeout})
}

// DoWithFallback executes fn with breaker protection. If fn fails, fallback
// runs and its outcome is what the caller receives. Only fn's outcome is
// recorded against the breaker; the fallback is never counted. Calls
// rejected before fn runs return ErrOpen or ErrStopped directly and the
// fallback is not invoked.
func (b *Breaker) DoWithFallback(ctx context.Context, fn, fallback Func) error {
	if fn == nil {
		return trace.BadParameter("breaker %q: fn is required", b.name)
	}
	if fallback == nil {
		return trace.BadParameter("breaker %q: fallback is required", b.name)
	}
	return b.dispatch(ctx, guardedCall{primary: fn, fallback: fallback, timeout: b.cfg.callTimeout})
}

func (b *Breaker) dispatch(ctx context.Context, gc guardedCall) error {
	word := b.current.Load()
	s := stateOf(word)
	if s == Stopped {
		return ErrStopped
	}
	return b.variantFor(s).do(ctx, word, gc)
}

// trip installs the state to, conditioned on from still being the current
// word. The winner runs exit on the outgoing variant and enter on the
// incoming one exactly once; a losing request returns with no side effects.
func (b *Breaker) trip(from uint64, to State) bool {
	next := pack(to, generation(from)+1)
	if !b.current.CompareAndSwap(from, next) {
		return false
	}
	b.variantFor(stateOf(from)).exit(from)
	if v := b.variantFor(to); v != nil {
		v.enter(next)
	}
	b.notifyStateChange(stateOf(from), to)
	return true
}

func (b *Breaker) variantFor(s State) variant {
	switch s {
	case Closed:
		return b.closed
	case Open:
		return b.open
	case HalfOpen:
		return b.halfOpen
	default:
		return nil
	}
}

func (b *Breaker) force(to State) {
	word := b.current.Load()
	s := stateOf(word)
	if s == Stopped || s == to {
		return
	}
	b.trip(word, to)
}

// Trip forces the breaker open, arming the cooldown as if the failure
// threshold had been crossed.
func (b *Breaker) Trip() { b.force(Open) }

// Reset forces the breaker closed and clears the failure counter.
func (b *Breaker) Reset() { b.force(Closed) }

// Recover forces the breaker into HalfOpen so the next call probes the
// protected operation without waiting out the cooldown.
func (b *Breaker) Recover() { b.force(HalfOpen) }

// Stop tears down the breaker. Armed timers are released, in-flight waits
// return ErrStopped, and every later call fails with ErrStopped. Stop is
// idempotent.
func (b *Breaker) Stop() {
	b.stop.Do(func() {
		for {
			word := b.current.Load()
			if stateOf(word) == Stopped || b.trip(word, Stopped) {
				break
			}
		}
		close(b.done)
	})
}

// State returns the current state.
func (b *Breaker) State() State {
	return stateOf(b.current.Load())
}

// IsClosed reports whether the breaker is closed.
func (b *Breaker) IsClosed() bool { return b.State() == Closed }

// IsOpen reports whether the breaker is open.
func (b *Breaker) IsOpen() bool { return b.State() == Open }

// IsHalfOpen reports whether the breaker is half-open.
func (b *Breaker) IsHalfOpen() bool { return b.State() == HalfOpen }

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// Failures returns the consecutive failures counted while closed. The
// counter clears on success and whenever the breaker enters Closed.
func (b *Breaker) Failures() int {
	return int(b.closed.failures.Load())
}

// counts reports whether err is recorded as a failure. Panics always count,
// otherwise the configured condition decides.
func (b *Breaker) counts(err error) bool {
	if isPanic(err) {
		return true
	}
	return b.cfg.condition(err)
}

// conclude finishes an admitted call whose primary failed. A recovered
// panic is rethrown on the caller's goroutine; otherwise the fallback, when
// present, substitutes its own outcome.
func (b *Breaker) conclude(ctx context.Context, err error, gc guardedCall) error {
	var pe *panicError
	if errors.As(err, &pe) {
		panic(pe.value)
	}
	if gc.fallback == nil {
		return err
	}
	return b.exec.run(ctx, gc.fallback, gc.timeout)
}

func isPanic(err error) bool {
	var pe *panicError
	return errors.As(err, &pe)
}

func (b *Breaker) notifyStateChange(from, to State) {
	if b.cfg.onStateChange != nil {
		b.cfg.onStateChange(b.name, from, to)
	}
}

func (b *Breaker) notifyCall(s State, err error) {
	if b.cfg.onCall != nil {
		b.cfg.onCall(b.name, s, err)
	}
}

func (b *Breaker) notifyReject() {
	if b.cfg.onReject != nil {
		b.cfg.onReject(b.name)
	}
}

func defaultCondition(err error) bool {
	return err != nil
}
