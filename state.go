package fuse

import (
	"context"
	"sync/atomic"
	"time"
)

// State represents the breaker state.
type State int

const (
	// Closed is the normal operating state. Calls flow through.
	Closed State = iota

	// Open is the tripped state. Calls are rejected immediately.
	Open

	// HalfOpen is the recovery testing state. A single probe is allowed.
	HalfOpen

	// Stopped is the terminal state after Stop. Calls are rejected.
	Stopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// A state word packs the active state into the low bits and a transition
// generation into the rest. Every trip request carries the exact word it was
// formed under, so a request that predates an intervening transition loses
// the swap even if the state bits have since returned to the expected value.
const stateBits = 2

func pack(s State, gen uint64) uint64 {
	return gen<<stateBits | uint64(s)
}

func stateOf(word uint64) State {
	return State(word & (1<<stateBits - 1))
}

func generation(word uint64) uint64 {
	return word >> stateBits
}

// guardedCall is one admission request: the primary work, an optional
// fallback, and the deadline both run under.
type guardedCall struct {
	primary  Func
	fallback Func
	timeout  time.Duration
}

// variant is the contract shared by the three behavior modes. enter runs
// exactly once when a transition installs word, exit exactly once when a
// later transition replaces it. do handles one call dispatched while word
// was current.
type variant interface {
	enter(word uint64)
	exit(word uint64)
	do(ctx context.Context, word uint64, gc guardedCall) error
	state() State
}

// closedState admits every call and trips to Open once the configured
// number of consecutive failures is reached.
type closedState struct {
	b        *Breaker
	failures atomic.Int64
}

func (s *closedState) state() State { return Closed }

func (s *closedState) enter(uint64) { s.failures.Store(0) }

func (s *closedState) exit(uint64) {}

func (s *closedState) do(ctx context.Context, word uint64, gc guardedCall) error {
	err := s.b.exec.run(ctx, gc.primary, gc.timeout)
	if s.b.counts(err) {
		// Add is the atomic increment-and-check step: concurrent failures
		// never undercount, and every call that crosses the threshold issues
		// its own trip request, of which only the first can win.
		if s.failures.Add(1) >= int64(s.b.cfg.failureThreshold) {
			s.b.trip(word, Open)
		}
	} else {
		s.failures.Store(0)
	}
	s.b.notifyCall(Closed, err)
	if err == nil {
		return nil
	}
	return s.b.conclude(ctx, err, gc)
}

// openState rejects every call. On entry it arms a one-shot cooldown whose
// action requests the HalfOpen transition. Each cooldown is tagged with the
// word that armed it and released exactly once, by the exit of that word or
// by enter itself when the word was superseded while arming; one that still
// fires is harmless because its trip request carries a superseded word.
type openState struct {
	b     *Breaker
	delay time.Duration
	armed atomic.Pointer[recovery]
}

// recovery ties a scheduled cooldown to the open word that armed it, so a
// release aimed at one entry can never cancel a later entry's cooldown.
type recovery struct {
	word uint64
	cd   *cooldown
}

func (s *openState) state() State { return Open }

func (s *openState) enter(word uint64) {
	r := &recovery{word: word}
	r.cd = s.b.exec.schedule(s.delay, func() {
		s.b.trip(word, HalfOpen)
	})
	for {
		old := s.armed.Load()
		if old != nil && generation(old.word) > generation(word) {
			// A later entry armed first; this word is already history.
			r.cd.stop()
			return
		}
		if s.armed.CompareAndSwap(old, r) {
			if old != nil {
				old.cd.stop()
			}
			break
		}
	}
	// The exit paired with this word may have run before the arm above; a
	// superseded word then releases its own cooldown here.
	if s.b.current.Load() != word {
		if s.armed.CompareAndSwap(r, nil) {
			r.cd.stop()
		}
	}
}

func (s *openState) exit(word uint64) {
	if r := s.armed.Load(); r != nil && r.word == word && s.armed.CompareAndSwap(r, nil) {
		r.cd.stop()
	}
}

func (s *openState) do(context.Context, uint64, guardedCall) error {
	s.b.notifyReject()
	return ErrOpen
}

// halfOpenState admits exactly one probe. The winner's outcome decides the
// next state; everyone else is rejected without touching the executor.
type halfOpenState struct {
	b     *Breaker
	probe atomic.Bool
}

func (s *halfOpenState) state() State { return HalfOpen }

func (s *halfOpenState) enter(uint64) { s.probe.Store(false) }

func (s *halfOpenState) exit(uint64) {}

func (s *halfOpenState) do(ctx context.Context, word uint64, gc guardedCall) error {
	if !s.probe.CompareAndSwap(false, true) {
		s.b.notifyReject()
		return ErrOpen
	}
	// A caller parked between the dispatch load and the swap resumes
	// against whatever half-open entry is current, so the claim it now
	// holds may belong to a later entry than the dispatch word. The
	// outcome settles the entry that owns the claim, so the word is
	// re-read under it.
	word = s.b.current.Load()
	if st := stateOf(word); st != HalfOpen {
		if st == Stopped {
			return ErrStopped
		}
		s.b.notifyReject()
		return ErrOpen
	}
	err := s.b.exec.run(ctx, gc.primary, gc.timeout)
	if s.b.counts(err) {
		s.b.trip(word, Open)
	} else {
		s.b.trip(word, Closed)
	}
	s.b.notifyCall(HalfOpen, err)
	if err == nil {
		return nil
	}
	return s.b.conclude(ctx, err, gc)
}
