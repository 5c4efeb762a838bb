package fuse

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type config struct {
	failureThreshold int
	callTimeout      time.Duration
	resetDelay       time.Duration
	condition        Condition
	clock            clockwork.Clock

	onStateChange OnStateChangeFunc
	onCall        OnCallFunc
	onReject      OnRejectFunc
}

// Option configures a Breaker.
type Option func(*config)

// WithFailureThreshold sets consecutive failures before opening the
// breaker. Default is 5.
func WithFailureThreshold(n int) Option {
	return func(c *config) {
		c.failureThreshold = n
	}
}

// WithCallTimeout sets the maximum duration a single call may run before it
// fails with ErrTimeout. Default is 1 second.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) {
		c.callTimeout = d
	}
}

// WithResetDelay sets how long the breaker stays open before the automatic
// transition to half-open. Default is 30 seconds.
func WithResetDelay(d time.Duration) Option {
	return func(c *config) {
		c.resetDelay = d
	}
}

// If sets the condition that determines whether an error counts as a
// failure. By default, any non-nil error is a failure. The condition also
// sees ErrTimeout for calls that ran past the call timeout.
func If(cond Condition) Option {
	return func(c *config) {
		c.condition = cond
	}
}

// IfNot sets a condition where matching errors are NOT counted as failures.
// This is equivalent to If(Not(cond)).
func IfNot(cond Condition) Option {
	return If(Not(cond))
}

// Not inverts a condition.
func Not(cond Condition) Condition {
	return func(err error) bool {
		return !cond(err)
	}
}

// WithClock sets the clock for time operations. Useful for testing.
func WithClock(clock clockwork.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// OnStateChange sets a hook called when the breaker changes state.
func OnStateChange(fn OnStateChangeFunc) Option {
	return func(c *config) {
		c.onStateChange = fn
	}
}

// OnCall sets a hook called after each admitted call.
func OnCall(fn OnCallFunc) Option {
	return func(c *config) {
		c.onCall = fn
	}
}

// OnReject sets a hook called when a call is rejected without running.
func OnReject(fn OnRejectFunc) Option {
	return func(c *config) {
		c.onReject = fn
	}
}
