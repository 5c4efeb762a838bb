package fuse

import "errors"

// ErrOpen is returned when the breaker is open and rejecting calls, or when
// the breaker is half-open and the probe slot is already taken.
var ErrOpen = errors.New("breaker open")

// ErrTimeout is returned when a call runs past the configured call timeout.
var ErrTimeout = errors.New("breaker call timed out")

// ErrStopped is returned for any call made after Stop.
var ErrStopped = errors.New("breaker stopped")

// IsOpen reports whether err is because the breaker is open.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}

// IsTimeout reports whether err is because a call timed out.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsStopped reports whether err is because the breaker was stopped.
func IsStopped(err error) bool {
	return errors.Is(err, ErrStopped)
}
