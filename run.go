package fuse

import "context"

// Run executes fn and returns its result with breaker protection. This is
// a convenience wrapper for functions that return a value.
//
// On any error the zero value is returned. The captured result is read only
// when Do reports success, which is the one outcome that guarantees fn is
// no longer running; a timed-out fn may still be writing its result.
func Run[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Do(ctx, func(ctx context.Context) error {
		v, fnErr := fn(ctx)
		if fnErr != nil {
			return fnErr
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// RunWithFallback executes fn with breaker protection and, when fn fails,
// returns the fallback's result instead. Only fn's outcome is recorded
// against the breaker.
//
// The primary and fallback results live in separate slots so an abandoned
// primary can never scribble over the value handed to the caller.
func RunWithFallback[T any](ctx context.Context, b *Breaker, fn, fallback func(context.Context) (T, error)) (T, error) {
	var (
		result      T
		substitute  T
		substituted bool
	)
	err := b.DoWithFallback(ctx,
		func(ctx context.Context) error {
			v, fnErr := fn(ctx)
			if fnErr != nil {
				return fnErr
			}
			result = v
			return nil
		},
		func(ctx context.Context) error {
			v, fbErr := fallback(ctx)
			if fbErr != nil {
				return fbErr
			}
			substitute = v
			substituted = true
			return nil
		},
	)
	if err != nil {
		var zero T
		return zero, err
	}
	if substituted {
		return substitute, nil
	}
	return result, nil
}
