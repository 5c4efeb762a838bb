// Package fuse implements a circuit breaker with timeout-bounded execution
// for resilient distributed systems.
//
// fuse protects callers from unreliable dependencies by:
//
//   - Tracking Failures: Consecutive errors trip the breaker open
//   - Fast Rejection: Open breakers reject calls immediately without load
//   - Bounded Latency: Every admitted call races a deadline timer
//   - Single-Probe Recovery: Half-open admits exactly one test call
//   - Lock-Free Hot Path: State reads and transitions are single atomics
//
// # Quick Start
//
// Create a breaker and protect calls:
//
//	b, err := fuse.New("payment-service",
//	    fuse.WithFailureThreshold(3),
//	    fuse.WithCallTimeout(500*time.Millisecond),
//	    fuse.WithResetDelay(10*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//
//	err = b.Do(ctx, func(ctx context.Context) error {
//	    return client.Charge(ctx, amount)
//	})
//	if fuse.IsOpen(err) {
//	    return handleUnavailable()
//	}
//
// For functions that return values, use the generic Run helper:
//
//	user, err := fuse.Run(ctx, b, func(ctx context.Context) (*User, error) {
//	    return client.GetUser(ctx, id)
//	})
//
// # Breaker States
//
// The breaker has three operating states and a terminal one:
//
//	Closed (normal):
//	    - Calls flow through to the protected function
//	    - Consecutive failures are counted; success clears the count
//	    - When failures reach the threshold, the breaker opens
//
//	Open (tripped):
//	    - Calls are rejected immediately with ErrOpen
//	    - After the reset delay, a scheduled transition enters half-open
//
//	HalfOpen (probing):
//	    - Exactly one call is admitted; the rest get ErrOpen
//	    - The probe's success closes the breaker, its failure reopens it
//
//	Stopped (torn down):
//	    - Entered by Stop; all calls fail with ErrStopped
//
// # Call Timeouts
//
// Every admitted call is raced against the configured call timeout. When
// the timer wins, the caller gets ErrTimeout and the failure is counted,
// but the work itself is only cancelled cooperatively: its context is
// cancelled, and whatever it eventually returns is discarded. Work that
// ignores its context may still be running after Do returns.
//
//	err := b.Do(ctx, func(ctx context.Context) error {
//	    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
//	    _, err := client.Do(req)
//	    return err
//	})
//	if fuse.IsTimeout(err) {
//	    // The request ran past the call timeout.
//	}
//
// # Fallbacks
//
// DoWithFallback substitutes a second function's outcome when the primary
// fails. Only the primary is recorded against the breaker; the fallback
// runs outside accounting and does not consume the half-open probe slot.
// Rejected calls return ErrOpen directly without running the fallback, so
// open-breaker handling stays in one place:
//
//	err := b.DoWithFallback(ctx,
//	    func(ctx context.Context) error { return fetchLive(ctx) },
//	    func(ctx context.Context) error { return fetchCached(ctx) },
//	)
//
// RunWithFallback is the value-returning form:
//
//	price, err := fuse.RunWithFallback(ctx, b,
//	    func(ctx context.Context) (Price, error) { return quote(ctx) },
//	    func(ctx context.Context) (Price, error) { return lastKnown(ctx) },
//	)
//
// # Failure Conditions
//
// By default, any non-nil error counts as a failure. Customize this with
// If, which sees pass-through errors as well as ErrTimeout:
//
//	b, err := fuse.New("api",
//	    fuse.If(func(err error) bool {
//	        return errors.Is(err, ErrUnavailable) || fuse.IsTimeout(err)
//	    }),
//	)
//
// Use IfNot to exclude certain errors:
//
//	// Don't count caller cancellation as a dependency failure.
//	b, err := fuse.New("api",
//	    fuse.IfNot(func(err error) bool {
//	        return errors.Is(err, context.Canceled)
//	    }),
//	)
//
// # Lifecycle Hooks
//
// Hooks provide observability without coupling to a specific logger or
// metrics system. Transitions can be driven by timers and concurrent
// callers, so hooks may run concurrently:
//
//	b, err := fuse.New("service",
//	    fuse.OnStateChange(func(name string, from, to fuse.State) {
//	        logger.Info("breaker state change",
//	            "breaker", name,
//	            "from", from,
//	            "to", to,
//	        )
//	    }),
//	    fuse.OnCall(func(name string, state fuse.State, err error) {
//	        metrics.Increment("breaker.call", "breaker:"+name)
//	    }),
//	    fuse.OnReject(func(name string) {
//	        metrics.Increment("breaker.rejected", "breaker:"+name)
//	    }),
//	)
//
// The fuseprom subpackage packages these hooks as Prometheus collectors.
//
// # Manual Control
//
// Operators and health-check integrations can override the automatic
// lifecycle:
//
//	b.Trip()    // force open, arm the cooldown
//	b.Reset()   // force closed, clear the failure counter
//	b.Recover() // force half-open, probe on the next call
//
// # Teardown
//
// Stop releases the cooldown timer and any in-flight deadline waits, so a
// discarded breaker never fires callbacks later:
//
//	b.Stop()
//	err := b.Do(ctx, work) // fuse.IsStopped(err) == true
//
// # Registry
//
// A Registry hands out one breaker per name, creating them on first use
// with a shared option set:
//
//	reg := fuse.NewRegistry(fuse.WithFailureThreshold(5))
//	b, err := reg.Get("billing")
//	...
//	reg.StopAll()
//
// # Inspecting State
//
//	state := b.State()  // Closed, Open, HalfOpen, or Stopped
//	b.IsClosed()        // convenience predicates
//	b.IsOpen()
//	b.IsHalfOpen()
//	b.Failures()        // consecutive failures while closed
//
// # Testing
//
// All timers run on an injectable clock. Inject a fake clock to control
// time in tests:
//
//	clock := clockwork.NewFakeClock()
//	b, err := fuse.New("test",
//	    fuse.WithFailureThreshold(1),
//	    fuse.WithResetDelay(30*time.Second),
//	    fuse.WithClock(clock),
//	)
//
//	_ = b.Do(ctx, failing)
//	// The breaker is now open with the cooldown armed.
//	clock.BlockUntil(1)
//	clock.Advance(30 * time.Second)
//	// The half-open transition fires on the timer's goroutine; poll for it.
//
// # HTTP Integration
//
// The fusehttp subpackage wraps http.RoundTripper on the client side and
// http.Handler on the server side, counting transport errors and 5xx
// responses as failures.
package fuse
