package fuse_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/switchgear/fuse"
)

// ExampleNew demonstrates creating a circuit breaker with default settings.
func ExampleNew() {
	circuit, err := fuse.New("my-service")
	if err != nil {
		log.Fatal(err)
	}

	err = circuit.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})

	fmt.Println("Error:", err)
	fmt.Println("State:", circuit.State())

	// Output:
	// Error: <nil>
	// State: closed
}

// ExampleNew_withOptions demonstrates creating a circuit breaker with custom settings.
func ExampleNew_withOptions() {
	circuit, _ := fuse.New("payment-service",
		fuse.WithFailureThreshold(3),
		fuse.WithCallTimeout(500*time.Millisecond),
		fuse.WithResetDelay(30*time.Second),
	)

	fmt.Println("Name:", circuit.Name())
	fmt.Println("State:", circuit.State())

	// Output:
	// Name: payment-service
	// State: closed
}

// ExampleBreaker_Do demonstrates basic circuit breaker usage.
func ExampleBreaker_Do() {
	circuit, _ := fuse.New("api",
		fuse.WithFailureThreshold(2),
	)

	attempts := 0
	for i := 0; i < 5; i++ {
		err := circuit.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("service unavailable")
		})
		if fuse.IsOpen(err) {
			fmt.Println("Circuit is open, skipping call")
		}
	}

	fmt.Println("Attempts:", attempts)
	fmt.Println("State:", circuit.State())

	// Output:
	// Circuit is open, skipping call
	// Circuit is open, skipping call
	// Circuit is open, skipping call
	// Attempts: 2
	// State: open
}

// ExampleBreaker_DoWithFallback demonstrates substituting a degraded result
// when the primary operation fails.
func ExampleBreaker_DoWithFallback() {
	circuit, _ := fuse.New("profile-service")

	err := circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("service unavailable")
	})
	fmt.Println("Without fallback:", err != nil)

	err = circuit.DoWithFallback(context.Background(),
		func(ctx context.Context) error {
			return errors.New("service unavailable")
		},
		func(ctx context.Context) error {
			return nil
		},
	)
	fmt.Println("With fallback:", err)
	fmt.Println("Failures counted:", circuit.Failures())

	// Output:
	// Without fallback: true
	// With fallback: <nil>
	// Failures counted: 2
}

// ExampleRun demonstrates the generic helper for returning values.
func ExampleRun() {
	circuit, _ := fuse.New("user-service")

	user, err := fuse.Run(context.Background(), circuit, func(ctx context.Context) (string, error) {
		return "john_doe", nil
	})

	fmt.Println("User:", user)
	fmt.Println("Error:", err)

	// Output:
	// User: john_doe
	// Error: <nil>
}

// ExampleRunWithFallback demonstrates returning a cached value when the
// primary lookup fails.
func ExampleRunWithFallback() {
	circuit, _ := fuse.New("user-service")

	user, err := fuse.RunWithFallback(context.Background(), circuit,
		func(ctx context.Context) (string, error) {
			return "", errors.New("service unavailable")
		},
		func(ctx context.Context) (string, error) {
			return "cached_user", nil
		},
	)

	fmt.Println("User:", user)
	fmt.Println("Error:", err)

	// Output:
	// User: cached_user
	// Error: <nil>
}

// ExampleIsOpen demonstrates checking if an error is due to an open circuit.
func ExampleIsOpen() {
	circuit, _ := fuse.New("service",
		fuse.WithFailureThreshold(1),
	)

	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})

	err := circuit.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})

	if fuse.IsOpen(err) {
		fmt.Println("Circuit is open, using fallback")
	}

	// Output:
	// Circuit is open, using fallback
}

// ExampleBreaker_Reset demonstrates manually resetting a circuit.
func ExampleBreaker_Reset() {
	circuit, _ := fuse.New("service",
		fuse.WithFailureThreshold(1),
	)

	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})

	fmt.Println("Before reset:", circuit.State())

	circuit.Reset()

	fmt.Println("After reset:", circuit.State())

	// Output:
	// Before reset: open
	// After reset: closed
}

// ExampleBreaker_Stop demonstrates tearing down a circuit.
func ExampleBreaker_Stop() {
	circuit, _ := fuse.New("service")

	circuit.Stop()

	err := circuit.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})

	fmt.Println("Stopped:", fuse.IsStopped(err))
	fmt.Println("State:", circuit.State())

	// Output:
	// Stopped: true
	// State: stopped
}

// ExampleIf demonstrates custom failure conditions.
func ExampleIf() {
	transient := errors.New("transient error")

	circuit, _ := fuse.New("api",
		fuse.WithFailureThreshold(2),
		fuse.If(func(err error) bool {
			return errors.Is(err, transient)
		}),
	)

	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("permanent error")
	})
	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("permanent error")
	})

	fmt.Println("After permanent errors:", circuit.State())

	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return transient
	})
	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return transient
	})

	fmt.Println("After transient errors:", circuit.State())

	// Output:
	// After permanent errors: closed
	// After transient errors: open
}

// ExampleOnStateChange demonstrates the state change hook.
func ExampleOnStateChange() {
	circuit, _ := fuse.New("service",
		fuse.WithFailureThreshold(1),
		fuse.OnStateChange(func(name string, from, to fuse.State) {
			fmt.Printf("Circuit %s: %s -> %s\n", name, from, to)
		}),
	)

	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})

	// Output:
	// Circuit service: closed -> open
}

// ExampleOnCall demonstrates the call hook for metrics.
func ExampleOnCall() {
	successCount := 0
	failureCount := 0

	circuit, _ := fuse.New("service",
		fuse.OnCall(func(name string, state fuse.State, err error) {
			if err != nil {
				failureCount++
			} else {
				successCount++
			}
		}),
	)

	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})
	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})
	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})

	fmt.Println("Successes:", successCount)
	fmt.Println("Failures:", failureCount)

	// Output:
	// Successes: 2
	// Failures: 1
}

// ExampleOnReject demonstrates the reject hook.
func ExampleOnReject() {
	rejectCount := 0

	circuit, _ := fuse.New("service",
		fuse.WithFailureThreshold(1),
		fuse.OnReject(func(name string) {
			rejectCount++
		}),
	)

	_ = circuit.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})

	for i := 0; i < 3; i++ {
		_ = circuit.Do(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}

	fmt.Println("Rejected:", rejectCount)

	// Output:
	// Rejected: 3
}

// Example_degradation demonstrates graceful degradation when the circuit
// is open.
func Example_degradation() {
	circuit, _ := fuse.New("user-service",
		fuse.WithFailureThreshold(1),
	)

	getUser := func(ctx context.Context) (string, error) {
		user, err := fuse.Run(ctx, circuit, func(ctx context.Context) (string, error) {
			return "", errors.New("service unavailable")
		})
		if fuse.IsOpen(err) {
			return "guest", nil
		}
		if err != nil {
			return "", err
		}
		return user, nil
	}

	_, err1 := getUser(context.Background())
	user2, _ := getUser(context.Background())

	fmt.Println("First call error:", err1 != nil)
	fmt.Println("Second call user:", user2)

	// Output:
	// First call error: true
	// Second call user: guest
}

// ExampleNewRegistry demonstrates sharing breakers by name.
func ExampleNewRegistry() {
	registry := fuse.NewRegistry(
		fuse.WithFailureThreshold(3),
	)

	payments, _ := registry.Get("payments")
	again, _ := registry.Get("payments")
	_, _ = registry.Get("search")

	fmt.Println("Same instance:", payments == again)
	fmt.Println("Names:", registry.Names())

	// Output:
	// Same instance: true
	// Names: [payments search]
}

// ExampleState_String demonstrates state string representation.
func ExampleState_String() {
	fmt.Println(fuse.Closed.String())
	fmt.Println(fuse.Open.String())
	fmt.Println(fuse.HalfOpen.String())
	fmt.Println(fuse.Stopped.String())

	// Output:
	// closed
	// open
	// half-open
	// stopped
}
