package circuitbreaker_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/faultkit/circuitbreaker"
)

func ExampleCircuitBreaker_Execute() {
	cb := circuitbreaker.New("backend", circuitbreaker.Config{
		SlidingWindowSize:       10,
		WaitDurationInOpenState: time.Minute,
	})

	ctx := context.Background()
	err := cb.Execute(ctx, func(ctx context.Context) error {
		// Simulated successful operation
		return nil
	})

	if err == nil {
		fmt.Println("Operation succeeded")
	}
	// Output:
	// Operation succeeded
}

func ExampleCircuitBreaker_State() {
	cb := circuitbreaker.New("backend", circuitbreaker.Config{
		SlidingWindowSize: 2,
	})

	ctx := context.Background()

	// Initial state is closed
	fmt.Println("Initial state:", cb.State())

	// Cause failures to open the circuit
	simulatedErr := errors.New("service unavailable")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return simulatedErr
		})
	}

	fmt.Println("After failures:", cb.State())

	// Reset the circuit
	cb.Reset()
	fmt.Println("After reset:", cb.State())
	// Output:
	// Initial state: closed
	// After failures: open
	// After reset: closed
}

func ExampleDo() {
	cb := circuitbreaker.New("lookup", circuitbreaker.Config{})

	value, err := circuitbreaker.Do(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "cached result", nil
	})
	if err == nil {
		fmt.Println(value)
	}
	// Output:
	// cached result
}
