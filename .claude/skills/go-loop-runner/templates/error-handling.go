// Package main demonstrates error propagation and cooperative cancellation
// The first error any subtask returns becomes the run's result; the rest
// of the run is discarded at subtask boundaries, never preempted mid-body
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	looprunner "github.com/Swind/go-loop-runner"
)

var errNotFound = errors.New("key not found")

func main() {
	if err := looprunner.InitGlobalScheduler(nil); err != nil {
		panic(err)
	}
	defer looprunner.ShutdownGlobalScheduler()

	// Pattern 1: body error cancels siblings cooperatively
	err := looprunner.ParallelFor(context.Background(), "lookup", 100_000,
		func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			for i := start; i < end; i++ {
				if i == 4242 {
					// Wrap with %w so callers can errors.Is/As
					return fmt.Errorf("index %d: %w", i, errNotFound)
				}
			}
			return nil
		})
	fmt.Println("run:", err, "is errNotFound:", errors.Is(err, errNotFound))

	// Pattern 2: caller-driven cancellation via context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err = looprunner.ParallelFor(ctx, "slow", 1_000_000,
		func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			for i := start; i < end; i++ {
				time.Sleep(time.Microsecond)
			}
			return nil
		})
	fmt.Println("run:", err) // context.DeadlineExceeded at the next boundary

	// Note: panics in loop bodies are recovered on the worker, reported
	// to the configured PanicHandler, and surfaced as the run error —
	// they never kill the pool.
}
