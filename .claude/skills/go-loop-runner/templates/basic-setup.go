// Package main demonstrates basic go-loop-runner setup with the global scheduler
package main

import (
	"context"
	"fmt"
	"sync/atomic"

	looprunner "github.com/Swind/go-loop-runner"
)

func main() {
	// Step 1: Initialize the global scheduler
	// nil config = one worker per processor, default kappa (350us)
	if err := looprunner.InitGlobalScheduler(nil); err != nil {
		panic(err)
	}
	defer looprunner.ShutdownGlobalScheduler()

	// Step 2: Run a parallel loop over [0, n)
	fmt.Println("Running parallel loop...")

	const n = 1_000_000
	var sum atomic.Int64

	err := looprunner.ParallelFor(context.Background(), "sum", n,
		func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			// Work on [start, end) locally, synchronize once per subtask
			var local int64
			for i := start; i < end; i++ {
				local += i
			}
			sum.Add(local)
			return nil
		})
	if err != nil {
		panic(err)
	}

	// Step 3: Inspect the pool
	stats := looprunner.GetGlobalScheduler().Stats()
	fmt.Printf("sum=%d workers=%d subtasks=%d steals=%d\n",
		sum.Load(), stats.Workers, stats.SubtasksExecuted, stats.Steals)
}
