// Package main demonstrates static scheduling for uniform-cost loops
// Static mode: one subtask per worker, dense ids, never split/migrated,
// so each subtask can own unsynchronized per-subtask state
package main

import (
	"context"
	"fmt"

	looprunner "github.com/Swind/go-loop-runner"
	"github.com/Swind/go-loop-runner/core"
)

func main() {
	if err := looprunner.InitGlobalScheduler(nil); err != nil {
		panic(err)
	}
	defer looprunner.ShutdownGlobalScheduler()

	s := looprunner.GetGlobalScheduler()

	// One slot per subtask; static ids are dense 0..NumWorkers-1,
	// so no atomics and no false sharing on the hot path
	partials := make([]int64, s.NumWorkers())

	task := &core.Task{
		Name:       "dot-product",
		Iterations: 1 << 20,
		Mode:       core.ScheduleStatic,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			var local int64
			for i := start; i < end; i++ {
				local += i * i
			}
			partials[subtaskID] = local
			return nil
		},
	}
	if err := s.Run(context.Background(), task); err != nil {
		panic(err)
	}

	// Sequential reduction over the per-subtask results
	var sum int64
	for _, p := range partials {
		sum += p
	}
	fmt.Println("dot =", sum)
}
