// Package looprunner provides a work-stealing runtime for data-parallel
// loops in Go.
//
// This library implements the scheduling model of a multicore compiler
// runtime: a fixed pool of workers (one per processor, each pinned to an
// OS thread), per-worker lock-free deques, and adaptive granularity that
// sizes subtasks from the measured cost of earlier iterations.
//
// # Quick Start
//
// Initialize the global scheduler at application startup:
//
//	looprunner.InitGlobalScheduler(nil) // one worker per processor
//	defer looprunner.ShutdownGlobalScheduler()
//
// Run a parallel loop over [0, n):
//
//	err := looprunner.ParallelFor(ctx, "scale", n, func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
//		for i := start; i < end; i++ {
//			data[i] *= 2
//		}
//		return nil
//	})
//
// # Key Concepts
//
// Task: one parallel loop call site. Keep one *Task value per loop site
// and run it repeatedly; the scheduler accumulates the loop's measured
// cost per iteration in the Task and uses it to pick subtask sizes that
// take roughly the configured time budget (kappa) each.
//
// ScheduleMode: dynamic tasks are sized by the cost model and may be
// split further by idle workers stealing them; static tasks get a fixed
// even partition, one subtask per worker, never split.
//
// Scheduler: the worker pool. Submission pushes every subtask onto a
// single worker's deque; idle workers steal from random victims, so
// distribution is demand-driven. The submitting goroutine blocks until
// the run joins or fails; when the submitter is itself a worker (a
// nested loop), it helps execute instead of blocking. A nested loop
// must pass the ctx its body received, since the worker is recognized
// through it; submitting with a fresh context blocks that worker like
// an external caller and can deadlock a small pool.
//
// # Errors
//
// The first error any subtask returns cancels the rest of the run
// cooperatively: workers discard not-yet-started subtasks at subtask
// boundaries, and Run returns that first error. Panics in loop bodies
// are recovered and surfaced the same way.
//
// # Example
//
//	import (
//		"context"
//
//		looprunner "github.com/Swind/go-loop-runner"
//	)
//
//	func main() {
//		looprunner.InitGlobalScheduler(nil)
//		defer looprunner.ShutdownGlobalScheduler()
//
//		// Static mode: one subtask per worker, ids 0..NumWorkers-1.
//		sums := make([]int64, looprunner.GetGlobalScheduler().NumWorkers())
//		task := &looprunner.Task{
//			Name:       "partial-sums",
//			Iterations: 1 << 20,
//			Mode:       looprunner.ScheduleStatic,
//			Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
//				var local int64
//				for i := start; i < end; i++ {
//					local += i
//				}
//				sums[subtaskID] = local
//				return nil
//			},
//		}
//		if err := looprunner.Run(context.Background(), task); err != nil {
//			panic(err)
//		}
//	}
//
// For more details, see https://github.com/Swind/go-loop-runner
package looprunner
