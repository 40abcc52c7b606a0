// Package main demonstrates the persistent-Task pattern for adaptive granularity
// Keep one *Task per loop site; the scheduler learns the loop's cost across runs
package main

import (
	"context"
	"fmt"

	looprunner "github.com/Swind/go-loop-runner"
	"github.com/Swind/go-loop-runner/core"
)

// ============================================================================
// ANTI-PATTERN: a fresh Task (or ParallelFor) every call
// Every run starts with a cold cost model and falls back to one
// subtask per worker, so irregular loops balance poorly.
// ============================================================================

func transformOnce(data []float64) error {
	return looprunner.ParallelFor(context.Background(), "transform", int64(len(data)),
		func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			for i := start; i < end; i++ {
				data[i] *= 2
			}
			return nil
		})
}

// ============================================================================
// PATTERN: one Task value owned by the call site, reused across runs
// Measured cost folds back into the Task; later runs get chunks sized
// so each subtask runs for roughly kappa.
// ============================================================================

type Transformer struct {
	data []float64
	task core.Task
}

func NewTransformer(data []float64) *Transformer {
	t := &Transformer{data: data}
	t.task = core.Task{
		Name:       "transform",
		Iterations: int64(len(data)),
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			for i := start; i < end; i++ {
				t.data[i] *= 2
			}
			return nil
		},
	}
	return t
}

func (t *Transformer) Run(ctx context.Context) error {
	// Same *Task every time: this is what makes granularity adaptive
	return looprunner.Run(ctx, &t.task)
}

func main() {
	if err := looprunner.InitGlobalScheduler(nil); err != nil {
		panic(err)
	}
	defer looprunner.ShutdownGlobalScheduler()

	tr := NewTransformer(make([]float64, 1<<20))
	for round := range 5 {
		if err := tr.Run(context.Background()); err != nil {
			panic(err)
		}
		fmt.Printf("round %d: cost/iter=%v\n", round, tr.task.CostPerIteration())
	}
}
