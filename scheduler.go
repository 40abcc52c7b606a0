package looprunner

import (
	"context"
	"sync"

	"github.com/Swind/go-loop-runner/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalScheduler *core.Scheduler
	globalMu        sync.Mutex
)

// InitGlobalScheduler initializes the global scheduler and starts its
// workers immediately. A nil config sizes the pool to the machine with
// default tuning. Calling it again while initialized is a no-op.
func InitGlobalScheduler(cfg *core.SchedulerConfig) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		return nil // Already initialized
	}

	s, err := core.NewScheduler(cfg)
	if err != nil {
		return err
	}
	globalScheduler = s
	return nil
}

// GetGlobalScheduler returns the global scheduler instance.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalScheduler() *core.Scheduler {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler == nil {
		panic("GlobalScheduler not initialized. Call InitGlobalScheduler() first.")
	}
	return globalScheduler
}

// ShutdownGlobalScheduler stops the global scheduler and its workers,
// waiting for in-flight runs to join first.
func ShutdownGlobalScheduler() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler == nil {
		return nil
	}
	err := globalScheduler.Shutdown(context.Background())
	globalScheduler = nil
	return err
}

// Run submits a task to the global scheduler and blocks until it
// completes or fails. Keep one *Task per loop site across calls so the
// granularity model has history to work from.
func Run(ctx context.Context, task *core.Task) error {
	return GetGlobalScheduler().Run(ctx, task)
}

// ParallelFor runs fn over [0, iterations) on the global scheduler with
// dynamic scheduling. The task is one-off, so every call starts with a
// cold cost model; loops that run repeatedly should hold a *Task and
// use Run instead.
func ParallelFor(ctx context.Context, name string, iterations int64, fn core.SubtaskFunc) error {
	task := &core.Task{Name: name, Iterations: iterations, Fn: fn}
	return GetGlobalScheduler().Run(ctx, task)
}

// StaticFor runs fn over [0, iterations) with a fixed even partition,
// one subtask per worker. Use it when iteration costs are uniform or
// the body indexes per-subtask state by subtask id.
func StaticFor(ctx context.Context, name string, iterations int64, fn core.SubtaskFunc) error {
	task := &core.Task{Name: name, Iterations: iterations, Mode: core.ScheduleStatic, Fn: fn}
	return GetGlobalScheduler().Run(ctx, task)
}
