package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling loop-body panics
// =============================================================================

// PanicHandler is called when a loop body panics during execution. The
// panic is recovered on the worker, reported here, and then surfaced to
// the submitter as the run's error.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a loop body panics.
	//
	// Parameters:
	// - ctx: The context the panicked subtask ran under
	// - taskName: The name of the task whose body panicked
	// - workerID: The ID of the worker that ran the subtask
	// - panicInfo: The panic value recovered from the body
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, taskName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, taskName string, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
		workerID, taskName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting run-level scheduler
// metrics. Implementations can send metrics to monitoring systems
// (Prometheus, StatsD, etc.).
//
// Methods are called once per run or per split, never per iteration, so
// implementations sit well off the hot path. They should still be fast
// and non-blocking.
type Metrics interface {
	// RecordRunDuration records how long a run took from submission to join.
	RecordRunDuration(taskName string, mode ScheduleMode, duration time.Duration)

	// RecordRunError records that a run finished with an error.
	RecordRunError(taskName string)

	// RecordSubtasksSpawned records the size of a run's initial partition.
	RecordSubtasksSpawned(taskName string, n int)

	// RecordSplit records that a thief split a stolen subtask.
	RecordSplit(taskName string)

	// RecordSequentialRun records that a run was executed inline because
	// the range was too small to be worth fanning out.
	RecordSequentialRun(taskName string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordRunDuration is a no-op.
func (m *NilMetrics) RecordRunDuration(taskName string, mode ScheduleMode, duration time.Duration) {
}

// RecordRunError is a no-op.
func (m *NilMetrics) RecordRunError(taskName string) {
}

// RecordSubtasksSpawned is a no-op.
func (m *NilMetrics) RecordSubtasksSpawned(taskName string, n int) {
}

// RecordSplit is a no-op.
func (m *NilMetrics) RecordSplit(taskName string) {
}

// RecordSequentialRun is a no-op.
func (m *NilMetrics) RecordSequentialRun(taskName string) {
}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// Default tuning values, applied by DefaultSchedulerConfig and wherever
// a config leaves a field zero.
const (
	// DefaultKappa is the time budget one subtask should run for. The
	// granularity controller sizes chunks so a subtask's loop body takes
	// roughly this long.
	DefaultKappa = 350 * time.Microsecond

	// DefaultDequeCapacity is the initial per-worker deque capacity.
	// Deques grow by doubling when a run outgrows them.
	DefaultDequeCapacity = 64

	// DefaultIdleSleep is how long an idle worker sleeps between steal
	// rounds once spinning has not turned up work.
	DefaultIdleSleep = 100 * time.Microsecond
)

// SchedulerConfig holds configuration options for Scheduler.
// The zero value is usable; zero fields are filled with defaults.
type SchedulerConfig struct {
	// Workers is the number of worker goroutines, each pinned to an OS
	// thread. Defaults to the number of processors.
	Workers int

	// Kappa is the per-subtask time budget driving the granularity
	// controller. Defaults to DefaultKappa.
	Kappa time.Duration

	// DequeCapacity is the initial capacity of each worker's deque,
	// rounded up to a power of two. Defaults to DefaultDequeCapacity.
	DequeCapacity int64

	// IdleSleep is the sleep between steal rounds for an idle worker.
	// Defaults to DefaultIdleSleep.
	IdleSleep time.Duration

	// SpinSteals is how many random-victim steal attempts a worker makes
	// before yielding and then sleeping. Defaults to twice the worker
	// count, at least 8.
	SpinSteals int

	// Profile enables per-thread CPU time accounting for workers,
	// refreshed at subtask boundaries so Stats sees live values. Off by
	// default; it costs one rusage call per retired subtask.
	Profile bool

	// Logger receives scheduler lifecycle logging. Defaults to NoOpLogger.
	Logger Logger

	// Metrics is called to record run metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a loop body panics. Defaults to
	// DefaultPanicHandler.
	PanicHandler PanicHandler
}

// DefaultSchedulerConfig returns a config with default handlers and
// tuning values. Workers is left at 0 and resolved against the machine
// when the scheduler is built.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Kappa:         DefaultKappa,
		DequeCapacity: DefaultDequeCapacity,
		IdleSleep:     DefaultIdleSleep,
		Logger:        NewNoOpLogger(),
		Metrics:       &NilMetrics{},
		PanicHandler:  &DefaultPanicHandler{},
	}
}

// withDefaults returns a copy of the config with zero fields filled in.
func (c *SchedulerConfig) withDefaults(processors int) SchedulerConfig {
	out := SchedulerConfig{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = processors
	}
	if out.Kappa <= 0 {
		out.Kappa = DefaultKappa
	}
	if out.DequeCapacity <= 0 {
		out.DequeCapacity = DefaultDequeCapacity
	}
	if out.IdleSleep <= 0 {
		out.IdleSleep = DefaultIdleSleep
	}
	if out.SpinSteals <= 0 {
		out.SpinSteals = 2 * out.Workers
		if out.SpinSteals < 8 {
			out.SpinSteals = 8
		}
	}
	if out.Logger == nil {
		out.Logger = NewNoOpLogger()
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &DefaultPanicHandler{}
	}
	return out
}
