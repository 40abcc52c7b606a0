package looprunner

import "github.com/Swind/go-loop-runner/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the looprunner package for most use cases.

// Task is one parallel loop call site with its persistent cost history
type Task = core.Task

// SubtaskFunc is the loop body applied to one subtask's range
type SubtaskFunc = core.SubtaskFunc

// TaskFunc is a whole-loop entry point (parallel override or sequential fallback)
type TaskFunc = core.TaskFunc

// ScheduleMode selects static or dynamic partitioning
type ScheduleMode = core.ScheduleMode

// SchedulingInfo describes the partition chosen for one run
type SchedulingInfo = core.SchedulingInfo

// Scheduler is the worker pool tasks are submitted to
type Scheduler = core.Scheduler

// SchedulerConfig configures a scheduler; the zero value gets defaults
type SchedulerConfig = core.SchedulerConfig

// SchedulerStats and WorkerStats are observability snapshots
type SchedulerStats = core.SchedulerStats
type WorkerStats = core.WorkerStats

// Logger, Metrics and PanicHandler are the pluggable observability hooks
type Logger = core.Logger
type Metrics = core.Metrics
type PanicHandler = core.PanicHandler

// Field is a structured logging key-value pair
type Field = core.Field

// Scheduling mode constants
const (
	ScheduleDynamic ScheduleMode = core.ScheduleDynamic
	ScheduleStatic  ScheduleMode = core.ScheduleStatic
)

// Sentinel errors
var (
	ErrDequeDead          = core.ErrDequeDead
	ErrSchedulerClosed    = core.ErrSchedulerClosed
	ErrNilTaskFunc        = core.ErrNilTaskFunc
	ErrNegativeIterations = core.ErrNegativeIterations
)

// Convenience re-exports
var (
	NewScheduler           = core.NewScheduler
	DefaultSchedulerConfig = core.DefaultSchedulerConfig
	NewDefaultLogger       = core.NewDefaultLogger
	NewNoOpLogger          = core.NewNoOpLogger
	F                      = core.F
)

// CurrentWorkerID reports which worker is executing the calling loop body
var CurrentWorkerID = core.CurrentWorkerID
