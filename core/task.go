package core

import (
	"context"
	"sync/atomic"
	"time"
)

// SubtaskFunc is the loop body: it processes iterations [start, end) on
// behalf of subtask subtaskID, running on worker workerID. A non-nil
// error cancels the rest of the run cooperatively.
type SubtaskFunc func(ctx context.Context, start, end int64, subtaskID, workerID int) error

// TaskFunc is a whole-loop entry point. The scheduler calls it with the
// partition it chose; a parallel TaskFunc typically turns around and
// calls Scheduler.Execute to fan the range out.
type TaskFunc func(ctx context.Context, iterations int64, workerID int, info SchedulingInfo) error

// =============================================================================
// ScheduleMode: how a task's iteration range is partitioned
// =============================================================================

type ScheduleMode int32

const (
	// ScheduleDynamic sizes subtasks from the task's measured cost per
	// iteration and lets thieves split stolen subtasks further. The
	// default, suited to irregular iteration costs.
	ScheduleDynamic ScheduleMode = iota

	// ScheduleStatic partitions the range evenly, one subtask per
	// worker, and never splits. Suited to uniform iteration costs and
	// to callers that index per-subtask state by subtask id.
	ScheduleStatic
)

func (m ScheduleMode) String() string {
	switch m {
	case ScheduleDynamic:
		return "dynamic"
	case ScheduleStatic:
		return "static"
	default:
		return "unknown"
	}
}

// SchedulingInfo describes the partition chosen for one run.
//
// Invariant: int64(NSubtasks)*IterPerSubtask + Remainder == total
// iterations, with 0 <= Remainder < int64(NSubtasks). The remainder is
// spread one iteration each over the first Remainder subtasks.
type SchedulingInfo struct {
	NSubtasks      int
	IterPerSubtask int64
	Remainder      int64
	Mode           ScheduleMode
}

// =============================================================================
// Task: a parallel loop together with its cost history
// =============================================================================

// Task is one parallel loop call site. Reuse the same Task value across
// runs: the scheduler accumulates measured cost in it and uses that
// history to size subtasks on later runs.
//
// Fn is the loop body and is all most callers set. Par, when non-nil,
// replaces the scheduler's default fan-out for parallel runs; Seq, when
// non-nil, replaces the inline loop used when the range is too small to
// split. A Task must not be mutated while a run is in flight.
type Task struct {
	// Name identifies the task in logs, stats and metrics.
	Name string

	// Fn is the loop body applied to each subtask's range.
	Fn SubtaskFunc

	// Par, if set, is invoked instead of the default parallel fan-out.
	Par TaskFunc

	// Seq, if set, is invoked instead of Fn when the scheduler decides
	// to run the whole range inline.
	Seq TaskFunc

	// Iterations is the half-open range [0, Iterations) to process.
	Iterations int64

	// Mode selects static or dynamic partitioning.
	Mode ScheduleMode

	// Cost history, shared by all runs of this task. totalTime is
	// nanoseconds spent in the loop body, totalIter the iterations
	// those nanoseconds covered.
	totalTime atomic.Int64
	totalIter atomic.Int64

	// grain packs the controller state (cost estimate, max chunk) into
	// one word; see grain.go.
	grain atomic.Uint64
}

func (t *Task) validate() error {
	if t.Fn == nil && t.Par == nil && t.Seq == nil {
		return ErrNilTaskFunc
	}
	if t.Iterations < 0 {
		return ErrNegativeIterations
	}
	return nil
}

func (t *Task) displayName() string {
	if t.Name == "" {
		return "unnamed"
	}
	return t.Name
}

// recordSpan folds one measured execution span into the task's totals
// and publishes the refreshed cost estimate.
func (t *Task) recordSpan(elapsed time.Duration, iters int64) {
	if iters <= 0 {
		return
	}
	tt := t.totalTime.Add(int64(elapsed))
	ti := t.totalIter.Add(iters)
	reviseGrainC(&t.grain, float32(float64(tt)/float64(ti)))
}

// Totals reports the accumulated loop-body time and iteration count
// across every run of this task.
func (t *Task) Totals() (time.Duration, int64) {
	return time.Duration(t.totalTime.Load()), t.totalIter.Load()
}

// ResetStats clears the task's cost history. Persisting the history
// across runs is what makes granularity adaptive, so this is meant for
// benchmark isolation, not steady-state use. Must not be called while a
// run is in flight.
func (t *Task) ResetStats() {
	t.totalTime.Store(0)
	t.totalIter.Store(0)
	t.grain.Store(0)
}

// CostPerIteration reports the controller's current estimate of one
// iteration's cost. Zero means no measurement has been recorded yet.
func (t *Task) CostPerIteration() time.Duration {
	return time.Duration(grainC(t.grain.Load()))
}
