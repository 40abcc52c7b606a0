package core

import "time"

// WorkerStats is a point-in-time snapshot of one worker's counters.
// Counters are read with atomics but not as one consistent cut; treat
// them as diagnostics, not an audit trail.
type WorkerStats struct {
	ID           int
	Executed     int64 // subtasks run to completion
	Discarded    int64 // subtasks retired unrun after cancellation
	Steals       int64 // successful steals from other deques
	FailedSteals int64 // steal rounds that found nothing
	Splits       int64 // stolen subtasks this worker split
	StolenFrom   int64 // subtasks thieves took off this worker's deque
	QueueDepth   int64 // racy snapshot of the deque size

	// BusyTime is wall time spent inside loop bodies. CPUTime is the
	// worker thread's CPU time and is only filled in when profiling is
	// enabled.
	BusyTime time.Duration
	CPUTime  time.Duration
}

// SchedulerStats is an aggregate snapshot of a scheduler. The totals are
// sums over PerWorker plus run-level counters kept by the scheduler.
type SchedulerStats struct {
	Workers int
	Kappa   time.Duration
	Running bool

	RunsCompleted  int64
	RunsFailed     int64
	SequentialRuns int64

	SubtasksExecuted int64
	Steals           int64
	Splits           int64

	PerWorker []WorkerStats
}
