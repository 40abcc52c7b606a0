package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// runState tracks one submission of a task: how many subtasks are still
// outstanding and whether the run has failed. Every subtask of the run
// points at the same runState. A fresh runState is allocated per run, so
// concurrent runs of the same Task do not share error or join state.
type runState struct {
	task *Task
	ctx  context.Context

	// pending counts subtasks that have been pushed (or created by a
	// split) but not yet finished. The last decrement closes done.
	pending atomic.Int64
	done    chan struct{}

	// The first error a worker reports wins and is sticky for the rest
	// of the run; failCh wakes a blocked waiter early.
	failed   atomic.Bool
	failOnce sync.Once
	failCh   chan struct{}
	err      error

	// nextID hands out subtask ids for split halves, starting just past
	// the initial partition.
	nextID atomic.Int64
}

func newRunState(ctx context.Context, task *Task, info SchedulingInfo) *runState {
	rs := &runState{
		task:   task,
		ctx:    ctx,
		done:   make(chan struct{}),
		failCh: make(chan struct{}),
	}
	rs.pending.Store(int64(info.NSubtasks))
	rs.nextID.Store(int64(info.NSubtasks))
	return rs
}

// fail records the run's error. Only the first call takes effect.
func (rs *runState) fail(err error) {
	if err == nil {
		return
	}
	rs.failOnce.Do(func() {
		rs.err = err
		rs.failed.Store(true)
		close(rs.failCh)
	})
}

// aborted reports whether workers should discard this run's remaining
// subtasks instead of executing them. Checked at subtask boundaries
// only; a subtask already executing runs to completion.
func (rs *runState) aborted() bool {
	if rs.failed.Load() {
		return true
	}
	select {
	case <-rs.ctx.Done():
		rs.fail(rs.ctx.Err())
		return true
	default:
		return false
	}
}

// addPending accounts for a subtask about to be pushed. Called by a
// splitting thief before the new half becomes visible to other workers.
func (rs *runState) addPending() {
	rs.pending.Add(1)
}

// finishOne retires one subtask, whether it ran or was discarded. The
// final decrement completes the join.
func (rs *runState) finishOne() {
	if rs.pending.Add(-1) == 0 {
		close(rs.done)
	}
}

func (rs *runState) finishedNow() bool {
	select {
	case <-rs.done:
		return true
	default:
		return false
	}
}

// runErr returns the run's sticky error, or nil for a clean run. Only
// meaningful once the join has completed or failure has been observed.
func (rs *runState) runErr() error {
	if rs.failed.Load() {
		return rs.err
	}
	return nil
}

// splitID allocates an id for a subtask created by a split.
func (rs *runState) splitID() int {
	return int(rs.nextID.Add(1) - 1)
}

// wait blocks the submitting goroutine until the join completes, the run
// fails, or the caller's context is canceled. On failure it returns
// right away; subtasks already executing finish on their own and workers
// discard the rest.
func (rs *runState) wait() error {
	select {
	case <-rs.done:
		return rs.runErr()
	case <-rs.failCh:
		return rs.err
	case <-rs.ctx.Done():
		rs.fail(rs.ctx.Err())
		return rs.err
	}
}
