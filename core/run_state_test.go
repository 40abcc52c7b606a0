package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestRunState_JoinCompletes verifies counter-based completion
// Given: A run with four outstanding subtasks
// When: Each subtask finishes exactly once
// Then: wait returns nil only after the final decrement
func TestRunState_JoinCompletes(t *testing.T) {
	info := SchedulingInfo{NSubtasks: 4, IterPerSubtask: 1}
	rs := newRunState(context.Background(), &Task{}, info)

	for i := 0; i < 3; i++ {
		rs.finishOne()
	}
	if rs.finishedNow() {
		t.Fatal("finishedNow() = true with one subtask outstanding, want false")
	}

	rs.finishOne()

	if !rs.finishedNow() {
		t.Fatal("finishedNow() = false after final decrement, want true")
	}
	if err := rs.wait(); err != nil {
		t.Errorf("wait() error = %v, want nil", err)
	}
}

// TestRunState_FirstErrorWins verifies sticky error semantics
// Given: A run where two workers report different errors
// When: The run's error is read
// Then: Only the first reported error is kept
func TestRunState_FirstErrorWins(t *testing.T) {
	info := SchedulingInfo{NSubtasks: 2, IterPerSubtask: 1}
	rs := newRunState(context.Background(), &Task{}, info)
	first := errors.New("first failure")
	second := errors.New("second failure")

	rs.fail(first)
	rs.fail(second)
	rs.fail(nil) // nil reports are ignored

	if !rs.aborted() {
		t.Error("aborted() = false after fail, want true")
	}
	if got := rs.runErr(); got != first {
		t.Errorf("runErr() = %v, want %v", got, first)
	}

	// wait unblocks on the error without the join completing.
	if got := rs.wait(); got != first {
		t.Errorf("wait() = %v, want %v", got, first)
	}
}

// TestRunState_ErrorUnblocksWaiter verifies early return on failure
// Given: A waiter blocked on a run
// When: A worker reports an error while subtasks are still outstanding
// Then: The waiter unblocks with that error
func TestRunState_ErrorUnblocksWaiter(t *testing.T) {
	info := SchedulingInfo{NSubtasks: 2, IterPerSubtask: 1}
	rs := newRunState(context.Background(), &Task{}, info)
	boom := errors.New("boom")

	got := make(chan error, 1)
	go func() { got <- rs.wait() }()

	time.Sleep(10 * time.Millisecond)
	rs.fail(boom)

	select {
	case err := <-got:
		if err != boom {
			t.Errorf("wait() = %v, want %v", err, boom)
		}
	case <-time.After(time.Second):
		t.Fatal("wait() did not unblock after fail")
	}
}

// TestRunState_ContextCancel verifies cancellation becomes the run error
// Given: A run whose submission context is canceled
// When: Workers check the abort flag and the waiter waits
// Then: Both observe the cancellation as a failure
func TestRunState_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	info := SchedulingInfo{NSubtasks: 2, IterPerSubtask: 1}
	rs := newRunState(ctx, &Task{}, info)

	if rs.aborted() {
		t.Fatal("aborted() = true before cancel, want false")
	}

	cancel()

	if !rs.aborted() {
		t.Fatal("aborted() = false after cancel, want true")
	}
	if err := rs.wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("wait() = %v, want context.Canceled", err)
	}
}

// TestRunState_SplitIDs verifies split halves get fresh dense ids
// Given: A run planned with three subtasks
// When: Splits allocate new ids
// Then: Ids continue from the initial partition without reuse
func TestRunState_SplitIDs(t *testing.T) {
	info := SchedulingInfo{NSubtasks: 3, IterPerSubtask: 10}
	rs := newRunState(context.Background(), &Task{}, info)

	if got := rs.splitID(); got != 3 {
		t.Errorf("first splitID() = %d, want 3", got)
	}
	if got := rs.splitID(); got != 4 {
		t.Errorf("second splitID() = %d, want 4", got)
	}
}
