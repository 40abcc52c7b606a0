package core

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/Swind/go-loop-runner/platform"
)

// Idle backoff shape: a few free re-check rounds, then yields, then
// sleeps of cfg.IdleSleep.
const (
	idleSpinRounds  = 16
	idleYieldRounds = 64
)

// =============================================================================
// Context helper
// =============================================================================

type workerKeyType struct{}

var workerKey workerKeyType

func workerFromContext(ctx context.Context) *worker {
	if v := ctx.Value(workerKey); v != nil {
		return v.(*worker)
	}
	return nil
}

// CurrentWorkerID reports which worker is executing the calling loop
// body, given the context the body received. ok is false when the
// context does not belong to a worker, e.g. in a sequential inline run
// on the submitting goroutine.
func CurrentWorkerID(ctx context.Context) (id int, ok bool) {
	if w := workerFromContext(ctx); w != nil {
		return w.id, true
	}
	return -1, false
}

// =============================================================================
// Worker
// =============================================================================

// worker owns one deque and one goroutine pinned to an OS thread. It
// pops its own deque bottom-first and steals from random victims when
// that runs dry. All counters are atomics because Stats snapshots them
// from other goroutines.
type worker struct {
	id    int
	s     *Scheduler
	deque *deque
	rng   randState

	// profiling baseline, written once at loop start and read only by
	// the worker goroutine itself.
	profiled bool
	cpuBase  time.Duration

	// inbox carries subtask batches handed off by goroutines that are
	// not workers; only the owner may push to the deque, so external
	// submissions go through here.
	inbox chan []*subtask

	executed     atomic.Int64
	discarded    atomic.Int64
	steals       atomic.Int64
	failedSteals atomic.Int64
	splits       atomic.Int64
	stolenFrom   atomic.Int64
	busyNs       atomic.Int64
	cpuNs        atomic.Int64
}

func newWorker(id int, s *Scheduler) *worker {
	return &worker{
		id:    id,
		s:     s,
		deque: newDeque(s.cfg.DequeCapacity),
		rng:   newRandState(uint32(id)*0x9e3779b9 + 1),
		inbox: make(chan []*subtask, 1),
	}
}

// run is the worker loop: drain handed-off work, pop own deque, steal,
// back off when idle, exit once the deque is dead and drained.
func (w *worker) run() {
	defer w.s.wg.Done()

	// One OS thread per worker; keeps thread CPU time attributable and
	// matches the fixed-pool execution model.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.s.cfg.Profile {
		if c, err := platform.ThreadCPUTime(); err == nil {
			w.cpuBase, w.profiled = c, true
		} else {
			w.s.cfg.Logger.Warn("thread cpu time unavailable, profiling disabled for worker",
				F("worker", w.id), F("error", err))
		}
	}
	defer w.refreshCPU()

	idle := 0
	for {
		w.drainInbox()
		st := w.deque.popBottom()
		if st == nil {
			st = w.trySteal()
		}
		if st != nil {
			idle = 0
			w.dispatch(st)
			continue
		}
		if w.deque.isDead() && w.deque.empty() {
			return
		}
		idle++
		switch {
		case idle < idleSpinRounds:
		case idle < idleSpinRounds+idleYieldRounds:
			runtime.Gosched()
		default:
			time.Sleep(w.s.cfg.IdleSleep)
		}
	}
}

// drainInbox moves handed-off batches onto the worker's own deque. If
// the deque has died in the meantime the batch cannot run; its run is
// failed so the submitter does not wait forever.
func (w *worker) drainInbox() {
	for {
		select {
		case batch := <-w.inbox:
			for _, st := range batch {
				if err := w.deque.pushBottom(st); err != nil {
					st.rs.fail(ErrSchedulerClosed)
					w.discarded.Add(1)
					st.rs.finishOne()
				}
			}
		default:
			return
		}
	}
}

// trySteal makes up to cfg.SpinSteals attempts against uniformly random
// victims. A freshly stolen chunkable subtask that is still oversized
// gets split before it is returned, per the steal-then-split discipline.
func (w *worker) trySteal() *subtask {
	n := len(w.s.workers)
	if n < 2 {
		return nil
	}
	for i := 0; i < w.s.cfg.SpinSteals; i++ {
		v := w.rng.pick(n - 1)
		if v >= w.id {
			v++
		}
		victim := w.s.workers[v]
		if st := victim.deque.stealTop(); st != nil {
			w.steals.Add(1)
			victim.stolenFrom.Add(1)
			if st.chunkable {
				w.maybeSplit(st)
			}
			return st
		}
	}
	w.failedSteals.Add(1)
	return nil
}

// maybeSplit halves a stolen subtask when its remaining range exceeds
// the granularity target, keeping the lower half for immediate
// execution and pushing the upper half onto the thief's own deque. The
// join count grows before the new half becomes stealable.
func (w *worker) maybeSplit(st *subtask) {
	target := chunkFor(w.s.cfg.Kappa, st.rs.task.grain.Load(), st.remaining())
	if target <= 0 {
		// No cost estimate yet; fall back to the size the subtask was
		// planned with.
		target = st.chunk
	}
	if target <= 0 || st.remaining() <= target {
		return
	}
	mid := st.start + st.remaining()/2
	upper := st.splitOff(mid, st.rs.splitID())
	st.rs.addPending()
	if err := w.deque.pushBottom(upper); err != nil {
		// Deque died mid-run; the half can never execute.
		st.rs.fail(err)
		w.discarded.Add(1)
		st.rs.finishOne()
		return
	}
	w.splits.Add(1)
	w.s.cfg.Metrics.RecordSplit(st.name)
}

// dispatch retires one subtask: discarded if the run is already failed
// or canceled, executed otherwise. The totals fold inside runBody
// happens before the join decrement here.
func (w *worker) dispatch(st *subtask) {
	rs := st.rs
	if rs.aborted() {
		w.discarded.Add(1)
		rs.finishOne()
		return
	}
	if err := w.runBody(st); err != nil {
		rs.fail(err)
	}
	w.executed.Add(1)
	rs.finishOne()
	w.refreshCPU()
}

// refreshCPU republishes the worker thread's CPU time so snapshots see
// a live value while the pool is up, not one stored at exit. Must run
// on the worker's own thread.
func (w *worker) refreshCPU() {
	if !w.profiled {
		return
	}
	if c, err := platform.ThreadCPUTime(); err == nil {
		w.cpuNs.Store(int64(c - w.cpuBase))
	}
}

// runBody times the user function over the subtask's range, folds the
// measurement into the task's cost history, and converts panics into
// run errors after the configured handler has seen them.
func (w *worker) runBody(st *subtask) (err error) {
	ctx := context.WithValue(st.rs.ctx, workerKey, w)
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		w.busyNs.Add(int64(elapsed))
		st.rs.task.recordSpan(elapsed, st.remaining())
		if r := recover(); r != nil {
			w.s.cfg.PanicHandler.HandlePanic(ctx, st.name, w.id, r, debug.Stack())
			err = fmt.Errorf("task %s: subtask %d panicked: %v", st.name, st.id, r)
		}
	}()
	return st.fn(ctx, st.start, st.end, st.id, w.id)
}

// helpUntilDone services the worker's deque (and steals) until the
// given run joins or fails. Used when a loop body submits a nested run:
// the worker cannot block, it has to keep executing, and the work it
// picks up may well belong to the outer run.
func (w *worker) helpUntilDone(rs *runState) {
	idle := 0
	for {
		if rs.finishedNow() || rs.aborted() {
			return
		}
		w.drainInbox()
		st := w.deque.popBottom()
		if st == nil {
			st = w.trySteal()
		}
		if st != nil {
			idle = 0
			w.dispatch(st)
			continue
		}
		idle++
		switch {
		case idle < idleSpinRounds:
		case idle < idleSpinRounds+idleYieldRounds:
			runtime.Gosched()
		default:
			time.Sleep(w.s.cfg.IdleSleep)
		}
	}
}

func (w *worker) snapshot() WorkerStats {
	return WorkerStats{
		ID:           w.id,
		Executed:     w.executed.Load(),
		Discarded:    w.discarded.Load(),
		Steals:       w.steals.Load(),
		FailedSteals: w.failedSteals.Load(),
		Splits:       w.splits.Load(),
		StolenFrom:   w.stolenFrom.Load(),
		QueueDepth:   w.deque.size(),
		BusyTime:     time.Duration(w.busyNs.Load()),
		CPUTime:      time.Duration(w.cpuNs.Load()),
	}
}
