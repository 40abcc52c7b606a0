package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Swind/go-loop-runner/platform"
)

// Scheduler lifecycle states.
const (
	stateRunning int32 = iota
	stateClosing
	stateClosed
)

const shutdownPollInterval = time.Millisecond

// Scheduler owns a fixed pool of workers, one OS thread each, alive
// until Shutdown. Submitting a task partitions its iteration range into
// subtasks, hands them all to one worker's deque, and lets work
// stealing spread them; the submitting goroutine blocks until the run
// joins or fails, helping execute when it is itself a worker.
type Scheduler struct {
	cfg     SchedulerConfig
	workers []*worker
	wg      sync.WaitGroup

	state    atomic.Int32
	inFlight atomic.Int64

	// submitSeq round-robins external submissions over workers so
	// successive runs do not all land on worker 0.
	submitSeq atomic.Uint64

	runsCompleted atomic.Int64
	runsFailed    atomic.Int64
	seqRuns       atomic.Int64
}

// NewScheduler builds the worker pool and starts its goroutines. A nil
// config gets defaults throughout; zero fields are filled in. When
// profiling is requested the per-thread CPU time probe must work, since
// the diagnostics it feeds would otherwise be silently wrong.
func NewScheduler(cfg *SchedulerConfig) (*Scheduler, error) {
	c := cfg.withDefaults(platform.NumProcessors())
	if c.Profile {
		if _, err := platform.ThreadCPUTime(); err != nil {
			return nil, fmt.Errorf("worker profiling requested but thread cpu time probe failed: %w", err)
		}
	}

	s := &Scheduler{cfg: c}
	s.workers = make([]*worker, c.Workers)
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}
	s.wg.Add(len(s.workers))
	for _, w := range s.workers {
		go w.run()
	}
	s.cfg.Logger.Info("scheduler started",
		F("workers", c.Workers), F("kappa", c.Kappa), F("profile", c.Profile))
	return s, nil
}

// NumWorkers returns the size of the worker pool.
func (s *Scheduler) NumWorkers() int {
	return len(s.workers)
}

// Kappa returns the per-subtask time budget the scheduler was built with.
func (s *Scheduler) Kappa() time.Duration {
	return s.cfg.Kappa
}

// Run executes one task and blocks until it completes or fails,
// returning the first error any subtask reported. A task with zero
// iterations completes immediately without touching its cost history.
//
// The partition is planned fresh on every call from the task's
// accumulated cost, so reusing one Task value across calls is what
// makes the granularity adaptive.
//
// A nested call from inside a loop body must pass the ctx the body
// received (or one derived from it): that ctx carries the worker
// identity that lets the nested run help execute on the worker's own
// deque. With an unrelated ctx the call is treated as an external
// submission and blocks the worker goroutine until the join, which can
// deadlock a small pool.
func (s *Scheduler) Run(ctx context.Context, task *Task) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := task.validate(); err != nil {
		return err
	}
	if task.Iterations == 0 {
		return nil
	}
	if s.state.Load() != stateRunning {
		return ErrSchedulerClosed
	}

	start := time.Now()
	info := s.plan(task)

	var err error
	switch {
	case info.NSubtasks <= 1:
		err = s.runSequential(ctx, task, info)
	case task.Par != nil:
		wid := -1
		if w := workerFromContext(ctx); w != nil {
			wid = w.id
		}
		err = task.Par(ctx, task.Iterations, wid, info)
	default:
		err = s.Execute(ctx, task, info)
	}

	s.cfg.Metrics.RecordRunDuration(task.displayName(), info.Mode, time.Since(start))
	if err != nil {
		s.runsFailed.Add(1)
		s.cfg.Metrics.RecordRunError(task.displayName())
	} else {
		s.runsCompleted.Add(1)
	}
	return err
}

// plan chooses the partition for one run and records the assigned chunk
// in the task's grain state.
func (s *Scheduler) plan(task *Task) SchedulingInfo {
	var chunk int64
	if task.Mode == ScheduleDynamic {
		chunk = chunkFor(s.cfg.Kappa, task.grain.Load(), task.Iterations)
	}
	info := planPartition(task.Mode, task.Iterations, len(s.workers), chunk)
	if info.NSubtasks > 0 {
		assigned := info.IterPerSubtask
		if info.Remainder > 0 {
			assigned++
		}
		raiseGrainNmax(&task.grain, assigned)
	}
	return info
}

// runSequential executes the whole range inline on the calling
// goroutine. The measurement still feeds the task's cost history, so a
// small first run trains the model for later, larger ones.
func (s *Scheduler) runSequential(ctx context.Context, task *Task, info SchedulingInfo) error {
	s.seqRuns.Add(1)
	s.cfg.Metrics.RecordSequentialRun(task.displayName())

	wid := -1
	if w := workerFromContext(ctx); w != nil {
		wid = w.id
	}
	start := time.Now()
	var err error
	switch {
	case task.Seq != nil:
		err = task.Seq(ctx, task.Iterations, wid, info)
	case task.Fn != nil:
		err = task.Fn(ctx, 0, task.Iterations, 0, wid)
	default:
		err = task.Par(ctx, task.Iterations, wid, info)
	}
	task.recordSpan(time.Since(start), task.Iterations)
	return err
}

// Execute fans task.Fn out over the partition described by info and
// blocks until the run joins or fails. Run calls it for plain parallel
// tasks; a custom Par implementation calls it to do its own fan-out,
// possibly with an info it adjusted.
//
// All subtasks go onto a single worker's deque; thieves spread them.
// When the caller is itself a worker the subtasks land on its own deque
// and it helps execute until the join, instead of blocking. The worker
// is recognized through ctx, so nested callers must thread the loop
// body's ctx through (see Run).
func (s *Scheduler) Execute(ctx context.Context, task *Task, info SchedulingInfo) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if task.Fn == nil {
		return ErrNilTaskFunc
	}
	if task.Iterations == 0 || info.NSubtasks == 0 {
		return nil
	}
	if s.state.Load() != stateRunning {
		return ErrSchedulerClosed
	}

	if info.NSubtasks == 1 {
		// Not worth fanning out. Still measured, still trains the model.
		wid := -1
		if w := workerFromContext(ctx); w != nil {
			wid = w.id
		}
		start := time.Now()
		err := task.Fn(ctx, 0, task.Iterations, 0, wid)
		task.recordSpan(time.Since(start), task.Iterations)
		return err
	}

	// Keep Shutdown from killing the deques while this run is in
	// flight. The re-check closes the race with a concurrent Shutdown
	// that read inFlight before our increment.
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	if s.state.Load() != stateRunning {
		return ErrSchedulerClosed
	}

	rs := newRunState(ctx, task, info)
	chunkable := info.Mode == ScheduleDynamic
	s.cfg.Metrics.RecordSubtasksSpawned(task.displayName(), info.NSubtasks)

	if w := workerFromContext(ctx); w != nil {
		for _, st := range buildSubtasks(task.Fn, task.displayName(), info, chunkable, w.id, rs) {
			if err := w.deque.pushBottom(st); err != nil {
				rs.fail(ErrSchedulerClosed)
				rs.finishOne()
			}
		}
		w.helpUntilDone(rs)
		return rs.runErr()
	}

	target := int(s.submitSeq.Add(1)-1) % len(s.workers)
	batch := buildSubtasks(task.Fn, task.displayName(), info, chunkable, target, rs)
	s.handOff(target, batch)
	return rs.wait()
}

// handOff hands an external submission's batch to a worker inbox,
// preferring the round-robin target but taking any worker with a free
// slot. Workers cannot exit while inFlight is held, so the final
// blocking send cannot strand the batch.
func (s *Scheduler) handOff(first int, batch []*subtask) {
	for i := 0; i < len(s.workers); i++ {
		w := s.workers[(first+i)%len(s.workers)]
		select {
		case w.inbox <- batch:
			return
		default:
		}
	}
	s.workers[first].inbox <- batch
}

// Shutdown waits for in-flight runs to join, marks every deque dead,
// and waits for the workers to drain and exit. The context bounds the
// wait; on timeout the pool is left as it is and a later call resumes
// the drain where this one stopped. Once the pool has stopped, further
// calls return nil without doing anything.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// A retry after a timed-out attempt finds stateClosing and picks the
	// sequence back up; every step below is idempotent.
	if !s.state.CompareAndSwap(stateRunning, stateClosing) && s.state.Load() != stateClosing {
		return nil
	}
	s.cfg.Logger.Info("scheduler shutting down", F("in_flight", s.inFlight.Load()))

	for s.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(shutdownPollInterval):
		}
	}

	for _, w := range s.workers {
		w.deque.markDead()
	}

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.state.CompareAndSwap(stateClosing, stateClosed) {
		s.logWorkerUsage()
		s.cfg.Logger.Info("scheduler stopped", F("workers", len(s.workers)))
	}
	return nil
}

// logWorkerUsage reports each worker's utilization after shutdown, the
// pool's equivalent of a final profile dump.
func (s *Scheduler) logWorkerUsage() {
	for _, w := range s.workers {
		ws := w.snapshot()
		fields := []Field{
			F("worker", ws.ID),
			F("executed", ws.Executed),
			F("steals", ws.Steals),
			F("splits", ws.Splits),
			F("busy", ws.BusyTime),
		}
		if s.cfg.Profile {
			fields = append(fields, F("cpu", ws.CPUTime))
		}
		s.cfg.Logger.Debug("worker usage", fields...)
	}
}

// Stats returns a racy snapshot of the scheduler's counters, suitable
// for dashboards and tests, not for accounting.
func (s *Scheduler) Stats() SchedulerStats {
	st := SchedulerStats{
		Workers:        len(s.workers),
		Kappa:          s.cfg.Kappa,
		Running:        s.state.Load() == stateRunning,
		RunsCompleted:  s.runsCompleted.Load(),
		RunsFailed:     s.runsFailed.Load(),
		SequentialRuns: s.seqRuns.Load(),
	}
	st.PerWorker = make([]WorkerStats, 0, len(s.workers))
	for _, w := range s.workers {
		ws := w.snapshot()
		st.SubtasksExecuted += ws.Executed
		st.Steals += ws.Steals
		st.Splits += ws.Splits
		st.PerWorker = append(st.PerWorker, ws)
	}
	return st
}
