package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-loop-runner/platform"
)

func newTestScheduler(t *testing.T, cfg *SchedulerConfig) *Scheduler {
	t.Helper()
	if cfg == nil {
		cfg = &SchedulerConfig{Workers: 4}
	}
	if cfg.Logger == nil {
		cfg.Logger = NewNoOpLogger()
	}
	s, err := NewScheduler(cfg)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v, want nil", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v, want nil", err)
		}
	})
	return s
}

// TestScheduler_ParallelSum verifies a dynamic run computes the right answer
// Given: A dynamic task summing [0, 200000)
// When: The run completes
// Then: The total equals n*(n-1)/2 and the cost history is populated
func TestScheduler_ParallelSum(t *testing.T) {
	s := newTestScheduler(t, nil)
	const n = 200_000

	var total atomic.Int64
	task := &Task{
		Name:       "sum",
		Iterations: n,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			var local int64
			for i := start; i < end; i++ {
				local += i
			}
			total.Add(local)
			return nil
		},
	}

	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if got, want := total.Load(), int64(n)*(n-1)/2; got != want {
		t.Errorf("total = %d, want %d", got, want)
	}
	if _, iters := task.Totals(); iters != n {
		t.Errorf("Totals() iterations = %d, want %d", iters, n)
	}
	if task.CostPerIteration() < 0 {
		t.Errorf("CostPerIteration() = %v, want >= 0", task.CostPerIteration())
	}
}

// TestScheduler_ExactlyOnceCoverage verifies no iteration is lost or repeated
// Given: A warm dynamic task whose plan fans out into many small subtasks
// When: The run completes
// Then: Every iteration index was visited exactly once
func TestScheduler_ExactlyOnceCoverage(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Workers: 4, Kappa: 50 * time.Microsecond})
	const n = 50_000

	claims := make([]atomic.Int32, n)
	task := &Task{
		Name:       "coverage",
		Iterations: n,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			for i := start; i < end; i++ {
				claims[i].Add(1)
			}
			return nil
		},
	}
	// Prime the cost model so the initial partition is already fine-grained.
	task.recordSpan(time.Millisecond, 10_000)

	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	for i := range claims {
		if got := claims[i].Load(); got != 1 {
			t.Fatalf("iteration %d visited %d times, want 1", i, got)
		}
	}
}

// TestScheduler_StaticPartition verifies the fixed partition reaches the body
// Given: A static task of 17 iterations on 4 workers
// When: The run completes
// Then: Exactly 4 subtasks ran, with lengths {5, 4, 4, 4} and dense ids
func TestScheduler_StaticPartition(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Workers: 4})

	var mu sync.Mutex
	lengths := map[int]int64{}
	task := &Task{
		Name:       "static17",
		Iterations: 17,
		Mode:       ScheduleStatic,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			mu.Lock()
			lengths[subtaskID] = end - start
			mu.Unlock()
			return nil
		},
	}

	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if len(lengths) != 4 {
		t.Fatalf("distinct subtask ids = %d, want 4", len(lengths))
	}
	var fives, fours int
	for id, l := range lengths {
		if id < 0 || id > 3 {
			t.Errorf("subtask id = %d, want within [0, 3]", id)
		}
		switch l {
		case 5:
			fives++
		case 4:
			fours++
		default:
			t.Errorf("subtask %d length = %d, want 4 or 5", id, l)
		}
	}
	if fives != 1 || fours != 3 {
		t.Errorf("lengths = 1x%d + 3x%d, want 1x5 + 3x4", fives, fours)
	}
}

// TestScheduler_ErrorPropagation verifies a failing body fails the run
// Given: A run where one subtask's range reports an error
// When: Run returns
// Then: The returned error is the injected one
func TestScheduler_ErrorPropagation(t *testing.T) {
	s := newTestScheduler(t, nil)
	boom := errors.New("iteration 4099 went wrong")

	task := &Task{
		Name:       "failing",
		Iterations: 100_000,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			if start <= 4099 && 4099 < end {
				return boom
			}
			return nil
		},
	}

	if err := s.Run(context.Background(), task); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}

	st := s.Stats()
	if st.RunsFailed != 1 {
		t.Errorf("RunsFailed = %d, want 1", st.RunsFailed)
	}
}

// TestScheduler_ZeroIterations verifies the empty run fast path
// Given: A task with zero iterations
// When: It is run
// Then: Run returns nil immediately and the cost history stays empty
func TestScheduler_ZeroIterations(t *testing.T) {
	s := newTestScheduler(t, nil)

	ran := false
	task := &Task{
		Name: "empty",
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			ran = true
			return nil
		},
	}

	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if ran {
		t.Error("loop body ran for an empty range")
	}
	if tt, ti := task.Totals(); tt != 0 || ti != 0 {
		t.Errorf("Totals() = %v, %d, want 0, 0", tt, ti)
	}
}

// TestScheduler_SequentialFallback verifies tiny runs stay inline
// Given: A task with a single iteration
// When: It is run from a plain goroutine
// Then: The body runs on the caller (worker id -1) and the run counts as
// sequential
func TestScheduler_SequentialFallback(t *testing.T) {
	s := newTestScheduler(t, nil)

	var gotWorker int
	task := &Task{
		Name:       "tiny",
		Iterations: 1,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			gotWorker = workerID
			if id, ok := CurrentWorkerID(ctx); ok || id != -1 {
				t.Errorf("CurrentWorkerID() = %d, %v, want -1, false", id, ok)
			}
			return nil
		},
	}

	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if gotWorker != -1 {
		t.Errorf("workerID = %d, want -1 for an inline run", gotWorker)
	}
	if got := s.Stats().SequentialRuns; got != 1 {
		t.Errorf("SequentialRuns = %d, want 1", got)
	}

	if tt, ti := task.Totals(); ti != 1 || tt < 0 {
		t.Errorf("Totals() = %v, %d, want measured time over 1 iteration", tt, ti)
	}
}

// TestScheduler_SeqOverride verifies Seq replaces the inline path
// Given: A task with a Seq entry point and a single iteration
// When: It is run
// Then: Seq is called with the full range and Fn is not
func TestScheduler_SeqOverride(t *testing.T) {
	s := newTestScheduler(t, nil)

	var seqCalls, fnCalls atomic.Int32
	task := &Task{
		Name:       "seq-override",
		Iterations: 1,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			fnCalls.Add(1)
			return nil
		},
		Seq: func(ctx context.Context, iterations int64, workerID int, info SchedulingInfo) error {
			seqCalls.Add(1)
			if iterations != 1 {
				t.Errorf("Seq iterations = %d, want 1", iterations)
			}
			if info.NSubtasks != 1 {
				t.Errorf("Seq info.NSubtasks = %d, want 1", info.NSubtasks)
			}
			return nil
		},
	}

	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if seqCalls.Load() != 1 || fnCalls.Load() != 0 {
		t.Errorf("Seq, Fn calls = %d, %d, want 1, 0", seqCalls.Load(), fnCalls.Load())
	}
}

// TestScheduler_ParOverride verifies Par replaces the default fan-out
// Given: A task with a Par entry point that fans out through Execute
// When: It is run over a large range
// Then: Par receives the planned partition and the sum is still right
func TestScheduler_ParOverride(t *testing.T) {
	s := newTestScheduler(t, nil)
	const n = 40_000

	var total atomic.Int64
	var parInfo SchedulingInfo
	task := &Task{
		Name:       "par-override",
		Iterations: n,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			var local int64
			for i := start; i < end; i++ {
				local += i
			}
			total.Add(local)
			return nil
		},
	}
	task.Par = func(ctx context.Context, iterations int64, workerID int, info SchedulingInfo) error {
		parInfo = info
		return s.Execute(ctx, task, info)
	}

	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if got, want := total.Load(), int64(n)*(n-1)/2; got != want {
		t.Errorf("total = %d, want %d", got, want)
	}
	if parInfo.NSubtasks < 2 {
		t.Errorf("Par info.NSubtasks = %d, want >= 2", parInfo.NSubtasks)
	}
}

// TestScheduler_NestedRun verifies a loop body can submit its own run
// Given: An outer static run whose first subtask runs an inner dynamic sum
// When: The outer run completes
// Then: Both runs succeed and the inner result is correct
func TestScheduler_NestedRun(t *testing.T) {
	s := newTestScheduler(t, nil)
	const innerN = 30_000

	var innerTotal atomic.Int64
	inner := &Task{
		Name:       "inner-sum",
		Iterations: innerN,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			var local int64
			for i := start; i < end; i++ {
				local += i
			}
			innerTotal.Add(local)
			return nil
		},
	}

	var innerErr error
	outer := &Task{
		Name:       "outer",
		Iterations: 2,
		Mode:       ScheduleStatic,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			if id, ok := CurrentWorkerID(ctx); !ok || id != workerID {
				t.Errorf("CurrentWorkerID() = %d, %v, want %d, true", id, ok, workerID)
			}
			if subtaskID == 0 {
				innerErr = s.Run(ctx, inner)
			}
			return nil
		},
	}

	if err := s.Run(context.Background(), outer); err != nil {
		t.Fatalf("outer Run() error = %v, want nil", err)
	}
	if innerErr != nil {
		t.Fatalf("inner Run() error = %v, want nil", innerErr)
	}
	if got, want := innerTotal.Load(), int64(innerN)*(innerN-1)/2; got != want {
		t.Errorf("inner total = %d, want %d", got, want)
	}
}

// TestScheduler_ContextCanceled verifies cancellation surfaces as the run error
// Given: A context canceled before submission
// When: A parallel run is submitted with it
// Then: Run returns context.Canceled
func TestScheduler_ContextCanceled(t *testing.T) {
	s := newTestScheduler(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := &Task{
		Name:       "canceled",
		Iterations: 100_000,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			return nil
		},
	}

	if err := s.Run(ctx, task); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

// TestScheduler_RunAfterShutdown verifies submission is refused once closed
// Given: A scheduler that has been shut down
// When: A task is submitted and Shutdown is called again
// Then: Run returns ErrSchedulerClosed and the second Shutdown is a no-op
func TestScheduler_RunAfterShutdown(t *testing.T) {
	s, err := NewScheduler(&SchedulerConfig{Workers: 2, Logger: NewNoOpLogger()})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v, want nil", err)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v, want nil", err)
	}

	task := &Task{
		Name:       "late",
		Iterations: 10,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			return nil
		},
	}
	if err := s.Run(context.Background(), task); !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("Run() after Shutdown error = %v, want ErrSchedulerClosed", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v, want nil", err)
	}
	if s.Stats().Running {
		t.Error("Stats().Running = true after Shutdown, want false")
	}
}

// TestScheduler_ShutdownRetryAfterTimeout verifies a timed-out Shutdown resumes
// Given: A run still in flight when Shutdown's context expires
// When: The run completes and Shutdown is called again
// Then: The retry stops the pool for real and the worker goroutines exit
func TestScheduler_ShutdownRetryAfterTimeout(t *testing.T) {
	base := runtime.NumGoroutine()

	s, err := NewScheduler(&SchedulerConfig{Workers: 2, Logger: NewNoOpLogger()})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v, want nil", err)
	}

	release := make(chan struct{})
	runDone := make(chan error, 1)
	task := &Task{
		Name:       "held",
		Iterations: 10,
		Mode:       ScheduleStatic,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			<-release
			return nil
		},
	}
	go func() { runDone <- s.Run(context.Background(), task) }()
	for s.inFlight.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown() with held run error = %v, want context.DeadlineExceeded", err)
	}

	close(release)
	if err := <-runDone; err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("retry Shutdown() error = %v, want nil", err)
	}
	if s.Stats().Running {
		t.Error("Stats().Running = true after retry Shutdown, want false")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() after stop error = %v, want nil", err)
	}

	// The retry must actually have torn the pool down, not just
	// reported success.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && runtime.NumGoroutine() > base {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runtime.NumGoroutine(); got > base {
		t.Errorf("goroutines after retry Shutdown = %d, want <= %d", got, base)
	}
}

// TestScheduler_ErrorDiscardsRemainingSubtasks verifies siblings are abandoned
// Given: A single worker holding a 20-subtask fan-out whose bodies fail
// When: The first body reports an error
// Then: No later subtask's body runs; the rest are discarded unexecuted
func TestScheduler_ErrorDiscardsRemainingSubtasks(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Workers: 1, Kappa: 1000 * time.Nanosecond})
	boom := errors.New("first body failed")

	var bodies atomic.Int32
	task := &Task{
		Name:       "abandon",
		Iterations: 2000,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			bodies.Add(1)
			return boom
		},
	}
	// Prime the cost model so the plan fans out well past the worker
	// count: C = 10ns/iteration gives 100-iteration chunks.
	task.recordSpan(10_000*time.Nanosecond, 1000)

	if err := s.Run(context.Background(), task); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}

	// Run returns as soon as the failure is observed; wait for the
	// worker to retire the abandoned remainder.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.Stats().PerWorker[0].Discarded < 19 {
		time.Sleep(time.Millisecond)
	}

	// The lone worker retires the batch in order, so exactly one body
	// ran and every later subtask was dropped at its boundary.
	if got := bodies.Load(); got != 1 {
		t.Errorf("bodies executed = %d, want 1", got)
	}
	if got := s.Stats().PerWorker[0].Discarded; got != 19 {
		t.Errorf("discarded subtasks = %d, want 19", got)
	}
}

// TestScheduler_ProfileCPUTimeLive verifies CPU time is visible before shutdown
// Given: A profiling scheduler running a CPU-bound task
// When: Stats is read while the pool is still up
// Then: The workers report nonzero CPUTime
func TestScheduler_ProfileCPUTimeLive(t *testing.T) {
	if _, err := platform.ThreadCPUTime(); err != nil {
		t.Skip("thread CPU time not supported on this platform")
	}
	s := newTestScheduler(t, &SchedulerConfig{Workers: 2, Profile: true})

	task := &Task{
		Name:       "burn",
		Iterations: 1 << 20,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			x := uint64(start) | 1
			for i := start; i < end; i++ {
				x ^= x << 13
				x ^= x >> 7
				x ^= x << 17
			}
			if x == 0 {
				return errors.New("unreachable")
			}
			return nil
		},
	}

	// Clock granularity may hide a single short run; keep running until
	// a worker's CPU time shows up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := s.Run(context.Background(), task); err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
		var cpu time.Duration
		for _, ws := range s.Stats().PerWorker {
			cpu += ws.CPUTime
		}
		if cpu > 0 {
			return
		}
		if !time.Now().Before(deadline) {
			t.Fatal("no worker reported CPU time while the pool was running")
		}
	}
}

// TestScheduler_Validation verifies bad tasks are rejected up front
// Given: Tasks with no body or a negative range
// When: They are submitted
// Then: The matching sentinel error comes back and nothing runs
func TestScheduler_Validation(t *testing.T) {
	s := newTestScheduler(t, nil)

	if err := s.Run(context.Background(), &Task{Name: "nobody", Iterations: 5}); !errors.Is(err, ErrNilTaskFunc) {
		t.Errorf("Run() with no function error = %v, want ErrNilTaskFunc", err)
	}

	task := &Task{
		Name:       "negative",
		Iterations: -1,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			return nil
		},
	}
	if err := s.Run(context.Background(), task); !errors.Is(err, ErrNegativeIterations) {
		t.Errorf("Run() with negative iterations error = %v, want ErrNegativeIterations", err)
	}
}

// TestScheduler_PanicBecomesError verifies panics are contained
// Given: A body that panics in one subtask and a recording panic handler
// When: The run completes
// Then: Run returns an error naming the panic and the handler saw it
func TestScheduler_PanicBecomesError(t *testing.T) {
	handler := &recordingPanicHandler{}
	s := newTestScheduler(t, &SchedulerConfig{Workers: 4, PanicHandler: handler})

	task := &Task{
		Name:       "panicky",
		Iterations: 10_000,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			if start == 0 {
				panic("bad index math")
			}
			return nil
		},
	}

	err := s.Run(context.Background(), task)
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("Run() error = %v, want a panic error", err)
	}
	if got := handler.calls.Load(); got != 1 {
		t.Errorf("panic handler calls = %d, want 1", got)
	}
	if got, ok := handler.lastInfo.Load().(string); !ok || got != "bad index math" {
		t.Errorf("panic info = %v, want %q", handler.lastInfo.Load(), "bad index math")
	}

	// The scheduler survives: a later run still works.
	var total atomic.Int64
	after := &Task{
		Name:       "after-panic",
		Iterations: 1000,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			total.Add(end - start)
			return nil
		},
	}
	if err := s.Run(context.Background(), after); err != nil {
		t.Fatalf("Run() after panic error = %v, want nil", err)
	}
	if total.Load() != 1000 {
		t.Errorf("iterations processed = %d, want 1000", total.Load())
	}
}

type recordingPanicHandler struct {
	calls    atomic.Int32
	lastInfo atomic.Value
}

func (h *recordingPanicHandler) HandlePanic(ctx context.Context, taskName string, workerID int, panicInfo any, stackTrace []byte) {
	h.calls.Add(1)
	h.lastInfo.Store(fmt.Sprint(panicInfo))
}

// TestScheduler_AdaptivePlan verifies cost history drives the partition
// Given: A task primed with a 10ns/iteration cost and kappa of 1000ns
// When: A dynamic run over 10000 iterations is planned
// Then: The plan carves 100-iteration chunks, i.e. 100 subtasks
func TestScheduler_AdaptivePlan(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Workers: 4, Kappa: 1000 * time.Nanosecond})

	task := &Task{Name: "adaptive", Iterations: 10_000}
	task.recordSpan(10_000*time.Nanosecond, 1000) // C = 10ns/iteration

	info := s.plan(task)

	if info.NSubtasks != 100 {
		t.Errorf("NSubtasks = %d, want 100", info.NSubtasks)
	}
	if info.IterPerSubtask != 100 || info.Remainder != 0 {
		t.Errorf("IterPerSubtask, Remainder = %d, %d, want 100, 0", info.IterPerSubtask, info.Remainder)
	}
}

// TestScheduler_ColdStartPlan verifies the partition before any history
// Given: A fresh dynamic task
// When: Its first run is planned
// Then: The plan falls back to one subtask per worker
func TestScheduler_ColdStartPlan(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Workers: 4})

	info := s.plan(&Task{Name: "cold", Iterations: 1_000_000})

	if info.NSubtasks != 4 {
		t.Errorf("NSubtasks = %d, want 4 (one per worker)", info.NSubtasks)
	}
}

// TestScheduler_ConcurrentRuns verifies independent submissions coexist
// Given: Eight goroutines each running their own summing task
// When: All runs complete
// Then: Every sum is correct and no run's error state leaked into another
func TestScheduler_ConcurrentRuns(t *testing.T) {
	s := newTestScheduler(t, nil)
	const n = 20_000

	var wg sync.WaitGroup
	errs := make([]error, 8)
	totals := make([]atomic.Int64, 8)

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			task := &Task{
				Name:       fmt.Sprintf("concurrent-%d", g),
				Iterations: n,
				Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
					var local int64
					for i := start; i < end; i++ {
						local += i
					}
					totals[g].Add(local)
					return nil
				},
			}
			errs[g] = s.Run(context.Background(), task)
		}(g)
	}
	wg.Wait()

	want := int64(n) * (n - 1) / 2
	for g := 0; g < 8; g++ {
		if errs[g] != nil {
			t.Errorf("run %d error = %v, want nil", g, errs[g])
		}
		if got := totals[g].Load(); got != want {
			t.Errorf("run %d total = %d, want %d", g, got, want)
		}
	}
}

// TestScheduler_StatsAfterRun verifies the snapshot accounts for the work
// Given: One clean static run of 4 subtasks
// When: Stats is read after the join
// Then: Executed subtasks and completed runs match what was submitted
func TestScheduler_StatsAfterRun(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Workers: 4})

	task := &Task{
		Name:       "stats",
		Iterations: 40,
		Mode:       ScheduleStatic,
		Fn: func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			return nil
		},
	}
	if err := s.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	st := s.Stats()
	if st.Workers != 4 {
		t.Errorf("Workers = %d, want 4", st.Workers)
	}
	if !st.Running {
		t.Error("Running = false, want true")
	}
	if st.RunsCompleted != 1 {
		t.Errorf("RunsCompleted = %d, want 1", st.RunsCompleted)
	}
	if st.SubtasksExecuted != 4 {
		t.Errorf("SubtasksExecuted = %d, want 4", st.SubtasksExecuted)
	}
	if len(st.PerWorker) != 4 {
		t.Errorf("len(PerWorker) = %d, want 4", len(st.PerWorker))
	}
}
