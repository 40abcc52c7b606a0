package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Swind/go-loop-runner/core"
)

// sink absorbs workload results so the loop bodies cannot be optimized
// away.
var sink atomic.Uint64

// spin burns CPU for n rounds of an xorshift mix and returns the mixed
// value.
func spin(n int, seed uint64) uint64 {
	x := seed | 1
	for i := 0; i < n; i++ {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
	}
	return x
}

// newBody builds the loop body for the configured workload shape.
//
// The uniform shape costs the same for every index. The skewed shape
// ramps linearly so the last index costs about four times the first,
// which punishes static partitioning and gives thieves something to
// steal.
func newBody(workload string, bodySpin int, iterations int64) (core.SubtaskFunc, error) {
	switch workload {
	case workloadUniform:
		return func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			var acc uint64
			for i := start; i < end; i++ {
				acc ^= spin(bodySpin, uint64(i))
			}
			sink.Add(acc)
			return nil
		}, nil
	case workloadSkewed:
		return func(ctx context.Context, start, end int64, subtaskID, workerID int) error {
			var acc uint64
			for i := start; i < end; i++ {
				rounds := bodySpin * int(1+3*i/iterations)
				acc ^= spin(rounds, uint64(i))
			}
			sink.Add(acc)
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown workload %q (want uniform or skewed)", workload)
	}
}

func benchModes(mode string) ([]core.ScheduleMode, error) {
	switch mode {
	case modeDynamic:
		return []core.ScheduleMode{core.ScheduleDynamic}, nil
	case modeStatic:
		return []core.ScheduleMode{core.ScheduleStatic}, nil
	case modeBoth:
		return []core.ScheduleMode{core.ScheduleStatic, core.ScheduleDynamic}, nil
	default:
		return nil, fmt.Errorf("unknown bench mode %q (want dynamic, static, or both)", mode)
	}
}

// runBench drives the configured workload through every requested
// scheduling mode, reusing one Task per mode so the cost model warms up
// across rounds (unless cold_start asks for per-round isolation).
func runBench(ctx context.Context, s *core.Scheduler, cfg *Config) error {
	body, err := newBody(cfg.Bench.Workload, cfg.Bench.BodySpin, cfg.Bench.Iterations)
	if err != nil {
		return err
	}
	modes, err := benchModes(cfg.Bench.Mode)
	if err != nil {
		return err
	}

	for _, mode := range modes {
		task := &core.Task{
			Name:       fmt.Sprintf("bench-%s-%s", cfg.Bench.Workload, mode),
			Fn:         body,
			Iterations: cfg.Bench.Iterations,
			Mode:       mode,
		}

		fmt.Printf("--- %s workload, %s scheduling: %d iterations x %d rounds ---\n",
			cfg.Bench.Workload, mode, cfg.Bench.Iterations, cfg.Bench.Rounds)

		var total time.Duration
		best := time.Duration(0)
		for round := 1; round <= cfg.Bench.Rounds; round++ {
			if cfg.Bench.ColdStart {
				task.ResetStats()
			}

			start := time.Now()
			if err := s.Run(ctx, task); err != nil {
				return fmt.Errorf("bench run failed: %w", err)
			}
			elapsed := time.Since(start)

			total += elapsed
			if best == 0 || elapsed < best {
				best = elapsed
			}
			fmt.Printf("  round %d: %v (%.1f ns/iter)\n",
				round, elapsed.Round(time.Microsecond),
				float64(elapsed.Nanoseconds())/float64(cfg.Bench.Iterations))
		}

		avg := total / time.Duration(cfg.Bench.Rounds)
		fmt.Printf("  best %v, avg %v, model cost %v/iter\n\n",
			best.Round(time.Microsecond), avg.Round(time.Microsecond), task.CostPerIteration())
	}

	return nil
}

// printStats dumps the scheduler's counters after all modes have run.
func printStats(s *core.Scheduler, profile bool) {
	stats := s.Stats()

	fmt.Println("--- scheduler stats ---")
	fmt.Printf("  runs: %d completed, %d failed, %d sequential\n",
		stats.RunsCompleted, stats.RunsFailed, stats.SequentialRuns)
	fmt.Printf("  subtasks executed: %d, steals: %d, splits: %d\n",
		stats.SubtasksExecuted, stats.Steals, stats.Splits)

	for _, ws := range stats.PerWorker {
		line := fmt.Sprintf("  worker %d: executed=%d steals=%d splits=%d busy=%v",
			ws.ID, ws.Executed, ws.Steals, ws.Splits, ws.BusyTime.Round(time.Microsecond))
		if profile {
			line += fmt.Sprintf(" cpu=%v", ws.CPUTime.Round(time.Microsecond))
		}
		fmt.Println(line)
	}
}
