package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Swind/go-loop-runner/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	runsCompleted    *prom.GaugeVec
	runsFailed       *prom.GaugeVec
	sequentialRuns   *prom.GaugeVec
	schedulerRunning *prom.GaugeVec
	schedulerWorkers *prom.GaugeVec

	workerExecuted     *prom.GaugeVec
	workerDiscarded    *prom.GaugeVec
	workerSteals       *prom.GaugeVec
	workerFailedSteals *prom.GaugeVec
	workerSplits       *prom.GaugeVec
	workerStolenFrom   *prom.GaugeVec
	workerQueueDepth   *prom.GaugeVec
	workerBusySeconds  *prom.GaugeVec
	workerCPUSeconds   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	runsCompleted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "scheduler_runs_completed",
		Help:      "Completed run count snapshot per scheduler.",
	}, []string{"scheduler"})
	runsFailed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "scheduler_runs_failed",
		Help:      "Failed run count snapshot per scheduler.",
	}, []string{"scheduler"})
	sequentialRuns := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "scheduler_sequential_runs",
		Help:      "Inline sequential run count snapshot per scheduler.",
	}, []string{"scheduler"})
	schedulerRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "scheduler_running",
		Help:      "Scheduler running state (1=running, 0=stopped).",
	}, []string{"scheduler"})
	schedulerWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "scheduler_workers",
		Help:      "Worker count per scheduler.",
	}, []string{"scheduler"})

	workerExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_subtasks_executed",
		Help:      "Subtasks executed per worker.",
	}, []string{"scheduler", "worker"})
	workerDiscarded := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_subtasks_discarded",
		Help:      "Subtasks retired unrun after cancellation, per worker.",
	}, []string{"scheduler", "worker"})
	workerSteals := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_steals",
		Help:      "Successful steals per worker.",
	}, []string{"scheduler", "worker"})
	workerFailedSteals := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_failed_steals",
		Help:      "Steal rounds that found nothing, per worker.",
	}, []string{"scheduler", "worker"})
	workerSplits := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_splits",
		Help:      "Stolen subtasks split per worker.",
	}, []string{"scheduler", "worker"})
	workerStolenFrom := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_stolen_from",
		Help:      "Subtasks thieves took off this worker's deque.",
	}, []string{"scheduler", "worker"})
	workerQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_queue_depth",
		Help:      "Current deque depth per worker.",
	}, []string{"scheduler", "worker"})
	workerBusySeconds := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_busy_seconds",
		Help:      "Wall time spent inside loop bodies, per worker.",
	}, []string{"scheduler", "worker"})
	workerCPUSeconds := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "looprunner",
		Name:      "worker_cpu_seconds",
		Help:      "Worker thread CPU time; zero unless profiling is enabled.",
	}, []string{"scheduler", "worker"})

	var err error
	if runsCompleted, err = registerCollector(reg, runsCompleted); err != nil {
		return nil, err
	}
	if runsFailed, err = registerCollector(reg, runsFailed); err != nil {
		return nil, err
	}
	if sequentialRuns, err = registerCollector(reg, sequentialRuns); err != nil {
		return nil, err
	}
	if schedulerRunning, err = registerCollector(reg, schedulerRunning); err != nil {
		return nil, err
	}
	if schedulerWorkers, err = registerCollector(reg, schedulerWorkers); err != nil {
		return nil, err
	}
	if workerExecuted, err = registerCollector(reg, workerExecuted); err != nil {
		return nil, err
	}
	if workerDiscarded, err = registerCollector(reg, workerDiscarded); err != nil {
		return nil, err
	}
	if workerSteals, err = registerCollector(reg, workerSteals); err != nil {
		return nil, err
	}
	if workerFailedSteals, err = registerCollector(reg, workerFailedSteals); err != nil {
		return nil, err
	}
	if workerSplits, err = registerCollector(reg, workerSplits); err != nil {
		return nil, err
	}
	if workerStolenFrom, err = registerCollector(reg, workerStolenFrom); err != nil {
		return nil, err
	}
	if workerQueueDepth, err = registerCollector(reg, workerQueueDepth); err != nil {
		return nil, err
	}
	if workerBusySeconds, err = registerCollector(reg, workerBusySeconds); err != nil {
		return nil, err
	}
	if workerCPUSeconds, err = registerCollector(reg, workerCPUSeconds); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:           interval,
		schedulers:         make(map[string]SchedulerSnapshotProvider),
		runsCompleted:      runsCompleted,
		runsFailed:         runsFailed,
		sequentialRuns:     sequentialRuns,
		schedulerRunning:   schedulerRunning,
		schedulerWorkers:   schedulerWorkers,
		workerExecuted:     workerExecuted,
		workerDiscarded:    workerDiscarded,
		workerSteals:       workerSteals,
		workerFailedSteals: workerFailedSteals,
		workerSplits:       workerSplits,
		workerStolenFrom:   workerStolenFrom,
		workerQueueDepth:   workerQueueDepth,
		workerBusySeconds:  workerBusySeconds,
		workerCPUSeconds:   workerCPUSeconds,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()

		p.runsCompleted.WithLabelValues(name).Set(float64(stats.RunsCompleted))
		p.runsFailed.WithLabelValues(name).Set(float64(stats.RunsFailed))
		p.sequentialRuns.WithLabelValues(name).Set(float64(stats.SequentialRuns))
		if stats.Running {
			p.schedulerRunning.WithLabelValues(name).Set(1)
		} else {
			p.schedulerRunning.WithLabelValues(name).Set(0)
		}
		p.schedulerWorkers.WithLabelValues(name).Set(float64(stats.Workers))

		for _, ws := range stats.PerWorker {
			worker := strconv.Itoa(ws.ID)
			p.workerExecuted.WithLabelValues(name, worker).Set(float64(ws.Executed))
			p.workerDiscarded.WithLabelValues(name, worker).Set(float64(ws.Discarded))
			p.workerSteals.WithLabelValues(name, worker).Set(float64(ws.Steals))
			p.workerFailedSteals.WithLabelValues(name, worker).Set(float64(ws.FailedSteals))
			p.workerSplits.WithLabelValues(name, worker).Set(float64(ws.Splits))
			p.workerStolenFrom.WithLabelValues(name, worker).Set(float64(ws.StolenFrom))
			p.workerQueueDepth.WithLabelValues(name, worker).Set(float64(ws.QueueDepth))
			p.workerBusySeconds.WithLabelValues(name, worker).Set(ws.BusyTime.Seconds())
			p.workerCPUSeconds.WithLabelValues(name, worker).Set(ws.CPUTime.Seconds())
		}
	}
}
