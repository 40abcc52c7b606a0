package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-loop-runner/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	runDurationSeconds   *prom.HistogramVec
	runErrorsTotal       *prom.CounterVec
	subtasksSpawnedTotal *prom.CounterVec
	splitsTotal          *prom.CounterVec
	sequentialRunsTotal  *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "looprunner"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Parallel run duration from submission to join, in seconds.",
		Buckets:   buckets,
	}, []string{"task", "mode"})
	errorsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "run_errors_total",
		Help:      "Total number of runs that finished with an error.",
	}, []string{"task"})
	spawnedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "subtasks_spawned_total",
		Help:      "Total number of subtasks created by initial partitioning.",
	}, []string{"task"})
	splitsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "splits_total",
		Help:      "Total number of stolen subtasks split by a thief.",
	}, []string{"task"})
	sequentialVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "sequential_runs_total",
		Help:      "Total number of runs executed inline without fan-out.",
	}, []string{"task"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if errorsVec, err = registerCollector(reg, errorsVec); err != nil {
		return nil, err
	}
	if spawnedVec, err = registerCollector(reg, spawnedVec); err != nil {
		return nil, err
	}
	if splitsVec, err = registerCollector(reg, splitsVec); err != nil {
		return nil, err
	}
	if sequentialVec, err = registerCollector(reg, sequentialVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		runDurationSeconds:   durationVec,
		runErrorsTotal:       errorsVec,
		subtasksSpawnedTotal: spawnedVec,
		splitsTotal:          splitsVec,
		sequentialRunsTotal:  sequentialVec,
	}, nil
}

// RecordRunDuration records run duration.
func (m *MetricsExporter) RecordRunDuration(taskName string, mode core.ScheduleMode, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDurationSeconds.WithLabelValues(normalizeLabel(taskName, "unnamed"), modeLabel(mode)).Observe(duration.Seconds())
}

// RecordRunError records a failed run.
func (m *MetricsExporter) RecordRunError(taskName string) {
	if m == nil {
		return
	}
	m.runErrorsTotal.WithLabelValues(normalizeLabel(taskName, "unnamed")).Inc()
}

// RecordSubtasksSpawned records the size of a run's initial partition.
func (m *MetricsExporter) RecordSubtasksSpawned(taskName string, n int) {
	if m == nil {
		return
	}
	m.subtasksSpawnedTotal.WithLabelValues(normalizeLabel(taskName, "unnamed")).Add(float64(n))
}

// RecordSplit records a thief splitting a stolen subtask.
func (m *MetricsExporter) RecordSplit(taskName string) {
	if m == nil {
		return
	}
	m.splitsTotal.WithLabelValues(normalizeLabel(taskName, "unnamed")).Inc()
}

// RecordSequentialRun records a run executed inline.
func (m *MetricsExporter) RecordSequentialRun(taskName string) {
	if m == nil {
		return
	}
	m.sequentialRunsTotal.WithLabelValues(normalizeLabel(taskName, "unnamed")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func modeLabel(mode core.ScheduleMode) string {
	switch mode {
	case core.ScheduleDynamic:
		return "dynamic"
	case core.ScheduleStatic:
		return "static"
	default:
		return "unknown"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
