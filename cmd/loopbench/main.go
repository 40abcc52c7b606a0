package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Swind/go-loop-runner/core"
	obs "github.com/Swind/go-loop-runner/observability/prometheus"
	"github.com/Swind/go-loop-runner/platform"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var configFile string

func main() {
	if err := buildCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loopbench",
		Short: "Benchmark harness for the loop-runner scheduler",
		Long: `loopbench runs parallel-for workloads against the scheduler and reports
wall time per round, the cost model's estimate, and steal/split counters.
Workloads are described in a YAML config file; flags override it.`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (defaults apply when empty)")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildInfoCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	var workers int
	var iterations int64
	var rounds int
	var mode string
	var workload string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured benchmark workloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			// Flags beat file values.
			if cmd.Flags().Changed("workers") {
				cfg.Scheduler.Workers = workers
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Bench.Iterations = iterations
			}
			if cmd.Flags().Changed("rounds") {
				cfg.Bench.Rounds = rounds
			}
			if cmd.Flags().Changed("mode") {
				cfg.Bench.Mode = mode
			}
			if cmd.Flags().Changed("workload") {
				cfg.Bench.Workload = workload
			}
			cfg.applyDefaults()
			if err := cfg.validate(); err != nil {
				return err
			}

			return runBenchCommand(cfg)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = all processors)")
	cmd.Flags().Int64Var(&iterations, "iterations", 0, "iterations per round")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "rounds per mode")
	cmd.Flags().StringVar(&mode, "mode", "", "scheduling mode: dynamic, static, or both")
	cmd.Flags().StringVar(&workload, "workload", "", "workload shape: uniform or skewed")

	return cmd
}

func runBenchCommand(cfg *Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedCfg := core.DefaultSchedulerConfig()
	schedCfg.Workers = cfg.Scheduler.Workers
	schedCfg.Profile = cfg.Scheduler.Profile
	if k := cfg.kappa(); k > 0 {
		schedCfg.Kappa = k
	}

	var poller *obs.SnapshotPoller
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()

		exporter, err := obs.NewMetricsExporter("looprunner", reg, obs.ExporterOptions{})
		if err != nil {
			return fmt.Errorf("failed to build metrics exporter: %w", err)
		}
		schedCfg.Metrics = exporter

		poller, err = obs.NewSnapshotPoller(reg, time.Second)
		if err != nil {
			return fmt.Errorf("failed to build snapshot poller: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}

		go func() {
			log.Printf("Metrics endpoint on http://127.0.0.1:%d/metrics", cfg.Metrics.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server error: %v", err)
			}
		}()
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(shCtx)
		}()
	}

	s, err := core.NewScheduler(schedCfg)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shCtx); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
	}()

	if poller != nil {
		poller.AddScheduler("bench", s)
		poller.Start(ctx)
		defer poller.Stop()
	}

	log.Printf("Scheduler started: %d workers, kappa %v", s.NumWorkers(), s.Kappa())

	if err := runBench(ctx, s, cfg); err != nil {
		return err
	}

	printStats(s, cfg.Scheduler.Profile)
	return nil
}

func buildInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show machine and effective benchmark configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			workers := cfg.Scheduler.Workers
			if workers <= 0 {
				workers = platform.NumProcessors()
			}
			kappa := cfg.kappa()
			if kappa <= 0 {
				kappa = core.DefaultKappa
			}

			fmt.Printf("Processors:  %d\n", platform.NumProcessors())
			fmt.Printf("Workers:     %d\n", workers)
			fmt.Printf("Kappa:       %v\n", kappa)
			fmt.Printf("Profile:     %v\n", cfg.Scheduler.Profile)
			fmt.Printf("Workload:    %s (%d iterations, body spin %d)\n",
				cfg.Bench.Workload, cfg.Bench.Iterations, cfg.Bench.BodySpin)
			fmt.Printf("Mode:        %s, %d rounds\n", cfg.Bench.Mode, cfg.Bench.Rounds)
			if cfg.Metrics.Enabled {
				fmt.Printf("Metrics:     enabled on :%d\n", cfg.Metrics.Port)
			} else {
				fmt.Printf("Metrics:     disabled\n")
			}
			return nil
		},
	}
	return cmd
}
