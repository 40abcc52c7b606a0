package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	modeDynamic = "dynamic"
	modeStatic  = "static"
	modeBoth    = "both"

	workloadUniform = "uniform"
	workloadSkewed  = "skewed"
)

// Config maps the loopbench YAML workload file. Zero fields are filled
// with defaults, so a partial file (or no file at all) is fine.
type Config struct {
	Scheduler struct {
		Workers int  `yaml:"workers"`
		KappaUs int  `yaml:"kappa_us"`
		Profile bool `yaml:"profile"`
	} `yaml:"scheduler"`

	Bench struct {
		Iterations int64  `yaml:"iterations"`
		Rounds     int    `yaml:"rounds"`
		Mode       string `yaml:"mode"`     // dynamic, static, or both
		Workload   string `yaml:"workload"` // uniform or skewed
		BodySpin   int    `yaml:"body_spin"`
		ColdStart  bool   `yaml:"cold_start"`
	} `yaml:"bench"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bench.Iterations <= 0 {
		c.Bench.Iterations = 1_000_000
	}
	if c.Bench.Rounds <= 0 {
		c.Bench.Rounds = 5
	}
	if c.Bench.Mode == "" {
		c.Bench.Mode = modeBoth
	}
	if c.Bench.Workload == "" {
		c.Bench.Workload = workloadUniform
	}
	if c.Bench.BodySpin <= 0 {
		c.Bench.BodySpin = 32
	}
	if c.Metrics.Port <= 0 {
		c.Metrics.Port = 2112
	}
}

func (c *Config) validate() error {
	switch c.Bench.Mode {
	case modeDynamic, modeStatic, modeBoth:
	default:
		return fmt.Errorf("unknown bench mode %q (want dynamic, static, or both)", c.Bench.Mode)
	}
	switch c.Bench.Workload {
	case workloadUniform, workloadSkewed:
	default:
		return fmt.Errorf("unknown workload %q (want uniform or skewed)", c.Bench.Workload)
	}
	return nil
}

// kappa returns the configured subtask time budget, or zero when the
// file left it unset so the scheduler default applies.
func (c *Config) kappa() time.Duration {
	return time.Duration(c.Scheduler.KappaUs) * time.Microsecond
}
