package sim

import (
	"context"
	"encoding/json"
	"maps"
	"os"
	"time"

	"github.com/elektrokombinacija/trafficsim/internal/network"
)

// Metrics collects counters during a run.
type Metrics struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Ticks     int       `json:"ticks"`

	// Spawning
	SpawnAttempts int `json:"spawn_attempts"`
	Spawned       int `json:"spawned"`
	SpawnRejected int `json:"spawn_rejected"` // no route between the picked nodes
	Added         int `json:"added"`          // registered during setup

	// Outcomes
	Arrived        int            `json:"arrived"`
	Failed         int            `json:"failed"`
	Failures       map[string]int `json:"failures"`
	TotalTripTicks int            `json:"total_trip_ticks"`
	MeanTripTicks  float64        `json:"mean_trip_ticks"`

	// Load
	Active     int `json:"active"`
	PeakActive int `json:"peak_active"`
	MaxQueue   int `json:"max_queue"`
}

func newMetrics() Metrics {
	return Metrics{
		RunID:    NewRunID(),
		Failures: make(map[string]int),
	}
}

// Metrics returns a copy of the current metrics.
func (c *Clock) Metrics() Metrics {
	m := c.metrics
	m.Failures = maps.Clone(c.metrics.Failures)
	return m
}

// ExportMetrics writes metrics to a JSON file
func (c *Clock) ExportMetrics(path string) error {
	data, err := json.MarshalIndent(c.Metrics(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Result is the final output of a simulation run
type Result struct {
	Config  ResultConfig `json:"config"`
	Metrics Metrics      `json:"metrics"`
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
}

// ResultConfig is the serialisable part of Config.
type ResultConfig struct {
	SpawnInterval    int   `json:"spawn_interval"`
	SpawnEnabled     bool  `json:"spawn_enabled"`
	Seed             int64 `json:"seed"`
	StartFallThrough bool  `json:"start_fall_through"`
	Green            int   `json:"green"`
	Yellow           int   `json:"yellow"`
}

func resultConfig(c Config) ResultConfig {
	return ResultConfig{
		SpawnInterval:    c.SpawnInterval,
		SpawnEnabled:     c.SpawnEnabled,
		Seed:             c.Seed,
		StartFallThrough: c.StartFallThrough,
		Green:            c.Timing.Green,
		Yellow:           c.Timing.Yellow,
	}
}

// RunSimulation is a convenience function that builds a clock over net,
// places a controller at every node and runs it for ticks.
func RunSimulation(ctx context.Context, net *network.Network, config Config, ticks int) (*Result, error) {
	clock := New(net, config)
	if _, err := clock.ControlAllNodes(); err != nil {
		return &Result{Config: resultConfig(clock.config), Metrics: clock.Metrics(), Error: err.Error()}, err
	}
	return clock.RunResult(ctx, ticks)
}

// RunResult runs an already configured clock for ticks and wraps the
// outcome as a Result.
func (c *Clock) RunResult(ctx context.Context, ticks int) (*Result, error) {
	result := &Result{Config: resultConfig(c.config)}
	metrics, err := c.Run(ctx, ticks)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}
	if metrics != nil {
		result.Metrics = *metrics
	}
	return result, err
}
