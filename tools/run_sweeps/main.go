// Command run_sweeps runs every scenario across a grid of seeds and spawn
// intervals and records one row per run.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/elektrokombinacija/trafficsim/internal/loader"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
)

// SweepResult is one simulation run.
type SweepResult struct {
	Timestamp     string  `json:"timestamp"`
	CommitHash    string  `json:"commit_hash"`
	GoVersion     string  `json:"go_version"`
	Scenario      string  `json:"scenario"`
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	Seed          int64   `json:"seed"`
	SpawnInterval int     `json:"spawn_interval"`
	Ticks         int     `json:"ticks"`
	RuntimeMs     float64 `json:"runtime_ms"`
	Success       bool    `json:"success"`
	Error         string  `json:"error,omitempty"`
	Spawned       int     `json:"spawned"`
	SpawnRejected int     `json:"spawn_rejected"`
	Arrived       int     `json:"arrived"`
	Failed        int     `json:"failed"`
	MeanTripTicks float64 `json:"mean_trip_ticks"`
	PeakActive    int     `json:"peak_active"`
	MaxQueue      int     `json:"max_queue"`
	RunID         string  `json:"run_id"`
}

// job is one point of the sweep.
type job struct {
	scenario *loader.Scenario
	seed     int64
	spawn    int
}

func getGitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad list element %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// runOne builds and runs a single sweep point. Scenario overrides for seed
// and spawn interval are replaced by the sweep values.
func runOne(ctx context.Context, j job, base sim.Config, ticks int, timeout time.Duration) SweepResult {
	r := SweepResult{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		GoVersion:     runtime.Version(),
		Scenario:      j.scenario.Name,
		Nodes:         len(j.scenario.Nodes),
		Edges:         len(j.scenario.Edges),
		Seed:          j.seed,
		SpawnInterval: j.spawn,
		Ticks:         ticks,
	}

	cfg := j.scenario.Apply(base)
	cfg.Seed = j.seed
	cfg.SpawnInterval = j.spawn
	cfg.SpawnEnabled = j.spawn > 0

	s := *j.scenario
	s.Sim.Seed, s.Sim.SpawnInterval, s.Sim.SpawnEnabled = nil, nil, nil
	clock, err := s.Build(cfg)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	res, err := clock.RunResult(ctx, ticks)
	r.RuntimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	r.Success = res.Success
	if err != nil {
		r.Error = err.Error()
	}
	m := res.Metrics
	r.Spawned, r.SpawnRejected = m.Spawned, m.SpawnRejected
	r.Arrived, r.Failed = m.Arrived, m.Failed
	r.MeanTripTicks = m.MeanTripTicks
	r.PeakActive, r.MaxQueue = m.PeakActive, m.MaxQueue
	r.RunID = m.RunID
	return r
}

// sweep runs jobs on a pool of workers and returns results in job order.
func sweep(ctx context.Context, jobs []job, workers int, run func(context.Context, job) SweepResult) []SweepResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]SweepResult, len(jobs))
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i] = run(ctx, jobs[i])
			}
		}()
	}
	for i := range jobs {
		next <- i
	}
	close(next)
	wg.Wait()
	return results
}

func writeCSV(results []SweepResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"timestamp", "commit_hash", "go_version", "scenario", "nodes", "edges",
		"seed", "spawn_interval", "ticks", "runtime_ms", "success",
		"spawned", "spawn_rejected", "arrived", "failed",
		"mean_trip_ticks", "peak_active", "max_queue", "run_id",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Timestamp, r.CommitHash, r.GoVersion, r.Scenario,
			strconv.Itoa(r.Nodes), strconv.Itoa(r.Edges),
			strconv.FormatInt(r.Seed, 10), strconv.Itoa(r.SpawnInterval), strconv.Itoa(r.Ticks),
			fmt.Sprintf("%.3f", r.RuntimeMs), strconv.FormatBool(r.Success),
			strconv.Itoa(r.Spawned), strconv.Itoa(r.SpawnRejected),
			strconv.Itoa(r.Arrived), strconv.Itoa(r.Failed),
			fmt.Sprintf("%.3f", r.MeanTripTicks), strconv.Itoa(r.PeakActive), strconv.Itoa(r.MaxQueue),
			r.RunID,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(results []SweepResult, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printSummary(results []SweepResult) {
	byScenario := lo.GroupBy(results, func(r SweepResult) string {
		return fmt.Sprintf("%s@%d", r.Scenario, r.SpawnInterval)
	})
	keys := lo.Keys(byScenario)
	slices.Sort(keys)

	fmt.Println("\n=== SWEEP SUMMARY ===")
	fmt.Printf("%-28s %6s %8s %8s %8s %10s %9s\n",
		"Scenario@spawn", "Runs", "Arrived", "Failed", "Active", "MeanTrip", "Avg ms")
	fmt.Println(strings.Repeat("-", 83))
	for _, k := range keys {
		rs := byScenario[k]
		n := float64(len(rs))
		sum := func(f func(SweepResult) float64) float64 {
			return lo.Reduce(rs, func(acc float64, r SweepResult, _ int) float64 { return acc + f(r) }, 0)
		}
		fmt.Printf("%-28s %6d %8.1f %8.1f %8.1f %10.2f %9.2f\n", k, len(rs),
			sum(func(r SweepResult) float64 { return float64(r.Arrived) })/n,
			sum(func(r SweepResult) float64 { return float64(r.Failed) })/n,
			sum(func(r SweepResult) float64 { return float64(r.PeakActive) })/n,
			sum(func(r SweepResult) float64 { return r.MeanTripTicks })/n,
			sum(func(r SweepResult) float64 { return r.RuntimeMs })/n,
		)
	}
}

func main() {
	inputDir := flag.String("input", "", "Directory of scenario JSON files (empty runs the demo grid)")
	outputFile := flag.String("output", "evidence/sweep_results.csv", "Output CSV file; a .json copy is written alongside")
	seedsFlag := flag.String("seeds", "1,2,3,4,5", "Comma-separated seeds")
	spawnFlag := flag.String("spawn", "10,20,40", "Comma-separated spawn intervals (0 disables spawning)")
	ticks := flag.Int("ticks", 2000, "Ticks per run")
	timeout := flag.Duration("timeout", time.Minute, "Timeout per run")
	workers := flag.Int("workers", runtime.NumCPU(), "Concurrent runs")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	seeds, err := parseInts(*seedsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -seeds: %v\n", err)
		os.Exit(1)
	}
	spawns, err := parseInts(*spawnFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -spawn: %v\n", err)
		os.Exit(1)
	}

	var scenarios []*loader.Scenario
	if *inputDir == "" {
		scenarios = append(scenarios, loader.DemoGrid())
	} else {
		files, err := filepath.Glob(filepath.Join(*inputDir, "*.json"))
		if err != nil || len(files) == 0 {
			fmt.Fprintf(os.Stderr, "No scenario files found in %s\n", *inputDir)
			fmt.Fprintf(os.Stderr, "Run gen_scenarios first: go run ./tools/gen_scenarios -scaling -output testdata\n")
			os.Exit(1)
		}
		for _, f := range files {
			s, err := loader.LoadScenarioFile(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", f, err)
				continue
			}
			scenarios = append(scenarios, s)
		}
	}

	var jobs []job
	for _, s := range scenarios {
		for _, spawn := range spawns {
			for _, seed := range seeds {
				jobs = append(jobs, job{scenario: s, seed: int64(seed), spawn: spawn})
			}
		}
	}
	fmt.Printf("Running sweep: %d scenarios x %d spawn intervals x %d seeds = %d runs on %d workers\n",
		len(scenarios), len(spawns), len(seeds), len(jobs), *workers)

	base := sim.DefaultConfig()
	base.Logger = log
	commit := getGitCommit()
	results := sweep(context.Background(), jobs, *workers, func(ctx context.Context, j job) SweepResult {
		r := runOne(ctx, j, base, *ticks, *timeout)
		r.CommitHash = commit
		log.Info("run finished", "scenario", r.Scenario, "seed", r.Seed, "spawn", r.SpawnInterval,
			"arrived", r.Arrived, "failed", r.Failed, "ms", r.RuntimeMs)
		return r
	})

	if err := os.MkdirAll(filepath.Dir(*outputFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	if err := writeCSV(results, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		os.Exit(1)
	}
	jsonFile := strings.TrimSuffix(*outputFile, filepath.Ext(*outputFile)) + ".json"
	if err := writeJSON(results, jsonFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
	fmt.Printf("\nResults written to %s and %s\n", *outputFile, jsonFile)
}
