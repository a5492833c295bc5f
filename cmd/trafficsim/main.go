// Command trafficsim runs a simulation headless and reports its metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/elektrokombinacija/trafficsim/internal/loader"
	"github.com/elektrokombinacija/trafficsim/internal/network"
	"github.com/elektrokombinacija/trafficsim/internal/optimize"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
)

const defaultTicks = 1000

func main() {
	graph := flag.String("graph", "", "Text graph file")
	scenario := flag.String("scenario", "", "Scenario JSON file")
	osmFile := flag.String("osm", "", "OpenStreetMap XML extract")
	ticks := flag.Int("ticks", 0, "Ticks to run (default: scenario value or 1000)")
	seed := flag.Int64("seed", 42, "Spawn random seed")
	spawn := flag.Int("spawn", 20, "Spawn interval in ticks (0 disables)")
	noFallThrough := flag.Bool("no-fallthrough", false, "Do not move vehicles on the tick they start")
	metricsOut := flag.String("metrics", "", "Write final metrics JSON to this file")
	snapshotOut := flag.String("snapshot", "", "Write the final snapshot JSON to this file")
	records := flag.String("records", "", "Traffic records CSV; prints signal timing suggestions")
	controlAll := flag.Bool("control-all", false, "Place a signal at every node without one")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := loader.Load(ctx, loader.Source{Graph: *graph, Scenario: *scenario, OSM: *osmFile})
	if err != nil {
		log.Error("load failed", "error", err)
		os.Exit(1)
	}
	if *controlAll {
		s.ControlAll = true
	}

	// Flags given explicitly override the scenario.
	cfg := s.Apply(sim.DefaultConfig())
	cfg.Logger = log
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "spawn":
			cfg.SpawnInterval = *spawn
			cfg.SpawnEnabled = *spawn > 0
		case "no-fallthrough":
			cfg.StartFallThrough = !*noFallThrough
		}
	})
	s.Sim.Seed, s.Sim.SpawnInterval, s.Sim.SpawnEnabled, s.Sim.StartFallThrough = nil, nil, nil, nil

	n := *ticks
	if n <= 0 {
		n = s.Sim.Ticks
	}
	if n <= 0 {
		n = defaultTicks
	}

	clock, err := s.Build(cfg)
	if err != nil {
		log.Error("build failed", "scenario", s.Name, "error", err)
		os.Exit(1)
	}
	describe(log, s.Name, clock.Network())

	start := time.Now()
	metrics, err := clock.Run(ctx, n)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
	if err != nil {
		log.Warn("interrupted", "error", err)
	}
	printSummary(s.Name, metrics, clock.Snapshot(), time.Since(start))

	if *records != "" {
		recs, err := loader.LoadTrafficFile(*records)
		if err != nil {
			log.Error("records failed", "error", err)
			os.Exit(1)
		}
		snap := clock.Snapshot()
		printSuggestions(optimize.Suggest(snap.Edges, snap.Intersections, recs, optimize.DefaultOptions()))
	}

	if *metricsOut != "" {
		if err := clock.ExportMetrics(*metricsOut); err != nil {
			log.Error("export metrics failed", "error", err)
			os.Exit(1)
		}
		log.Info("metrics written", "path", *metricsOut)
	}
	if *snapshotOut != "" {
		if err := writeSnapshot(*snapshotOut, clock.Snapshot()); err != nil {
			log.Error("export snapshot failed", "error", err)
			os.Exit(1)
		}
		log.Info("snapshot written", "path", *snapshotOut)
	}
}

func describe(log *slog.Logger, name string, net *network.Network) {
	a := net.Analyze()
	log.Info("network loaded",
		"scenario", name,
		"nodes", a.Nodes,
		"edges", a.Edges,
		"components", len(a.Components),
		"isolated", len(a.Isolated),
	)
	if !a.Strong() {
		log.Warn("network is not strongly connected; some trips have no route", "largest", len(a.Components[0]))
	}
}

func printSummary(name string, m *sim.Metrics, snap sim.Snapshot, elapsed time.Duration) {
	fmt.Printf("=== %s ===\n", name)
	fmt.Printf("Run:       %s (%d ticks in %v)\n", m.RunID, m.Ticks, elapsed.Round(time.Millisecond))
	fmt.Printf("Vehicles:  %d added, %d spawned (%d rejected of %d attempts)\n",
		m.Added, m.Spawned, m.SpawnRejected, m.SpawnAttempts)
	fmt.Printf("Outcomes:  %d arrived, %d failed, mean trip %.2f ticks\n", m.Arrived, m.Failed, m.MeanTripTicks)

	reasons := lo.Keys(m.Failures)
	slices.Sort(reasons)
	for _, r := range reasons {
		fmt.Printf("           %-18s %d\n", r, m.Failures[r])
	}

	counts := snap.CountByState()
	fmt.Printf("Active:    %d (%d en route, %d waiting), peak %d, max queue %d\n",
		m.Active, counts[vehicle.EnRoute], counts[vehicle.WaitingAtIntersection], m.PeakActive, m.MaxQueue)
}

func printSuggestions(s []optimize.Suggestion) {
	if len(s) == 0 {
		fmt.Println("Signal timing: no changes suggested")
		return
	}
	fmt.Println("Signal timing suggestions:")
	fmt.Printf("  %6s %8s %9s %6s %6s\n", "Node", "Approach", "Pressure", "Delta", "Green")
	for _, x := range s {
		fmt.Printf("  %6d %8d %9.2f %+6d %6d\n", x.Node, x.Approach, x.Pressure, x.Delta, x.Green)
	}
}

func writeSnapshot(path string, snap sim.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
