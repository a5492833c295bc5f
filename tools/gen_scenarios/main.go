// Command gen_scenarios writes deterministic grid scenarios for the
// simulator and the sweep runner.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/loader"
)

// GridParams defines one generated scenario.
type GridParams struct {
	Seed      int64
	Width     int
	Height    int
	Spacing   float64 // world units between neighbouring nodes
	WeightMin float64
	WeightMax float64
	OneWay    float64 // fraction of roads with only one direction
	Vehicles  int     // vehicles placed at tick 0
	Spawn     int     // spawn interval, 0 disables spawning
}

// generateGrid builds a Width x Height grid with two-way roads, turns a
// fraction of them one-way, signals every node and places random trips.
func generateGrid(p GridParams) *loader.Scenario {
	rng := rand.New(rand.NewSource(p.Seed))

	s := &loader.Scenario{
		Name:       fmt.Sprintf("grid_%dx%d_%d", p.Width, p.Height, p.Seed),
		ControlAll: true,
	}
	id := func(x, y int) core.NodeID { return core.NodeID(y*p.Width + x + 1) }
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			s.Nodes = append(s.Nodes, core.Node{
				ID:  id(x, y),
				Pos: orb.Point{float64(x) * p.Spacing, float64(y) * p.Spacing},
			})
		}
	}

	next := core.EdgeID(1)
	road := func(a, b core.NodeID) {
		w := p.WeightMin + rng.Float64()*(p.WeightMax-p.WeightMin)
		forward, backward := true, true
		if rng.Float64() < p.OneWay {
			if rng.Intn(2) == 0 {
				backward = false
			} else {
				forward = false
			}
		}
		if forward {
			s.Edges = append(s.Edges, core.Edge{ID: next, From: a, To: b, Weight: w})
			next++
		}
		if backward {
			s.Edges = append(s.Edges, core.Edge{ID: next, From: b, To: a, Weight: w})
			next++
		}
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if x+1 < p.Width {
				road(id(x, y), id(x+1, y))
			}
			if y+1 < p.Height {
				road(id(x, y), id(x, y+1))
			}
		}
	}

	n := p.Width * p.Height
	for i := 0; i < p.Vehicles && n > 1; i++ {
		src := rng.Intn(n)
		dst := rng.Intn(n - 1)
		if dst >= src {
			dst++
		}
		s.Vehicles = append(s.Vehicles, loader.VehicleSpec{
			ID:          core.VehicleID(i + 1),
			Source:      core.NodeID(src + 1),
			Destination: core.NodeID(dst + 1),
		})
	}

	enabled := p.Spawn > 0
	s.Sim.SpawnEnabled = &enabled
	if enabled {
		interval := p.Spawn
		s.Sim.SpawnInterval = &interval
	}
	seed := p.Seed
	s.Sim.Seed = &seed
	return s
}

func main() {
	seed := flag.Int64("seed", 42, "Random seed for deterministic generation")
	width := flag.Int("width", 5, "Grid width in nodes")
	height := flag.Int("height", 5, "Grid height in nodes")
	spacing := flag.Float64("spacing", 100, "Distance between neighbouring nodes")
	weightMin := flag.Float64("weight-min", 40, "Minimum road weight")
	weightMax := flag.Float64("weight-max", 120, "Maximum road weight")
	oneWay := flag.Float64("oneway", 0, "Fraction of one-way roads (0-1)")
	vehicles := flag.Int("vehicles", 20, "Vehicles placed at tick 0")
	spawn := flag.Int("spawn", 20, "Spawn interval in ticks (0 disables)")
	outputDir := flag.String("output", "testdata", "Output directory")
	scaling := flag.Bool("scaling", false, "Generate the scaling suite (3, 5, 10, 20, 40 wide)")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	base := GridParams{
		Seed:      *seed,
		Width:     *width,
		Height:    *height,
		Spacing:   *spacing,
		WeightMin: *weightMin,
		WeightMax: *weightMax,
		OneWay:    *oneWay,
		Vehicles:  *vehicles,
		Spawn:     *spawn,
	}

	params := []GridParams{base}
	if *scaling {
		params = params[:0]
		for _, size := range []int{3, 5, 10, 20, 40} {
			p := base
			p.Width, p.Height = size, size
			p.Vehicles = size * size
			params = append(params, p)
		}
	}

	failed := false
	for _, p := range params {
		s := generateGrid(p)
		filename := filepath.Join(*outputDir, s.Name+".json")
		if err := loader.SaveScenarioFile(filename, s); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing scenario %s: %v\n", filename, err)
			failed = true
			continue
		}
		fmt.Printf("Generated: %s (%d nodes, %d edges, %d vehicles)\n",
			filename, len(s.Nodes), len(s.Edges), len(s.Vehicles))
	}
	if failed {
		os.Exit(1)
	}
}
