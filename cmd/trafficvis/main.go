// Command trafficvis shows a simulation in a window.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/elektrokombinacija/trafficsim/internal/loader"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
	"github.com/elektrokombinacija/trafficsim/internal/vis"
)

func main() {
	graph := flag.String("graph", "", "Text graph file")
	scenario := flag.String("scenario", "", "Scenario JSON file")
	osmFile := flag.String("osm", "", "OpenStreetMap XML extract")
	speed := flag.Float64("speed", 10, "Playback speed in ticks per second")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := loader.Load(context.Background(), loader.Source{Graph: *graph, Scenario: *scenario, OSM: *osmFile})
	if err != nil {
		log.Fatal(err)
	}
	build := func() (*sim.Clock, error) {
		cfg := sim.DefaultConfig()
		cfg.Logger = logger
		return s.Build(cfg)
	}

	application, err := vis.NewApp(build, *speed, logger)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("Traffic Simulator - "+s.Name),
			app.Size(unit.Dp(1280), unit.Dp(900)),
		)
		if err := application.Run(window); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}
