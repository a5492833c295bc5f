package loader

import (
	"context"
	"errors"
)

// ErrConflictingSources is returned when more than one input is named.
var ErrConflictingSources = errors.New("at most one of graph, scenario and osm may be set")

// Source names where a scenario comes from. All empty means the demo
// grid.
type Source struct {
	Graph    string
	Scenario string
	OSM      string
	OSMOpts  OSMOptions
}

// Load reads the scenario the source names.
func Load(ctx context.Context, src Source) (*Scenario, error) {
	set := 0
	for _, p := range []string{src.Graph, src.Scenario, src.OSM} {
		if p != "" {
			set++
		}
	}
	switch {
	case set > 1:
		return nil, ErrConflictingSources
	case src.Graph != "":
		return LoadGraphFile(src.Graph)
	case src.Scenario != "":
		return LoadScenarioFile(src.Scenario)
	case src.OSM != "":
		opts := src.OSMOpts
		if opts.MetersPerTick == 0 {
			opts = DefaultOSMOptions()
		}
		return LoadOSMFile(ctx, src.OSM, opts)
	default:
		return DemoGrid(), nil
	}
}
