package loader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// OSMOptions controls OpenStreetMap import.
type OSMOptions struct {
	// MetersPerTick converts way length into travel ticks.
	MetersPerTick float64

	// Highways restricts import to these highway=* values. Empty imports
	// every way carrying a highway tag.
	Highways []string
}

// DefaultOSMOptions returns 14 m per tick (about 50 km/h at one tick per
// second) over the usual drivable road classes.
func DefaultOSMOptions() OSMOptions {
	return OSMOptions{
		MetersPerTick: 14,
		Highways: []string{
			"motorway", "trunk", "primary", "secondary", "tertiary",
			"unclassified", "residential", "living_street", "service",
			"motorway_link", "trunk_link", "primary_link", "secondary_link", "tertiary_link",
		},
	}
}

// ReadOSM imports road ways from an OSM XML extract. Every way node
// becomes a network node positioned at (lon, lat); each consecutive pair
// becomes one edge per permitted direction, weighted by geodesic length
// over MetersPerTick. Edge ids are assigned sequentially from 1.
func ReadOSM(ctx context.Context, r io.Reader, opts OSMOptions) (*Scenario, error) {
	if opts.MetersPerTick <= 0 {
		return nil, fmt.Errorf("osm: MetersPerTick must be positive, got %v", opts.MetersPerTick)
	}
	allowed := make(map[string]bool, len(opts.Highways))
	for _, h := range opts.Highways {
		allowed[h] = true
	}

	positions := make(map[osm.NodeID]orb.Point)
	var ways []*osm.Way

	scanner := osmxml.New(ctx, r)
	defer scanner.Close()
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			positions[o.ID] = orb.Point{o.Lon, o.Lat}
		case *osm.Way:
			hw := o.Tags.Find("highway")
			if hw == "" || (len(allowed) > 0 && !allowed[hw]) {
				continue
			}
			ways = append(ways, o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("osm: %w", err)
	}

	s := &Scenario{}
	added := make(map[osm.NodeID]bool)
	addNode := func(id osm.NodeID) bool {
		if added[id] {
			return true
		}
		p, ok := positions[id]
		if !ok {
			return false
		}
		added[id] = true
		s.Nodes = append(s.Nodes, core.Node{ID: core.NodeID(id), Pos: p})
		return true
	}

	nextEdge := core.EdgeID(1)
	addEdge := func(from, to osm.NodeID) {
		length := geo.Distance(positions[from], positions[to])
		s.Edges = append(s.Edges, core.Edge{
			ID:     nextEdge,
			From:   core.NodeID(from),
			To:     core.NodeID(to),
			Weight: length / opts.MetersPerTick,
		})
		nextEdge++
	}

	for _, w := range ways {
		forward, backward := directions(w.Tags)
		for i := 0; i+1 < len(w.Nodes); i++ {
			a, b := w.Nodes[i].ID, w.Nodes[i+1].ID
			if a == b || !addNode(a) || !addNode(b) {
				continue
			}
			if forward {
				addEdge(a, b)
			}
			if backward {
				addEdge(b, a)
			}
		}
	}
	return s, nil
}

// directions reports which ways along the node order traffic may flow.
func directions(tags osm.Tags) (forward, backward bool) {
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return true, false
	case "-1", "reverse":
		return false, true
	case "no", "false", "0":
		return true, true
	}
	if tags.Find("junction") == "roundabout" || tags.Find("highway") == "motorway" {
		return true, false
	}
	return true, true
}

// LoadOSMFile imports an OSM XML file from disk.
func LoadOSMFile(ctx context.Context, path string, opts OSMOptions) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadOSM(ctx, f, opts)
}
