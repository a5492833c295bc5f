// Package loader builds simulations from external descriptions: the line
// oriented graph format, JSON scenarios, OpenStreetMap XML extracts and
// traffic observation CSV files.
//
// Everything here runs once during setup. Nothing in this package is
// consulted while the clock is ticking.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/network"
	"github.com/elektrokombinacija/trafficsim/internal/signal"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
)

var (
	// ErrSyntax marks a malformed line in a text description.
	ErrSyntax = errors.New("syntax error")

	// ErrRejected marks an entity the network or clock refused, such as a
	// duplicate id or an edge to a missing node.
	ErrRejected = errors.New("rejected")
)

// SignalSpec configures one controlled intersection.
type SignalSpec struct {
	Node       core.NodeID    `json:"node"`
	Approaches []core.EdgeID  `json:"approaches"`
	Timing     *signal.Timing `json:"timing,omitempty"`
}

// VehicleSpec pre-seeds one vehicle.
type VehicleSpec struct {
	ID          core.VehicleID `json:"id"`
	Source      core.NodeID    `json:"source"`
	Destination core.NodeID    `json:"destination"`
}

// SimSpec holds scenario overrides of sim.Config. Unset fields keep the
// caller's value.
type SimSpec struct {
	SpawnInterval      *int   `json:"spawn_interval,omitempty"`
	SpawnEnabled       *bool  `json:"spawn_enabled,omitempty"`
	Seed               *int64 `json:"seed,omitempty"`
	StartFallThrough   *bool  `json:"start_fall_through,omitempty"`
	AllowParallelEdges *bool  `json:"allow_parallel_edges,omitempty"`
	Green              int    `json:"green,omitempty"`
	Yellow             int    `json:"yellow,omitempty"`
	Ticks              int    `json:"ticks,omitempty"`
}

// Scenario is a complete simulation setup.
type Scenario struct {
	Name     string        `json:"name"`
	Nodes    []core.Node   `json:"nodes"`
	Edges    []core.Edge   `json:"edges"`
	Signals  []SignalSpec  `json:"signals,omitempty"`
	Vehicles []VehicleSpec `json:"vehicles,omitempty"`

	// ControlAll places a controller at every node without an explicit
	// signal, using its outgoing edges as approaches.
	ControlAll bool `json:"control_all,omitempty"`

	Sim SimSpec `json:"sim"`
}

// Apply returns config with the scenario overrides applied.
func (s *Scenario) Apply(config sim.Config) sim.Config {
	o := s.Sim
	if o.SpawnInterval != nil {
		config.SpawnInterval = *o.SpawnInterval
	}
	if o.SpawnEnabled != nil {
		config.SpawnEnabled = *o.SpawnEnabled
	}
	if o.Seed != nil {
		config.Seed = *o.Seed
	}
	if o.StartFallThrough != nil {
		config.StartFallThrough = *o.StartFallThrough
	}
	if o.Green > 0 {
		config.Timing.Green = o.Green
	}
	if o.Yellow > 0 {
		config.Timing.Yellow = o.Yellow
	}
	return config
}

// Network builds the road network described by the scenario.
func (s *Scenario) Network() (*network.Network, error) {
	opts := network.DefaultOptions()
	if s.Sim.AllowParallelEdges != nil {
		opts.AllowParallelEdges = *s.Sim.AllowParallelEdges
	}
	net := network.New(opts)
	for _, n := range s.Nodes {
		if !net.AddNode(n.ID, n.Pos) {
			return nil, fmt.Errorf("%w: node %d", ErrRejected, n.ID)
		}
	}
	for _, e := range s.Edges {
		if !net.AddEdge(e.ID, e.From, e.To, e.Weight) {
			return nil, fmt.Errorf("%w: edge %d (%d->%d, weight %v)", ErrRejected, e.ID, e.From, e.To, e.Weight)
		}
	}
	return net, nil
}

// Build constructs a clock for the scenario. Explicit signals are
// registered first, then ControlAll fills in the rest, then vehicles are
// added.
func (s *Scenario) Build(config sim.Config) (*sim.Clock, error) {
	net, err := s.Network()
	if err != nil {
		return nil, err
	}
	config = s.Apply(config)
	clock := sim.New(net, config)

	for _, sig := range s.Signals {
		timing := config.Timing
		if sig.Timing != nil {
			timing = *sig.Timing
		}
		ctrl, err := signal.New(sig.Node, sig.Approaches, timing)
		if err != nil {
			return nil, fmt.Errorf("signal at node %d: %w", sig.Node, err)
		}
		if err := clock.AddSignal(ctrl); err != nil {
			return nil, fmt.Errorf("signal at node %d: %w", sig.Node, err)
		}
	}
	if s.ControlAll {
		if _, err := clock.ControlAllNodes(); err != nil {
			return nil, err
		}
	}

	for _, v := range s.Vehicles {
		if !net.HasNode(v.Source) || !net.HasNode(v.Destination) {
			return nil, fmt.Errorf("%w: vehicle %d (%d->%d)", ErrRejected, v.ID, v.Source, v.Destination)
		}
		if !clock.AddVehicle(vehicle.New(v.ID, v.Source, v.Destination)) {
			return nil, fmt.Errorf("%w: vehicle %d", ErrRejected, v.ID)
		}
	}
	return clock, nil
}

// ReadScenario decodes a JSON scenario.
func ReadScenario(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &s, nil
}

// WriteScenario encodes s as indented JSON.
func WriteScenario(w io.Writer, s *Scenario) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// LoadScenarioFile reads a JSON scenario from disk.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadScenario(f)
}

// SaveScenarioFile writes s to disk as JSON.
func SaveScenarioFile(path string, s *Scenario) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteScenario(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FromNetwork captures an existing network as a scenario.
func FromNetwork(name string, net *network.Network) *Scenario {
	return &Scenario{
		Name:  name,
		Nodes: net.Nodes(),
		Edges: net.Edges(),
	}
}
