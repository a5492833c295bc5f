// Package state holds what the viewer shows: a clock, its latest snapshot,
// and playback.
package state

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
)

// Builder constructs a fresh clock. Reset calls it again.
type Builder func() (*sim.Clock, error)

// State is owned by the UI goroutine.
type State struct {
	build Builder
	clock *sim.Clock

	Snapshot sim.Snapshot
	Metrics  sim.Metrics
	Playback *Playback

	// Selected is the highlighted vehicle, zero for none.
	Selected core.VehicleID

	nodes map[core.NodeID]orb.Point
}

func New(build Builder, ticksPerSecond float64) (*State, error) {
	s := &State{build: build, Playback: NewPlayback(ticksPerSecond)}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset rebuilds the clock and pauses playback.
func (s *State) Reset() error {
	clock, err := s.build()
	if err != nil {
		return err
	}
	s.clock = clock
	s.Selected = 0
	s.Playback.Pause()
	s.refresh()
	s.nodes = make(map[core.NodeID]orb.Point, len(s.Snapshot.Nodes))
	for _, n := range s.Snapshot.Nodes {
		s.nodes[n.ID] = n.Pos
	}
	return nil
}

func (s *State) refresh() {
	s.Snapshot = s.clock.Snapshot()
	s.Metrics = s.clock.Metrics()
	if s.Selected != 0 {
		if _, ok := s.Snapshot.Vehicle(s.Selected); !ok {
			s.Selected = 0
		}
	}
}

// Step advances the clock n ticks.
func (s *State) Step(n int) {
	if n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		s.clock.Advance()
	}
	s.refresh()
}

// Update runs the ticks playback owes at now and reports whether the
// snapshot changed.
func (s *State) Update(now time.Time) bool {
	n := s.Playback.Due(now)
	s.Step(n)
	return n > 0
}

// Bounds is the extent of the network.
func (s *State) Bounds() orb.Bound {
	return s.clock.Network().Bounds()
}

// NodePos returns the position of a node.
func (s *State) NodePos(id core.NodeID) (orb.Point, bool) {
	p, ok := s.nodes[id]
	return p, ok
}

// Position places a vehicle: on its current node unless en route, in
// which case it is interpolated along the edge. phase adds part of a
// tick for smooth playback.
func (s *State) Position(v vehicle.View, phase float64) orb.Point {
	from := s.nodes[v.Current]
	if v.State != vehicle.EnRoute || v.Total == 0 || v.Next == nil {
		return from
	}
	to, ok := s.nodes[*v.Next]
	if !ok {
		return from
	}
	f := (float64(v.Progress) + phase) / float64(v.Total)
	if f > 1 {
		f = 1
	}
	return orb.Point{from[0] + f*(to[0]-from[0]), from[1] + f*(to[1]-from[1])}
}

// Route returns the positions a vehicle has yet to visit, starting from
// its current node.
func (s *State) Route(v vehicle.View) []orb.Point {
	start := -1
	for i, n := range v.Path {
		if n == v.Current {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	out := make([]orb.Point, 0, len(v.Path)-start)
	for _, n := range v.Path[start:] {
		if p, ok := s.nodes[n]; ok {
			out = append(out, p)
		}
	}
	return out
}

// VehicleAt returns the vehicle closest to p within radius world units.
func (s *State) VehicleAt(p orb.Point, radius float64) (core.VehicleID, bool) {
	var (
		best  core.VehicleID
		found bool
		bestD = radius
	)
	phase := s.Playback.Phase()
	for _, v := range s.Snapshot.Vehicles {
		if d := planar.Distance(p, s.Position(v, phase)); d <= bestD {
			best, bestD, found = v.ID, d, true
		}
	}
	return best, found
}

// Select highlights the vehicle nearest p, or clears the selection.
func (s *State) Select(p orb.Point, radius float64) {
	s.Selected, _ = s.VehicleAt(p, radius)
}
