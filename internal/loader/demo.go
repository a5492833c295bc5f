package loader

import (
	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// DemoGrid returns the 3x3 demonstration city: nodes 1..9 laid out row by
// row, two-way streets of weight 80 across and 60 down, and a controller
// at every node. Edge ids concatenate the endpoint ids (23 is 2->3).
func DemoGrid() *Scenario {
	s := &Scenario{Name: "demo-grid-3x3"}

	xs := []float64{100, 500, 900}
	ys := []float64{100, 400, 700}
	for r, y := range ys {
		for c, x := range xs {
			s.Nodes = append(s.Nodes, core.Node{ID: core.NodeID(r*3 + c + 1), Pos: orb.Point{x, y}})
		}
	}

	link := func(a, b int, w float64) {
		s.Edges = append(s.Edges,
			core.Edge{ID: core.EdgeID(a*10 + b), From: core.NodeID(a), To: core.NodeID(b), Weight: w},
			core.Edge{ID: core.EdgeID(b*10 + a), From: core.NodeID(b), To: core.NodeID(a), Weight: w},
		)
	}
	for _, p := range [][2]int{{1, 2}, {2, 3}, {4, 5}, {5, 6}, {7, 8}, {8, 9}} {
		link(p[0], p[1], 80)
	}
	for _, p := range [][2]int{{1, 4}, {2, 5}, {3, 6}, {4, 7}, {5, 8}, {6, 9}} {
		link(p[0], p[1], 60)
	}

	signals := map[core.NodeID][]core.EdgeID{
		1: {12, 14},
		2: {21, 23, 25},
		3: {32, 36},
		4: {41, 45, 47},
		5: {52, 54, 56, 58},
		6: {63, 65, 69},
		7: {74, 78},
		8: {85, 87, 89},
		9: {96, 98},
	}
	for n := core.NodeID(1); n <= 9; n++ {
		s.Signals = append(s.Signals, SignalSpec{Node: n, Approaches: signals[n]})
	}

	interval := 20
	s.Sim.SpawnInterval = &interval
	return s
}
