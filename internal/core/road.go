package core

import (
	"math"

	"github.com/paulmach/orb"
)

// Node is an intersection. Pos is carried for presentation only.
type Node struct {
	ID  NodeID    `json:"id"`
	Pos orb.Point `json:"pos"`
}

// Edge is a directed road. Weight doubles as path cost and travel time.
type Edge struct {
	ID     EdgeID  `json:"id"`
	From   NodeID  `json:"from"`
	To     NodeID  `json:"to"`
	Weight float64 `json:"weight"`
}

// TravelTicks returns the whole number of ticks needed to traverse the
// edge. Fractional weights are truncated, anything below one tick is
// clamped to one and weights past the int range saturate at math.MaxInt.
func (e Edge) TravelTicks() int {
	if e.Weight >= math.MaxInt {
		return math.MaxInt
	}
	ticks := int(e.Weight)
	if ticks < 1 {
		return 1
	}
	return ticks
}

// TrafficRecord is one observation of traffic on an edge.
type TrafficRecord struct {
	EdgeID    EdgeID  `json:"edge_id"`
	Timestamp int     `json:"timestamp"`
	Density   float64 `json:"density"`
	Speed     float64 `json:"speed"`
	Count     int     `json:"count"`
}
