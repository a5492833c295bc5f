// Package optimize suggests signal timing changes from a snapshot of the
// network and its intersections. It is a pure function of its inputs; the
// simulation never calls it.
package optimize

import (
	"math"

	"github.com/samber/lo"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/signal"
)

// Options tunes the suggestion heuristic.
type Options struct {
	// TicksPerVehicle is the green time granted per vehicle of excess
	// pressure over the intersection mean.
	TicksPerVehicle float64

	// MaxDelta bounds the change to any one approach.
	MaxDelta int

	// MinGreen is the shortest green a suggestion may leave.
	MinGreen int

	// RecordWeight scales observed load from traffic records relative to
	// live queue length. Zero ignores records.
	RecordWeight float64
}

func DefaultOptions() Options {
	return Options{
		TicksPerVehicle: 1,
		MaxDelta:        10,
		MinGreen:        5,
		RecordWeight:    1,
	}
}

// Suggestion is a proposed green-time change for one approach.
type Suggestion struct {
	Node     core.NodeID `json:"node"`
	Approach core.EdgeID `json:"approach"`
	Pressure float64     `json:"pressure"`
	Delta    int         `json:"delta"`
	Green    int         `json:"green"` // suggested green duration
}

// Suggest compares the pressure on the approaches of each intersection and
// proposes more green for the loaded ones and less for the idle ones.
// Pressure is the live queue length plus, when records are given, the mean
// observed density on the edge times its length. Intersections with fewer
// than two approaches get no suggestion, nor do approaches whose change
// rounds to zero.
func Suggest(edges []core.Edge, intersections []signal.View, records []core.TrafficRecord, opts Options) []Suggestion {
	length := lo.SliceToMap(edges, func(e core.Edge) (core.EdgeID, float64) { return e.ID, e.Weight })
	observed := observedLoad(records, length)

	var out []Suggestion
	for _, ix := range intersections {
		if len(ix.Approaches) < 2 {
			continue
		}
		pressure := lo.Map(ix.Approaches, func(a signal.ApproachView, _ int) float64 {
			return float64(len(a.Queue)) + opts.RecordWeight*observed[a.Edge]
		})
		mean := lo.Reduce(pressure, func(acc, p float64, _ int) float64 { return acc + p }, 0) / float64(len(pressure))

		for i, a := range ix.Approaches {
			delta := int(math.Round((pressure[i] - mean) * opts.TicksPerVehicle))
			delta = clamp(delta, -opts.MaxDelta, opts.MaxDelta)
			if floor := opts.MinGreen - ix.Timing.Green; delta < floor {
				delta = floor
			}
			if delta == 0 {
				continue
			}
			out = append(out, Suggestion{
				Node:     ix.Node,
				Approach: a.Edge,
				Pressure: pressure[i],
				Delta:    delta,
				Green:    ix.Timing.Green + delta,
			})
		}
	}
	return out
}

// observedLoad estimates vehicles on each edge from records: mean density
// times edge length. Records for unknown edges are ignored.
func observedLoad(records []core.TrafficRecord, length map[core.EdgeID]float64) map[core.EdgeID]float64 {
	byEdge := lo.GroupBy(records, func(r core.TrafficRecord) core.EdgeID { return r.EdgeID })
	load := make(map[core.EdgeID]float64, len(byEdge))
	for e, rs := range byEdge {
		l, ok := length[e]
		if !ok {
			continue
		}
		sum := lo.Reduce(rs, func(acc float64, r core.TrafficRecord, _ int) float64 { return acc + r.Density }, 0)
		load[e] = sum / float64(len(rs)) * l
	}
	return load
}

// ByNode groups suggestions by intersection.
func ByNode(s []Suggestion) map[core.NodeID][]Suggestion {
	return lo.GroupBy(s, func(x Suggestion) core.NodeID { return x.Node })
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
