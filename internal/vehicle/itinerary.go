// Package vehicle implements the per-vehicle movement state machine.
//
// An Itinerary plans a route once, then on each Advance moves along its
// current edge, queues at the intersection at the end of it, and waits
// there until its approach is GREEN and it is first in line.
package vehicle

import (
	"log/slog"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// Roads is the part of the road network an itinerary reads.
type Roads interface {
	ShortestPath(start, end core.NodeID) []core.NodeID
	EdgeBetween(from, to core.NodeID) (core.Edge, bool)
}

// Intersection is the signal and queue state at one node.
type Intersection interface {
	Signal(approach core.EdgeID) (core.LightState, error)
	Front(approach core.EdgeID) (core.VehicleID, bool)
	Dequeue(approach core.EdgeID) (core.VehicleID, bool)
	Enqueue(v core.VehicleID, approach core.EdgeID) error
}

// Intersections resolves the intersection controlling a node.
type Intersections interface {
	Intersection(node core.NodeID) (Intersection, bool)
}

// Env is what one Advance call may consult.
type Env struct {
	Roads         Roads
	Intersections Intersections

	// StartFallThrough lets a vehicle that begins its journey consume its
	// first tick of edge progress in the same Advance call.
	StartFallThrough bool

	Tick   int
	Logger *slog.Logger
}

// Itinerary is a vehicle: its planned route and live movement state.
type Itinerary struct {
	id          core.VehicleID
	source      core.NodeID
	destination core.NodeID
	path        []core.NodeID

	state  State
	reason FailureReason

	current core.NodeID
	next    core.NodeID
	edge    core.Edge // edge being traversed, or the approach queued for

	progress int
	total    int
}

// New creates an itinerary in NotStarted. The route is not planned yet.
func New(id core.VehicleID, source, destination core.NodeID) *Itinerary {
	return &Itinerary{
		id:          id,
		source:      source,
		destination: destination,
		current:     source,
	}
}

func (it *Itinerary) ID() core.VehicleID       { return it.id }
func (it *Itinerary) Source() core.NodeID      { return it.source }
func (it *Itinerary) Destination() core.NodeID { return it.destination }
func (it *Itinerary) State() State             { return it.state }
func (it *Itinerary) Reason() FailureReason    { return it.reason }
func (it *Itinerary) Current() core.NodeID     { return it.current }
func (it *Itinerary) Progress() int            { return it.progress }
func (it *Itinerary) Total() int               { return it.total }
func (it *Itinerary) Done() bool               { return it.state.Terminal() }

// Next returns the node at the far end of Edge. It is unset before the
// journey starts and after it ends.
func (it *Itinerary) Next() (core.NodeID, bool) {
	if _, ok := it.Edge(); !ok {
		return 0, false
	}
	return it.next, true
}
func (it *Itinerary) Path() []core.NodeID      { return append([]core.NodeID(nil), it.path...) }
func (it *Itinerary) Planned() bool            { return len(it.path) > 0 }

// Edge returns the edge being traversed or queued for. It is false while
// the vehicle is not on or at the start of an edge.
func (it *Itinerary) Edge() (core.Edge, bool) {
	if it.state != EnRoute && it.state != WaitingAtIntersection {
		return core.Edge{}, false
	}
	return it.edge, true
}

// PlanRoute replaces the planned path with the current shortest path. It
// does not change the movement state.
func (it *Itinerary) PlanRoute(roads Roads) []core.NodeID {
	it.path = roads.ShortestPath(it.source, it.destination)
	return it.Path()
}

// Advance performs one tick of movement. It runs single transitions until
// one asks to stop; only starting the journey may ask to continue.
func (it *Itinerary) Advance(env Env) {
	for it.transition(env) {
	}
}

// transition applies one state-machine step and reports whether the same
// tick should keep processing.
func (it *Itinerary) transition(env Env) bool {
	switch it.state {
	case NotStarted:
		return it.begin(env)
	case EnRoute:
		it.travel(env)
	case WaitingAtIntersection:
		it.wait(env)
	}
	return false
}

func (it *Itinerary) begin(env Env) bool {
	if it.source == it.destination {
		it.state = Arrived
		return false
	}
	if len(it.path) < 2 {
		it.fail(env, NoRoute)
		return false
	}
	e, ok := env.Roads.EdgeBetween(it.path[0], it.path[1])
	if !ok {
		it.fail(env, MissingEdge)
		return false
	}
	it.current, it.next = it.path[0], it.path[1]
	it.depart(e)
	return env.StartFallThrough
}

func (it *Itinerary) travel(env Env) {
	it.progress++
	if it.progress < it.total {
		return
	}

	it.current = it.next
	it.progress, it.total = 0, 0
	if it.current == it.destination {
		it.state = Arrived
		return
	}

	next, ok := it.hopAfter(it.current)
	if !ok {
		it.fail(env, NoNextHop)
		return
	}
	it.next = next
	e, ok := env.Roads.EdgeBetween(it.current, next)
	if !ok {
		it.fail(env, MissingEdge)
		return
	}
	inter, ok := env.Intersections.Intersection(it.current)
	if !ok {
		it.fail(env, NoController)
		return
	}
	if err := inter.Enqueue(it.id, e.ID); err != nil {
		it.fail(env, UnknownApproach)
		return
	}
	it.edge = e
	it.state = WaitingAtIntersection
}

func (it *Itinerary) wait(env Env) {
	inter, ok := env.Intersections.Intersection(it.current)
	if !ok {
		it.fail(env, NoController)
		return
	}
	light, err := inter.Signal(it.edge.ID)
	if err != nil {
		it.fail(env, UnknownApproach)
		return
	}
	if light != core.Green {
		return
	}
	if front, ok := inter.Front(it.edge.ID); !ok || front != it.id {
		return
	}
	inter.Dequeue(it.edge.ID)
	it.depart(it.edge)
}

func (it *Itinerary) depart(e core.Edge) {
	it.edge = e
	it.total = e.TravelTicks()
	it.progress = 0
	it.state = EnRoute
}

// hopAfter returns the node that follows n in the planned path.
func (it *Itinerary) hopAfter(n core.NodeID) (core.NodeID, bool) {
	for i := 0; i+1 < len(it.path); i++ {
		if it.path[i] == n {
			return it.path[i+1], true
		}
	}
	return 0, false
}

func (it *Itinerary) fail(env Env, reason FailureReason) {
	it.state = Failed
	it.reason = reason
	if env.Logger != nil {
		env.Logger.Warn("vehicle routing failed",
			"vehicle", it.id,
			"node", it.current,
			"next", it.next,
			"reason", reason.String(),
			"tick", env.Tick,
		)
	}
}

// View is a read-only copy of an itinerary.
type View struct {
	ID          core.VehicleID `json:"id"`
	Source      core.NodeID    `json:"source"`
	Destination core.NodeID    `json:"destination"`
	State       State          `json:"state"`
	Reason      FailureReason  `json:"reason"`
	Current     core.NodeID    `json:"current"`
	Next        *core.NodeID   `json:"next,omitempty"` // nil unless on or queued for an edge
	Edge        *core.EdgeID   `json:"edge,omitempty"`
	Progress    int            `json:"progress"`
	Total       int            `json:"total"`
	Path        []core.NodeID  `json:"path"`
}

// Fraction returns how far along the current edge the vehicle is, 0..1.
func (v View) Fraction() float64 {
	if v.State != EnRoute || v.Total == 0 {
		return 0
	}
	return float64(v.Progress) / float64(v.Total)
}

// Snapshot copies the itinerary.
func (it *Itinerary) Snapshot() View {
	v := View{
		ID:          it.id,
		Source:      it.source,
		Destination: it.destination,
		State:       it.state,
		Reason:      it.reason,
		Current:     it.current,
		Progress:    it.progress,
		Total:       it.total,
		Path:        it.Path(),
	}
	if e, ok := it.Edge(); ok {
		id, next := e.ID, it.next
		v.Edge, v.Next = &id, &next
	}
	return v
}
