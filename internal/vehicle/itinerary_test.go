package vehicle

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/network"
	"github.com/elektrokombinacija/trafficsim/internal/signal"
)

type controllers map[core.NodeID]*signal.Controller

func (c controllers) Intersection(n core.NodeID) (Intersection, bool) {
	ctrl, ok := c[n]
	if !ok {
		return nil, false
	}
	return ctrl, true
}

// line builds 1 -(3)-> 2 -(4)-> 3 with a controller at node 2.
func line(t *testing.T) (*network.Network, controllers) {
	t.Helper()
	net := network.New(network.DefaultOptions())
	for i := 1; i <= 3; i++ {
		net.AddNode(core.NodeID(i), orb.Point{})
	}
	net.AddEdge(12, 1, 2, 3)
	net.AddEdge(23, 2, 3, 4)

	ctrl, err := signal.New(2, []core.EdgeID{23}, signal.DefaultTiming())
	if err != nil {
		t.Fatal(err)
	}
	return net, controllers{2: ctrl}
}

func TestStateStrings(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{NotStarted, "NOT_STARTED"},
		{EnRoute, "EN_ROUTE"},
		{WaitingAtIntersection, "WAITING_AT_INTERSECTION"},
		{Arrived, "ARRIVED"},
		{Failed, "FAILED"},
		{State(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
	if !Arrived.Terminal() || !Failed.Terminal() || EnRoute.Terminal() {
		t.Error("Terminal() mismatch")
	}
}

func TestPlanRouteDoesNotChangeState(t *testing.T) {
	net, _ := line(t)
	it := New(1, 1, 3)
	path := it.PlanRoute(net)
	if len(path) != 3 || path[0] != 1 || path[2] != 3 {
		t.Fatalf("PlanRoute = %v", path)
	}
	if it.State() != NotStarted {
		t.Errorf("state after planning = %v", it.State())
	}

	// Replanning overwrites the previous plan.
	net.AddEdge(13, 1, 3, 2)
	if path := it.PlanRoute(net); len(path) != 2 {
		t.Errorf("replanned path = %v, want direct hop", path)
	}
}

func TestSourceEqualsDestination(t *testing.T) {
	net, ctrls := line(t)
	it := New(1, 2, 2)
	it.PlanRoute(net)
	it.Advance(Env{Roads: net, Intersections: ctrls, StartFallThrough: true})
	if it.State() != Arrived {
		t.Errorf("state = %v, want ARRIVED", it.State())
	}
}

// TestLineJourney drives a vehicle by hand the way the clock does: phases
// first, then movement.
func TestLineJourney(t *testing.T) {
	tests := []struct {
		name        string
		fallThrough bool
		waitAt      int
		departAt    int
		arriveAt    int
	}{
		{"fall through", true, 3, 4, 8},
		{"no fall through", false, 4, 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, ctrls := line(t)
			it := New(1, 1, 3)
			it.PlanRoute(net)
			env := Env{Roads: net, Intersections: ctrls, StartFallThrough: tt.fallThrough}

			for tick := 1; tick <= 12; tick++ {
				env.Tick = tick
				ctrls[2].AdvancePhase()
				before := it.State()
				it.Advance(env)

				switch {
				case tick == tt.waitAt && it.State() != WaitingAtIntersection:
					t.Fatalf("tick %d: state %v, want WAITING", tick, it.State())
				case tick == tt.departAt:
					if before != WaitingAtIntersection || it.State() != EnRoute {
						t.Fatalf("tick %d: %v -> %v, want departure", tick, before, it.State())
					}
					if it.Progress() != 0 || it.Total() != 4 {
						t.Errorf("tick %d: progress %d/%d, want 0/4", tick, it.Progress(), it.Total())
					}
				case tick == tt.arriveAt && it.State() != Arrived:
					t.Fatalf("tick %d: state %v, want ARRIVED", tick, it.State())
				case tick < tt.arriveAt && it.Done():
					t.Fatalf("tick %d: arrived early", tick)
				}
			}
			if it.Current() != 3 || it.Reason() != NoFailure {
				t.Errorf("end state current=%d reason=%v", it.Current(), it.Reason())
			}
		})
	}
}

func TestFallThroughConsumesFirstTick(t *testing.T) {
	net, ctrls := line(t)
	it := New(1, 1, 3)
	it.PlanRoute(net)
	it.Advance(Env{Roads: net, Intersections: ctrls, StartFallThrough: true})
	if it.State() != EnRoute || it.Progress() != 1 || it.Total() != 3 {
		t.Errorf("after first advance: %v %d/%d", it.State(), it.Progress(), it.Total())
	}

	it2 := New(2, 1, 3)
	it2.PlanRoute(net)
	it2.Advance(Env{Roads: net, Intersections: ctrls})
	if it2.State() != EnRoute || it2.Progress() != 0 {
		t.Errorf("without fall-through: %v %d", it2.State(), it2.Progress())
	}
}

func TestWaitsOnRed(t *testing.T) {
	net, _ := line(t)
	ctrl, _ := signal.New(2, []core.EdgeID{99, 23}, signal.DefaultTiming())
	ctrls := controllers{2: ctrl}
	ctrl.AdvancePhase() // 99 green, 23 red

	it := New(1, 1, 3)
	it.PlanRoute(net)
	env := Env{Roads: net, Intersections: ctrls, StartFallThrough: true}
	for i := 0; i < 3; i++ {
		it.Advance(env)
	}
	if it.State() != WaitingAtIntersection {
		t.Fatalf("state = %v", it.State())
	}
	for i := 0; i < 5; i++ {
		it.Advance(env)
	}
	if it.State() != WaitingAtIntersection {
		t.Errorf("vehicle left on RED: %v", it.State())
	}
	if q, _ := ctrl.Queue(23); len(q) != 1 || q[0] != 1 {
		t.Errorf("queue = %v", q)
	}
}

func TestFIFOAdmission(t *testing.T) {
	net, ctrls := line(t)
	ctrl := ctrls[2]
	env := Env{Roads: net, Intersections: ctrls, StartFallThrough: true}

	x := New(1, 1, 3)
	y := New(2, 1, 3)
	x.PlanRoute(net)
	y.PlanRoute(net)

	// Both reach node 2 while the approach is still RED.
	for i := 0; i < 3; i++ {
		x.Advance(env)
		y.Advance(env)
	}
	if x.State() != WaitingAtIntersection || y.State() != WaitingAtIntersection {
		t.Fatalf("states = %v, %v", x.State(), y.State())
	}

	ctrl.AdvancePhase() // GREEN

	// y steps first but is not at the front.
	y.Advance(env)
	if y.State() != WaitingAtIntersection {
		t.Error("y left ahead of x")
	}
	x.Advance(env)
	if x.State() != EnRoute {
		t.Fatalf("x should be admitted, state %v", x.State())
	}
	y.Advance(env)
	if y.State() != EnRoute {
		t.Errorf("y should follow x, state %v", y.State())
	}
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) (*network.Network, controllers)
		from  core.NodeID
		to    core.NodeID
		want  FailureReason
	}{
		{
			name: "no route",
			build: func(t *testing.T) (*network.Network, controllers) {
				net, c := line(t)
				net.AddNode(4, orb.Point{})
				return net, c
			},
			from: 1, to: 4, want: NoRoute,
		},
		{
			name: "no controller",
			build: func(t *testing.T) (*network.Network, controllers) {
				net, _ := line(t)
				return net, controllers{}
			},
			from: 1, to: 3, want: NoController,
		},
		{
			name: "unknown approach",
			build: func(t *testing.T) (*network.Network, controllers) {
				net, _ := line(t)
				ctrl, _ := signal.New(2, []core.EdgeID{77}, signal.DefaultTiming())
				return net, controllers{2: ctrl}
			},
			from: 1, to: 3, want: UnknownApproach,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, ctrls := tt.build(t)
			it := New(1, tt.from, tt.to)
			it.PlanRoute(net)
			env := Env{Roads: net, Intersections: ctrls, StartFallThrough: true}
			for i := 0; i < 10 && !it.Done(); i++ {
				it.Advance(env)
			}
			if it.State() != Failed || it.Reason() != tt.want {
				t.Errorf("state %v reason %v, want FAILED %v", it.State(), it.Reason(), tt.want)
			}
		})
	}
}

// stubRoads plans a path the network cannot serve.
type stubRoads struct {
	path  []core.NodeID
	edges map[[2]core.NodeID]core.Edge
}

func (s stubRoads) ShortestPath(_, _ core.NodeID) []core.NodeID { return s.path }
func (s stubRoads) EdgeBetween(a, b core.NodeID) (core.Edge, bool) {
	e, ok := s.edges[[2]core.NodeID{a, b}]
	return e, ok
}

func TestMissingEdgeAndNextHop(t *testing.T) {
	t.Run("missing first edge", func(t *testing.T) {
		it := New(1, 1, 3)
		it.PlanRoute(stubRoads{path: []core.NodeID{1, 2, 3}})
		it.Advance(Env{Roads: stubRoads{}, Intersections: controllers{}})
		if it.Reason() != MissingEdge {
			t.Errorf("reason = %v", it.Reason())
		}
	})

	t.Run("missing later edge", func(t *testing.T) {
		roads := stubRoads{
			path:  []core.NodeID{1, 2, 3},
			edges: map[[2]core.NodeID]core.Edge{{1, 2}: {ID: 12, From: 1, To: 2, Weight: 1}},
		}
		it := New(1, 1, 3)
		it.PlanRoute(roads)
		it.Advance(Env{Roads: roads, Intersections: controllers{}, StartFallThrough: true})
		if it.State() != Failed || it.Reason() != MissingEdge {
			t.Errorf("state %v reason %v", it.State(), it.Reason())
		}
	})

	t.Run("no next hop", func(t *testing.T) {
		// The path ends short of the destination.
		roads := stubRoads{
			path:  []core.NodeID{1, 2},
			edges: map[[2]core.NodeID]core.Edge{{1, 2}: {ID: 12, From: 1, To: 2, Weight: 1}},
		}
		it := New(1, 1, 3)
		it.PlanRoute(roads)
		it.Advance(Env{Roads: roads, Intersections: controllers{}, StartFallThrough: true})
		if it.State() != Failed || it.Reason() != NoNextHop {
			t.Errorf("state %v reason %v", it.State(), it.Reason())
		}
	})
}

func TestTerminalIsSticky(t *testing.T) {
	net, ctrls := line(t)
	it := New(1, 3, 1) // unreachable against the edge direction
	it.PlanRoute(net)
	env := Env{Roads: net, Intersections: ctrls, StartFallThrough: true}
	it.Advance(env)
	if it.State() != Failed {
		t.Fatalf("state = %v", it.State())
	}
	it.Advance(env)
	if it.State() != Failed || it.Reason() != NoRoute {
		t.Errorf("terminal state changed: %v %v", it.State(), it.Reason())
	}
}

func TestSnapshot(t *testing.T) {
	net, ctrls := line(t)
	it := New(9, 1, 3)
	it.PlanRoute(net)
	it.Advance(Env{Roads: net, Intersections: ctrls, StartFallThrough: true})

	v := it.Snapshot()
	if v.ID != 9 || v.State != EnRoute || v.Current != 1 {
		t.Errorf("snapshot = %+v", v)
	}
	if v.Edge == nil || *v.Edge != 12 || v.Next == nil || *v.Next != 2 {
		t.Errorf("snapshot edge/next = %v/%v, want 12/2", v.Edge, v.Next)
	}
	if f := v.Fraction(); f <= 0.33 || f >= 0.34 {
		t.Errorf("Fraction = %v, want 1/3", f)
	}
}

// hop builds 1 -(2)-> 2 on edge id 0.
func hop(t *testing.T) *network.Network {
	t.Helper()
	net := network.New(network.DefaultOptions())
	net.AddNode(1, orb.Point{})
	net.AddNode(2, orb.Point{})
	if !net.AddEdge(0, 1, 2, 2) {
		t.Fatal("AddEdge(0) rejected")
	}
	return net
}

func TestNextOnlyWhileTravelling(t *testing.T) {
	net := hop(t)
	env := Env{Roads: net, Intersections: controllers{}, StartFallThrough: true}
	it := New(1, 1, 2)
	it.PlanRoute(net)

	tests := []struct {
		name     string
		state    State
		wantNext bool
	}{
		{"before start", NotStarted, false},
		{"on edge", EnRoute, true},
		{"arrived", Arrived, false},
	}
	for i, tt := range tests {
		if i > 0 {
			it.Advance(env)
		}
		if it.State() != tt.state {
			t.Fatalf("%s: state = %v, want %v", tt.name, it.State(), tt.state)
		}
		next, ok := it.Next()
		if ok != tt.wantNext || (ok && next != 2) {
			t.Errorf("%s: Next() = %v, %v", tt.name, next, ok)
		}
		if v := it.Snapshot(); (v.Next != nil) != tt.wantNext {
			t.Errorf("%s: snapshot next = %v", tt.name, v.Next)
		}
	}
}

func TestViewJSON(t *testing.T) {
	net := hop(t)
	it := New(1, 1, 2)
	it.PlanRoute(net)

	tests := []struct {
		name    string
		advance bool
		want    []string
		absent  []string
	}{
		{"not started", false, []string{`"reason":"none"`}, []string{`"edge"`, `"next"`}},
		{"on edge zero", true, []string{`"edge":0`, `"next":2`, `"reason":"none"`}, nil},
	}
	for _, tt := range tests {
		if tt.advance {
			it.Advance(Env{Roads: net, Intersections: controllers{}, StartFallThrough: true})
		}
		data, err := json.Marshal(it.Snapshot())
		if err != nil {
			t.Fatal(err)
		}
		for _, w := range tt.want {
			if !strings.Contains(string(data), w) {
				t.Errorf("%s: %s missing %s", tt.name, data, w)
			}
		}
		for _, a := range tt.absent {
			if strings.Contains(string(data), a) {
				t.Errorf("%s: %s has %s", tt.name, data, a)
			}
		}
	}
}
