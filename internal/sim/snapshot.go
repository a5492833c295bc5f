package sim

import (
	"sort"

	"github.com/samber/lo"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/signal"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
)

// controllerSet resolves intersections for vehicles.
type controllerSet map[core.NodeID]*signal.Controller

func (s controllerSet) Intersection(node core.NodeID) (vehicle.Intersection, bool) {
	ctrl, ok := s[node]
	if !ok {
		return nil, false
	}
	return ctrl, true
}

// nodes returns the controlled node ids in ascending order.
func (s controllerSet) nodes() []core.NodeID {
	ids := lo.Keys(s)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot is a complete read-only copy of the simulation after a tick.
type Snapshot struct {
	Tick          int            `json:"tick"`
	Nodes         []core.Node    `json:"nodes"`
	Edges         []core.Edge    `json:"edges"`
	Vehicles      []vehicle.View `json:"vehicles"`
	Intersections []signal.View  `json:"intersections"`
}

// Vehicle returns the view of an active vehicle.
func (s *Snapshot) Vehicle(id core.VehicleID) (vehicle.View, bool) {
	i := sort.Search(len(s.Vehicles), func(i int) bool { return s.Vehicles[i].ID >= id })
	if i < len(s.Vehicles) && s.Vehicles[i].ID == id {
		return s.Vehicles[i], true
	}
	return vehicle.View{}, false
}

// Intersection returns the view of the controller at node.
func (s *Snapshot) Intersection(node core.NodeID) (signal.View, bool) {
	return lo.Find(s.Intersections, func(v signal.View) bool { return v.Node == node })
}

// CountByState tallies active vehicles per state.
func (s *Snapshot) CountByState() map[vehicle.State]int {
	groups := lo.GroupBy(s.Vehicles, func(v vehicle.View) vehicle.State { return v.State })
	return lo.MapValues(groups, func(vs []vehicle.View, _ vehicle.State) int { return len(vs) })
}

// Vehicle returns a view of the active vehicle with the given id.
func (c *Clock) Vehicle(id core.VehicleID) (vehicle.View, bool) {
	it, ok := c.vehicles[id]
	if !ok {
		return vehicle.View{}, false
	}
	return it.Snapshot(), true
}

// Controller returns a view of the controller at node.
func (c *Clock) Controller(node core.NodeID) (signal.View, bool) {
	ctrl, ok := c.controllers[node]
	if !ok {
		return signal.View{}, false
	}
	return ctrl.Snapshot(), true
}

// Vehicles returns views of all active vehicles in ascending id order.
func (c *Clock) Vehicles() []vehicle.View {
	return lo.Map(c.order, func(id core.VehicleID, _ int) vehicle.View {
		return c.vehicles[id].Snapshot()
	})
}

// Controllers returns views of all controllers in ascending node order.
func (c *Clock) Controllers() []signal.View {
	return lo.Map(c.controllers.nodes(), func(n core.NodeID, _ int) signal.View {
		return c.controllers[n].Snapshot()
	})
}

// Snapshot copies the full simulation state.
func (c *Clock) Snapshot() Snapshot {
	return Snapshot{
		Tick:          c.tick,
		Nodes:         c.net.Nodes(),
		Edges:         c.net.Edges(),
		Vehicles:      c.Vehicles(),
		Intersections: c.Controllers(),
	}
}
