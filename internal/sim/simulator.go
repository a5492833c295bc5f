// Package sim provides the simulation clock that drives a traffic run.
//
// Each call to Advance is one tick, applied in a fixed order:
//   - every signal controller advances its phase
//   - the spawner may generate a vehicle
//   - every active vehicle takes one movement step, in ascending id order
//   - vehicles that arrived or failed are removed
//
// A Clock is single-writer. Callers that read state from other goroutines
// must serialise access themselves (see internal/server).
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/network"
	"github.com/elektrokombinacija/trafficsim/internal/signal"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
)

var (
	ErrUnknownNode         = errors.New("unknown node")
	ErrDuplicateController = errors.New("node already controlled")
	ErrNotApproach         = errors.New("edge is not an outgoing edge of the node")
)

// Rand is the source of randomness used for spawning. *rand.Rand
// satisfies it.
type Rand interface {
	Intn(n int) int
}

// Config configures a simulation run.
type Config struct {
	// Spawn a vehicle every SpawnInterval ticks. Zero or less disables
	// spawning, as does SpawnEnabled=false.
	SpawnInterval int
	SpawnEnabled  bool

	// Random seed for reproducibility. Ignored when Rand is set.
	Seed int64
	Rand Rand

	// StartFallThrough lets a vehicle starting its journey also make its
	// first tick of progress. With it off every arrival lands one tick
	// later: a 1 -(3)-> 2 -(4)-> 3 trip queues at tick 4, departs node 2
	// at tick 5 and arrives at tick 9 instead of 3, 4 and 8.
	StartFallThrough bool

	// Timing for controllers registered through AddController and
	// ControlAllNodes.
	Timing signal.Timing

	// Logger receives routing failures (Warn) and spawn/despawn events
	// (Debug). Nil discards.
	Logger *slog.Logger
}

// DefaultConfig returns default simulation configuration
func DefaultConfig() Config {
	return Config{
		SpawnInterval:    20,
		SpawnEnabled:     true,
		Seed:             42,
		StartFallThrough: true,
		Timing:           signal.DefaultTiming(),
	}
}

// Clock owns the road network, the intersection controllers and the
// active vehicles.
type Clock struct {
	config Config
	log    *slog.Logger
	rng    Rand

	net         *network.Network
	controllers controllerSet

	vehicles map[core.VehicleID]*vehicle.Itinerary
	order    []core.VehicleID // active ids, ascending
	born     map[core.VehicleID]int

	tick      int
	lastID    core.VehicleID
	countdown int

	metrics Metrics
}

// New creates a clock over net. The network must be fully built; the
// clock never mutates it.
func New(net *network.Network, config Config) *Clock {
	c := &Clock{
		config:      config,
		log:         config.Logger,
		rng:         config.Rand,
		net:         net,
		controllers: make(controllerSet),
		vehicles:    make(map[core.VehicleID]*vehicle.Itinerary),
		born:        make(map[core.VehicleID]int),
		countdown:   config.SpawnInterval,
		metrics:     newMetrics(),
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(config.Seed))
	}
	return c
}

func (c *Clock) Config() Config            { return c.config }
func (c *Clock) Network() *network.Network { return c.net }
func (c *Clock) Tick() int                 { return c.tick }
func (c *Clock) ActiveVehicles() int       { return len(c.order) }

// AddController registers a controller at node using the configured
// timing. Every approach must be an outgoing edge of node.
func (c *Clock) AddController(node core.NodeID, approaches []core.EdgeID) error {
	ctrl, err := signal.New(node, approaches, c.config.Timing)
	if err != nil {
		return err
	}
	return c.AddSignal(ctrl)
}

// AddSignal registers a ready-made controller.
func (c *Clock) AddSignal(ctrl *signal.Controller) error {
	node := ctrl.Node()
	if !c.net.HasNode(node) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	if _, ok := c.controllers[node]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateController, node)
	}
	for _, a := range ctrl.Approaches() {
		e, ok := c.net.Edge(a)
		if !ok || e.From != node {
			return fmt.Errorf("%w: edge %d at node %d", ErrNotApproach, a, node)
		}
	}
	c.controllers[node] = ctrl
	return nil
}

// ControlAllNodes registers a controller at every node that has none,
// with the node's outgoing edges as approaches in insertion order. It
// returns the number of controllers added.
func (c *Clock) ControlAllNodes() (int, error) {
	added := 0
	for _, node := range c.net.NodeIDs() {
		if _, ok := c.controllers[node]; ok {
			continue
		}
		var approaches []core.EdgeID
		for _, e := range c.net.EdgesFrom(node) {
			approaches = append(approaches, e.ID)
		}
		if err := c.AddController(node, approaches); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// AddVehicle registers a pre-built itinerary. It plans the route if the
// itinerary has none and fails if the id is already active. Later spawns
// get ids above every id added this way.
func (c *Clock) AddVehicle(it *vehicle.Itinerary) bool {
	id := it.ID()
	if _, ok := c.vehicles[id]; ok {
		return false
	}
	if !it.Planned() {
		it.PlanRoute(c.net)
	}
	c.admit(it)
	c.metrics.Added++
	return true
}

// NewVehicle creates and registers a vehicle with the next free id. It
// fails if either node is missing.
func (c *Clock) NewVehicle(source, destination core.NodeID) (core.VehicleID, bool) {
	if !c.net.HasNode(source) || !c.net.HasNode(destination) {
		return 0, false
	}
	it := vehicle.New(c.lastID+1, source, destination)
	it.PlanRoute(c.net)
	c.admit(it)
	c.metrics.Added++
	return it.ID(), true
}

// RemoveVehicle discards an active vehicle, taking it out of any queue
// it is waiting in. It does not count as an arrival.
func (c *Clock) RemoveVehicle(id core.VehicleID) bool {
	it, ok := c.vehicles[id]
	if !ok {
		return false
	}
	if it.State() == vehicle.WaitingAtIntersection {
		if ctrl, ok := c.controllers[it.Current()]; ok {
			if e, ok := it.Edge(); ok {
				ctrl.Remove(id, e.ID)
			}
		}
	}
	c.drop(id)
	return true
}

func (c *Clock) admit(it *vehicle.Itinerary) {
	id := it.ID()
	c.vehicles[id] = it
	c.born[id] = c.tick
	i, _ := slices.BinarySearch(c.order, id)
	c.order = slices.Insert(c.order, i, id)
	if id > c.lastID {
		c.lastID = id
	}
}

func (c *Clock) drop(id core.VehicleID) {
	delete(c.vehicles, id)
	delete(c.born, id)
	if i, ok := slices.BinarySearch(c.order, id); ok {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

// Advance runs one tick.
func (c *Clock) Advance() {
	c.tick++

	for _, node := range c.controllers.nodes() {
		c.controllers[node].AdvancePhase()
	}

	c.spawn()

	env := vehicle.Env{
		Roads:            c.net,
		Intersections:    c.controllers,
		StartFallThrough: c.config.StartFallThrough,
		Tick:             c.tick,
		Logger:           c.log,
	}
	var done []core.VehicleID
	for _, id := range c.order {
		it := c.vehicles[id]
		it.Advance(env)
		if it.Done() {
			done = append(done, id)
		}
	}

	for _, id := range done {
		c.despawn(id)
	}

	c.observe()
}

// spawn counts down and, when due, tries to generate one vehicle between
// two distinct random nodes. Candidates without a route are discarded
// without consuming an id.
func (c *Clock) spawn() {
	if !c.config.SpawnEnabled || c.config.SpawnInterval <= 0 {
		return
	}
	c.countdown--
	if c.countdown > 0 {
		return
	}
	c.countdown = c.config.SpawnInterval

	nodes := c.net.NodeIDs()
	if len(nodes) < 2 {
		return
	}
	c.metrics.SpawnAttempts++

	i := c.rng.Intn(len(nodes))
	j := c.rng.Intn(len(nodes) - 1)
	if j >= i {
		j++
	}

	it := vehicle.New(c.lastID+1, nodes[i], nodes[j])
	if len(it.PlanRoute(c.net)) == 0 {
		c.metrics.SpawnRejected++
		c.log.Debug("spawn rejected: no route", "source", nodes[i], "destination", nodes[j], "tick", c.tick)
		return
	}
	c.admit(it)
	c.metrics.Spawned++
	c.log.Debug("vehicle spawned", "vehicle", it.ID(), "source", nodes[i], "destination", nodes[j], "tick", c.tick)
}

func (c *Clock) despawn(id core.VehicleID) {
	it := c.vehicles[id]
	switch it.State() {
	case vehicle.Arrived:
		trip := c.tick - c.born[id]
		c.metrics.Arrived++
		c.metrics.TotalTripTicks += trip
		c.metrics.MeanTripTicks = float64(c.metrics.TotalTripTicks) / float64(c.metrics.Arrived)
		c.log.Debug("vehicle arrived", "vehicle", id, "node", it.Current(), "trip_ticks", trip, "tick", c.tick)
	case vehicle.Failed:
		c.metrics.Failed++
		c.metrics.Failures[it.Reason().String()]++
	}
	c.drop(id)
}

func (c *Clock) observe() {
	c.metrics.Ticks = c.tick
	c.metrics.Active = len(c.order)
	if c.metrics.Active > c.metrics.PeakActive {
		c.metrics.PeakActive = c.metrics.Active
	}
	for _, ctrl := range c.controllers {
		for _, a := range ctrl.Approaches() {
			if n := ctrl.QueueLen(a); n > c.metrics.MaxQueue {
				c.metrics.MaxQueue = n
			}
		}
	}
}

// Run advances the clock by ticks, checking ctx between ticks.
func (c *Clock) Run(ctx context.Context, ticks int) (*Metrics, error) {
	if c.metrics.StartTime.IsZero() {
		c.metrics.StartTime = time.Now()
	}
	defer func() { c.metrics.EndTime = time.Now() }()

	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			m := c.Metrics()
			return &m, fmt.Errorf("stopped at tick %d: %w", c.tick, err)
		}
		c.Advance()
		if c.tick%100 == 0 {
			c.log.Debug("progress",
				"tick", c.tick,
				"active", len(c.order),
				"arrived", c.metrics.Arrived,
				"failed", c.metrics.Failed,
			)
		}
	}
	m := c.Metrics()
	m.EndTime = time.Now()
	return &m, nil
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string { return uuid.NewString() }
