// Package signal implements fixed-cycle intersection control.
//
// A Controller owns the approaches (outgoing edges) of one node. Exactly
// one approach at a time is GREEN or YELLOW; the rest are RED. Each
// approach has a FIFO queue of vehicles waiting to be admitted onto it.
package signal

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

var (
	// ErrUnknownApproach is returned for an edge that is not an approach of
	// the controller.
	ErrUnknownApproach = errors.New("unknown approach")

	// ErrDuplicateApproach is returned when an edge is listed twice.
	ErrDuplicateApproach = errors.New("duplicate approach")

	// ErrInvalidTiming is returned when a phase lasts less than one tick.
	ErrInvalidTiming = errors.New("invalid signal timing")
)

// Timing holds phase durations in ticks.
type Timing struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
}

// DefaultTiming returns 15 ticks of green followed by 3 of yellow.
func DefaultTiming() Timing {
	return Timing{Green: 15, Yellow: 3}
}

// Cycle is the time one approach holds the right of way.
func (t Timing) Cycle() int { return t.Green + t.Yellow }

// Validate checks that both durations are at least one tick.
func (t Timing) Validate() error {
	if t.Green < 1 || t.Yellow < 1 {
		return fmt.Errorf("%w: green=%d yellow=%d", ErrInvalidTiming, t.Green, t.Yellow)
	}
	return nil
}

// Controller is the signal and queue state of one intersection.
type Controller struct {
	node   core.NodeID
	timing Timing

	approaches []core.EdgeID
	index      map[core.EdgeID]int
	lights     []core.LightState
	queues     [][]core.VehicleID

	active int // -1 until the first phase is assigned
	ticks  int
}

// New creates a controller for node with the given approaches, all RED.
func New(node core.NodeID, approaches []core.EdgeID, timing Timing) (*Controller, error) {
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		node:       node,
		timing:     timing,
		approaches: make([]core.EdgeID, 0, len(approaches)),
		index:      make(map[core.EdgeID]int, len(approaches)),
		active:     -1,
	}
	for _, a := range approaches {
		if _, dup := c.index[a]; dup {
			return nil, fmt.Errorf("%w: edge %d at node %d", ErrDuplicateApproach, a, node)
		}
		c.index[a] = len(c.approaches)
		c.approaches = append(c.approaches, a)
	}
	c.lights = make([]core.LightState, len(c.approaches))
	c.queues = make([][]core.VehicleID, len(c.approaches))
	return c, nil
}

func (c *Controller) Node() core.NodeID { return c.node }
func (c *Controller) Timing() Timing    { return c.timing }

// Approaches returns the approach list in cycle order.
func (c *Controller) Approaches() []core.EdgeID {
	return append([]core.EdgeID(nil), c.approaches...)
}

// AdvancePhase moves the cycle forward by one tick. The first call assigns
// GREEN to the first approach without counting a tick. A controller with
// no approaches ignores the call.
func (c *Controller) AdvancePhase() {
	n := len(c.approaches)
	if n == 0 {
		return
	}
	if c.active < 0 {
		c.active = 0
		c.lights[0] = core.Green
		c.ticks = 0
		return
	}

	c.ticks++
	switch c.lights[c.active] {
	case core.Green:
		if c.ticks >= c.timing.Green {
			c.lights[c.active] = core.Yellow
			c.ticks = 0
		}
	case core.Yellow:
		if c.ticks >= c.timing.Yellow {
			c.lights[c.active] = core.Red
			c.active = (c.active + 1) % n
			c.lights[c.active] = core.Green
			c.ticks = 0
		}
	}
}

// ActiveApproach returns the approach currently (or last) holding the
// right of way. It is false before the first phase.
func (c *Controller) ActiveApproach() (core.EdgeID, bool) {
	if c.active < 0 {
		return 0, false
	}
	return c.approaches[c.active], true
}

// Phase returns the light of the active approach, RED before the first
// phase.
func (c *Controller) Phase() core.LightState {
	if c.active < 0 {
		return core.Red
	}
	return c.lights[c.active]
}

// TicksInPhase returns how long the current phase has persisted.
func (c *Controller) TicksInPhase() int { return c.ticks }

func (c *Controller) lookup(approach core.EdgeID) (int, error) {
	i, ok := c.index[approach]
	if !ok {
		return 0, fmt.Errorf("%w: edge %d at node %d", ErrUnknownApproach, approach, c.node)
	}
	return i, nil
}

// Signal returns the light shown to approach.
func (c *Controller) Signal(approach core.EdgeID) (core.LightState, error) {
	i, err := c.lookup(approach)
	if err != nil {
		return core.Red, err
	}
	return c.lights[i], nil
}

// Queue returns a copy of the vehicles waiting on approach, front first.
func (c *Controller) Queue(approach core.EdgeID) ([]core.VehicleID, error) {
	i, err := c.lookup(approach)
	if err != nil {
		return nil, err
	}
	return append([]core.VehicleID(nil), c.queues[i]...), nil
}

// QueueLen returns the queue length for approach, zero if unknown.
func (c *Controller) QueueLen(approach core.EdgeID) int {
	i, ok := c.index[approach]
	if !ok {
		return 0
	}
	return len(c.queues[i])
}

// Enqueue appends v to the queue of approach.
func (c *Controller) Enqueue(v core.VehicleID, approach core.EdgeID) error {
	i, err := c.lookup(approach)
	if err != nil {
		return err
	}
	c.queues[i] = append(c.queues[i], v)
	return nil
}

// Front returns the vehicle at the head of the queue without removing it.
func (c *Controller) Front(approach core.EdgeID) (core.VehicleID, bool) {
	i, ok := c.index[approach]
	if !ok || len(c.queues[i]) == 0 {
		return 0, false
	}
	return c.queues[i][0], true
}

// Dequeue removes and returns the head of the queue.
func (c *Controller) Dequeue(approach core.EdgeID) (core.VehicleID, bool) {
	i, ok := c.index[approach]
	if !ok || len(c.queues[i]) == 0 {
		return 0, false
	}
	v := c.queues[i][0]
	c.queues[i] = c.queues[i][1:]
	return v, true
}

// Remove drops v from the queue of approach wherever it stands. It is
// used when a queued vehicle is discarded before admission.
func (c *Controller) Remove(v core.VehicleID, approach core.EdgeID) bool {
	i, ok := c.index[approach]
	if !ok {
		return false
	}
	for j, w := range c.queues[i] {
		if w == v {
			c.queues[i] = append(c.queues[i][:j:j], c.queues[i][j+1:]...)
			return true
		}
	}
	return false
}

// ApproachView is the read-only state of one approach.
type ApproachView struct {
	Edge  core.EdgeID      `json:"edge"`
	Light core.LightState  `json:"light"`
	Queue []core.VehicleID `json:"queue"`
}

// View is a read-only copy of a controller.
type View struct {
	Node         core.NodeID    `json:"node"`
	Timing       Timing         `json:"timing"`
	Active       *core.EdgeID   `json:"active,omitempty"`
	TicksInPhase int            `json:"ticks_in_phase"`
	Approaches   []ApproachView `json:"approaches"`
}

// QueueLen returns the queue length of approach e in the view.
func (v View) QueueLen(e core.EdgeID) int {
	for _, a := range v.Approaches {
		if a.Edge == e {
			return len(a.Queue)
		}
	}
	return 0
}

// TotalQueued returns the number of vehicles waiting on all approaches.
func (v View) TotalQueued() int {
	n := 0
	for _, a := range v.Approaches {
		n += len(a.Queue)
	}
	return n
}

// Snapshot copies the controller state.
func (c *Controller) Snapshot() View {
	v := View{
		Node:         c.node,
		Timing:       c.timing,
		TicksInPhase: c.ticks,
		Approaches:   make([]ApproachView, len(c.approaches)),
	}
	if a, ok := c.ActiveApproach(); ok {
		v.Active = &a
	}
	for i, a := range c.approaches {
		v.Approaches[i] = ApproachView{
			Edge:  a,
			Light: c.lights[i],
			Queue: append([]core.VehicleID{}, c.queues[i]...),
		}
	}
	return v
}
