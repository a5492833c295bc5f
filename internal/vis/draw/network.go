package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/signal"
	"github.com/elektrokombinacija/trafficsim/internal/vis/interact"
)

var (
	ColorRoad         = color.NRGBA{R: 80, G: 90, B: 100, A: 220}
	ColorNode         = color.NRGBA{R: 100, G: 120, B: 140, A: 255}
	ColorIntersection = color.NRGBA{R: 150, G: 160, B: 175, A: 255}
	ColorRed          = color.NRGBA{R: 230, G: 60, B: 50, A: 255}
	ColorYellow       = color.NRGBA{R: 240, G: 200, B: 40, A: 255}
	ColorGreen        = color.NRGBA{R: 60, G: 210, B: 90, A: 255}
)

// Pixel sizes at zoom 1.
const (
	roadWidth  = 3
	laneOffset = 4
	nodeRadius = 7
	lightSize  = 7
	lightInset = 16
)

// Positions looks up node positions.
type Positions func(core.NodeID) (orb.Point, bool)

// Lane returns the screen segment of a directed edge, shifted to its
// right so the two directions of a road do not overlap.
func Lane(camera *interact.Camera, from, to orb.Point) (a, b f32.Point) {
	a, b = screen(camera, from), screen(camera, to)
	d := b.Sub(a)
	length := float32(math.Hypot(float64(d.X), float64(d.Y)))
	if length < 0.1 {
		return a, b
	}
	off := f32.Pt(-d.Y/length*laneOffset, d.X/length*laneOffset)
	return a.Add(off), b.Add(off)
}

// Network draws every edge, then every node. Nodes with a controller are
// drawn brighter.
func Network(gtx layout.Context, nodes []core.Node, edges []core.Edge, controlled map[core.NodeID]bool, pos Positions, camera *interact.Camera) {
	width := scaled(roadWidth, camera)
	for _, e := range edges {
		from, ok1 := pos(e.From)
		to, ok2 := pos(e.To)
		if !ok1 || !ok2 {
			continue
		}
		a, b := Lane(camera, from, to)
		Line(gtx, a, b, width, ColorRoad)
	}
	r := scaled(nodeRadius, camera)
	for _, n := range nodes {
		col := ColorNode
		if controlled[n.ID] {
			col = ColorIntersection
		}
		Circle(gtx, screen(camera, n.Pos), r, col)
	}
}

// LightColor maps a signal state to its lamp color.
func LightColor(s core.LightState) color.NRGBA {
	switch s {
	case core.Green:
		return ColorGreen
	case core.Yellow:
		return ColorYellow
	default:
		return ColorRed
	}
}

// Signals draws a lamp at the start of each approach, just past the
// intersection, and a tick per queued vehicle behind it.
func Signals(gtx layout.Context, intersections []signal.View, edges map[core.EdgeID]core.Edge, pos Positions, camera *interact.Camera) {
	size := scaled(lightSize, camera)
	for _, ix := range intersections {
		for _, ap := range ix.Approaches {
			e, ok := edges[ap.Edge]
			if !ok {
				continue
			}
			from, ok1 := pos(e.From)
			to, ok2 := pos(e.To)
			if !ok1 || !ok2 {
				continue
			}
			a, b := Lane(camera, from, to)
			dir := unit(b.Sub(a))
			lamp := a.Add(dir.Mul(scaled(lightInset, camera)))
			Square(gtx, lamp, size, LightColor(ap.Light))

			// Queue marks sit on the node side of the lamp.
			for i := range ap.Queue {
				mark := lamp.Sub(dir.Mul(size * float32(i+1) * 0.6))
				Circle(gtx, mark, size/4, ColorYellow)
			}
		}
	}
}

func unit(d f32.Point) f32.Point {
	l := float32(math.Hypot(float64(d.X), float64(d.Y)))
	if l == 0 {
		return f32.Point{}
	}
	return d.Div(l)
}

// scaled grows marks with zoom, within limits so they stay visible.
func scaled(px float32, camera *interact.Camera) float32 {
	z := camera.Zoom
	switch {
	case z < 0.5:
		z = 0.5
	case z > 3:
		z = 3
	}
	return px * z
}
