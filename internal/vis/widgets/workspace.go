// Package widgets provides the Gio widgets of the viewer.
package widgets

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/signal"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
	"github.com/elektrokombinacija/trafficsim/internal/vis/draw"
	"github.com/elektrokombinacija/trafficsim/internal/vis/interact"
	"github.com/elektrokombinacija/trafficsim/internal/vis/state"
)

// pickRadius is the click tolerance in screen pixels.
const pickRadius = 12

// Workspace is the network view.
type Workspace struct {
	state  *state.State
	camera *interact.Camera

	// fit is set until the camera has been fitted to a real window size.
	fit bool
}

func NewWorkspace(st *state.State, camera *interact.Camera) *Workspace {
	return &Workspace{state: st, camera: camera, fit: true}
}

// Refit fits the network to the view on the next frame.
func (w *Workspace) Refit() { w.fit = true }

func (w *Workspace) Layout(gtx layout.Context) layout.Dimensions {
	size := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, size.X, size.Y)).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, color.NRGBA{R: 25, G: 28, B: 32, A: 255})

	if w.fit && size.X > 0 && size.Y > 0 {
		w.camera.Fit(w.state.Bounds(), float32(size.X), float32(size.Y), 40)
		w.fit = false
	}
	w.handlePointer(gtx)

	snap := &w.state.Snapshot
	draw.Grid(gtx, w.camera, 100, color.NRGBA{R: 38, G: 42, B: 47, A: 255})

	controlled := lo.SliceToMap(snap.Intersections, func(v signal.View) (core.NodeID, bool) { return v.Node, true })
	draw.Network(gtx, snap.Nodes, snap.Edges, controlled, w.state.NodePos, w.camera)

	edges := lo.SliceToMap(snap.Edges, func(e core.Edge) (core.EdgeID, core.Edge) { return e.ID, e })
	draw.Signals(gtx, snap.Intersections, edges, w.state.NodePos, w.camera)

	if v, ok := snap.Vehicle(w.state.Selected); ok {
		draw.Route(gtx, w.state.Route(v), w.camera)
	}
	phase := w.state.Playback.Phase()
	draw.Vehicles(gtx, snap.Vehicles, func(v vehicle.View) orb.Point {
		return w.state.Position(v, phase)
	}, w.state.Selected, w.camera)

	return layout.Dimensions{Size: size}
}

func (w *Workspace) handlePointer(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		w.camera.HandleEvent(pe)
		if pe.Kind == pointer.Press && pe.Buttons.Contain(pointer.ButtonPrimary) {
			p := w.camera.ScreenToWorld(pe.Position.X, pe.Position.Y)
			w.state.Select(p, float64(pickRadius/w.camera.Zoom))
		}
	}
}
