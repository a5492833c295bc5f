package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
	"github.com/elektrokombinacija/trafficsim/internal/vis/state"
)

// Status is the bottom bar: tick, vehicle counts and the selected
// vehicle.
type Status struct {
	state *state.State
}

func NewStatus(st *state.State) *Status {
	return &Status{state: st}
}

func (s *Status) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	const height = 32
	rect := image.Rect(0, 0, gtx.Constraints.Max.X, height)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(rect).Op())

	label := func(text string, col color.NRGBA) layout.FlexChild {
		return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			l := material.Label(th, 12, text)
			l.Color = col
			return layout.Inset{Right: unit.Dp(18)}.Layout(gtx, l.Layout)
		})
	}
	plain := color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	dim := color.NRGBA{R: 150, G: 150, B: 150, A: 255}

	snap := &s.state.Snapshot
	m := s.state.Metrics
	counts := snap.CountByState()

	children := []layout.FlexChild{
		label(fmt.Sprintf("tick %d", snap.Tick), plain),
		label(fmt.Sprintf("%.1f t/s", s.state.Playback.TicksPerSecond), dim),
		label(fmt.Sprintf("en route %d", counts[vehicle.EnRoute]), plain),
		label(fmt.Sprintf("waiting %d", counts[vehicle.WaitingAtIntersection]), plain),
		label(fmt.Sprintf("arrived %d", m.Arrived), plain),
		label(fmt.Sprintf("failed %d", m.Failed), plain),
		label(fmt.Sprintf("mean trip %.1f", m.MeanTripTicks), dim),
		label(fmt.Sprintf("max queue %d", m.MaxQueue), dim),
	}
	if v, ok := snap.Vehicle(s.state.Selected); ok {
		children = append(children, label(
			fmt.Sprintf("vehicle %d: %d->%d %s at %d", v.ID, v.Source, v.Destination, v.State, v.Current),
			color.NRGBA{R: 255, G: 255, B: 100, A: 255},
		))
	}

	gtx.Constraints.Max.Y = height
	layout.Inset{Left: unit.Dp(12), Top: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal}.Layout(gtx, children...)
	})
	return layout.Dimensions{Size: image.Point{X: gtx.Constraints.Max.X, Y: height}}
}
