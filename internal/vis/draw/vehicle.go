package draw

import (
	"image/color"

	"gioui.org/layout"
	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
	"github.com/elektrokombinacija/trafficsim/internal/vis/interact"
)

var (
	ColorEnRoute  = color.NRGBA{R: 100, G: 200, B: 255, A: 255}
	ColorWaiting  = color.NRGBA{R: 255, G: 150, B: 100, A: 255}
	ColorIdle     = color.NRGBA{R: 160, G: 160, B: 160, A: 255}
	ColorFailed   = color.NRGBA{R: 230, G: 60, B: 50, A: 255}
	ColorSelected = color.NRGBA{R: 255, G: 255, B: 100, A: 255}
	ColorRoute    = color.NRGBA{R: 255, G: 255, B: 100, A: 110}
)

const vehicleSize = 9

// VehicleColor picks a color by state.
func VehicleColor(s vehicle.State) color.NRGBA {
	switch s {
	case vehicle.EnRoute:
		return ColorEnRoute
	case vehicle.WaitingAtIntersection:
		return ColorWaiting
	case vehicle.Failed:
		return ColorFailed
	default:
		return ColorIdle
	}
}

// Vehicles draws each vehicle as a square at the position place gives it.
// The selected vehicle is drawn last so it sits on top.
func Vehicles(gtx layout.Context, views []vehicle.View, place func(vehicle.View) orb.Point, selected core.VehicleID, camera *interact.Camera) {
	size := scaled(vehicleSize, camera)
	var sel *vehicle.View
	for i := range views {
		v := &views[i]
		if v.ID == selected {
			sel = v
			continue
		}
		Square(gtx, screen(camera, place(*v)), size, VehicleColor(v.State))
	}
	if sel != nil {
		Square(gtx, screen(camera, place(*sel)), size*1.4, ColorSelected)
	}
}

// Route draws the remaining route of a vehicle.
func Route(gtx layout.Context, pts []orb.Point, camera *interact.Camera) {
	Polyline(gtx, pts, camera, scaled(roadWidth*2, camera), ColorRoute)
}
