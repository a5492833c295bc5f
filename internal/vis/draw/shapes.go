// Package draw renders the network, signals and vehicles.
package draw

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/vis/interact"
)

// Line fills a quad of the given screen width between two screen points.
func Line(gtx layout.Context, a, b f32.Point, width float32, col color.NRGBA) {
	d := b.Sub(a)
	length := float32(math.Hypot(float64(d.X), float64(d.Y)))
	if length < 0.1 {
		return
	}
	n := f32.Pt(-d.Y/length*width/2, d.X/length*width/2)

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(a.Add(n))
	path.LineTo(b.Add(n))
	path.LineTo(b.Sub(n))
	path.LineTo(a.Sub(n))
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

// Circle fills a circle approximated by segments.
func Circle(gtx layout.Context, c f32.Point, r float32, col color.NRGBA) {
	const segments = 16
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(c.X+r, c.Y))
	for i := 1; i <= segments; i++ {
		a := float64(i) * 2 * math.Pi / segments
		path.LineTo(f32.Pt(c.X+r*float32(math.Cos(a)), c.Y+r*float32(math.Sin(a))))
	}
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

// Square fills an axis-aligned square centered on c.
func Square(gtx layout.Context, c f32.Point, size float32, col color.NRGBA) {
	h := size / 2
	r := image.Rect(int(c.X-h), int(c.Y-h), int(c.X+h), int(c.Y+h))
	paint.FillShape(gtx.Ops, col, clip.Rect(r).Op())
}

// Polyline strokes consecutive world points.
func Polyline(gtx layout.Context, pts []orb.Point, camera *interact.Camera, width float32, col color.NRGBA) {
	for i := 0; i+1 < len(pts); i++ {
		Line(gtx, screen(camera, pts[i]), screen(camera, pts[i+1]), width, col)
	}
}

// Grid draws background lines every step world units.
func Grid(gtx layout.Context, camera *interact.Camera, step float64, col color.NRGBA) {
	size := gtx.Constraints.Max
	lo := camera.ScreenToWorld(0, 0)
	hi := camera.ScreenToWorld(float32(size.X), float32(size.Y))
	if step*float64(camera.Zoom) < 4 {
		return
	}

	for x := math.Floor(lo[0]/step) * step; x <= hi[0]; x += step {
		sx, _ := camera.WorldToScreen(orb.Point{x, 0})
		paint.FillShape(gtx.Ops, col, clip.Rect(image.Rect(int(sx), 0, int(sx)+1, size.Y)).Op())
	}
	for y := math.Floor(lo[1]/step) * step; y <= hi[1]; y += step {
		_, sy := camera.WorldToScreen(orb.Point{0, y})
		paint.FillShape(gtx.Ops, col, clip.Rect(image.Rect(0, int(sy), size.X, int(sy)+1)).Op())
	}
}

func screen(camera *interact.Camera, p orb.Point) f32.Point {
	x, y := camera.WorldToScreen(p)
	return f32.Pt(x, y)
}
