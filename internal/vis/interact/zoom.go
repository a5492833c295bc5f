// Package interact handles pan and zoom of the network view.
package interact

import (
	"gioui.org/io/pointer"
	"github.com/paulmach/orb"
)

const (
	minZoom = 0.05
	maxZoom = 20
)

// Camera maps world coordinates (network node positions) to screen
// pixels: screen = world*Zoom + Offset.
type Camera struct {
	OffsetX float32
	OffsetY float32
	Zoom    float32

	dragging bool
	lastX    float32
	lastY    float32
}

func NewCamera() *Camera {
	return &Camera{OffsetX: 40, OffsetY: 40, Zoom: 1}
}

// Reset restores the default view.
func (c *Camera) Reset() {
	c.OffsetX, c.OffsetY, c.Zoom = 40, 40, 1
}

// WorldToScreen converts a world point to screen pixels.
func (c *Camera) WorldToScreen(p orb.Point) (x, y float32) {
	return float32(p[0])*c.Zoom + c.OffsetX, float32(p[1])*c.Zoom + c.OffsetY
}

// ScreenToWorld converts screen pixels to a world point.
func (c *Camera) ScreenToWorld(x, y float32) orb.Point {
	return orb.Point{float64((x - c.OffsetX) / c.Zoom), float64((y - c.OffsetY) / c.Zoom)}
}

// HandleEvent pans on secondary or middle drag and zooms on scroll.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		c.dragging = ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary)
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Drag:
		if c.dragging {
			c.Pan(ev.Position.X-c.lastX, ev.Position.Y-c.lastY)
		}
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Release:
		c.dragging = false

	case pointer.Scroll:
		switch {
		case ev.Scroll.Y > 0:
			c.ZoomBy(1/1.1, ev.Position.X, ev.Position.Y)
		case ev.Scroll.Y < 0:
			c.ZoomBy(1.1, ev.Position.X, ev.Position.Y)
		}
	}
}

// Pan moves the view by a screen delta.
func (c *Camera) Pan(dx, dy float32) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomBy scales the view by factor, keeping the world point under
// (cx, cy) fixed on screen.
func (c *Camera) ZoomBy(factor, cx, cy float32) {
	anchor := c.ScreenToWorld(cx, cy)
	c.Zoom = clampZoom(c.Zoom * factor)
	x, y := c.WorldToScreen(anchor)
	c.OffsetX += cx - x
	c.OffsetY += cy - y
}

// CenterOn puts p in the middle of a width x height screen.
func (c *Camera) CenterOn(p orb.Point, width, height float32) {
	c.OffsetX = width/2 - float32(p[0])*c.Zoom
	c.OffsetY = height/2 - float32(p[1])*c.Zoom
}

// Fit zooms and centers so that b fills the screen less margin on each
// side. A degenerate bound (a single node) is only centered.
func (c *Camera) Fit(b orb.Bound, width, height, margin float32) {
	w, h := float32(b.Max[0]-b.Min[0]), float32(b.Max[1]-b.Min[1])
	if w > 0 || h > 0 {
		zoom := float32(maxZoom)
		if w > 0 {
			zoom = (width - 2*margin) / w
		}
		if h > 0 {
			if zy := (height - 2*margin) / h; zy < zoom {
				zoom = zy
			}
		}
		c.Zoom = clampZoom(zoom)
	}
	c.CenterOn(b.Center(), width, height)
}

func clampZoom(z float32) float32 {
	if z < minZoom {
		return minZoom
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}
