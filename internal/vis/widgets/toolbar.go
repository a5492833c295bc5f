package widgets

import (
	"image"
	"image/color"
	"log/slog"
	"time"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/trafficsim/internal/vis/state"
)

// Toolbar holds the playback controls.
type Toolbar struct {
	state *state.State
	log   *slog.Logger

	// OnFit is called by the fit button and after a reset.
	OnFit func()

	playBtn      widget.Clickable
	stepBtn      widget.Clickable
	stepManyBtn  widget.Clickable
	resetBtn     widget.Clickable
	speedDownBtn widget.Clickable
	speedUpBtn   widget.Clickable
	fitBtn       widget.Clickable
}

func NewToolbar(st *state.State, log *slog.Logger) *Toolbar {
	return &Toolbar{state: st, log: log}
}

func (t *Toolbar) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	const height = 44
	rect := image.Rect(0, 0, gtx.Constraints.Max.X, height)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 40, G: 43, B: 48, A: 255}, clip.Rect(rect).Op())

	t.handleClicks(gtx)

	gap := layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout)
	gtx.Constraints.Max.Y = height
	return layout.Inset{Left: unit.Dp(10), Top: unit.Dp(8), Bottom: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				if t.state.Playback.Playing {
					return button(gtx, th, &t.playBtn, "||")
				}
				return button(gtx, th, &t.playBtn, ">")
			}),
			gap,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.stepBtn, ">|") }),
			gap,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.stepManyBtn, ">>10") }),
			gap,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.resetBtn, "[]") }),
			layout.Rigid(separator),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.speedDownBtn, "-") }),
			gap,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.speedUpBtn, "+") }),
			layout.Rigid(separator),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.fitBtn, "fit") }),
		)
	})
}

func (t *Toolbar) handleClicks(gtx layout.Context) {
	p := t.state.Playback
	for t.playBtn.Clicked(gtx) {
		p.TogglePlay(time.Now())
	}
	for t.stepBtn.Clicked(gtx) {
		p.Pause()
		t.state.Step(1)
	}
	for t.stepManyBtn.Clicked(gtx) {
		p.Pause()
		t.state.Step(10)
	}
	for t.resetBtn.Clicked(gtx) {
		t.Reset()
	}
	for t.speedDownBtn.Clicked(gtx) {
		p.SetSpeed(p.TicksPerSecond / 2)
	}
	for t.speedUpBtn.Clicked(gtx) {
		p.SetSpeed(p.TicksPerSecond * 2)
	}
	for t.fitBtn.Clicked(gtx) {
		t.fit()
	}
}

// Reset rebuilds the simulation. A failed rebuild keeps the old one.
func (t *Toolbar) Reset() {
	if err := t.state.Reset(); err != nil {
		t.log.Error("reset failed", "error", err)
		return
	}
	t.fit()
}

func (t *Toolbar) fit() {
	if t.OnFit != nil {
		t.OnFit()
	}
}

func separator(gtx layout.Context) layout.Dimensions {
	return layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		paint.FillShape(gtx.Ops, color.NRGBA{R: 60, G: 65, B: 70, A: 255}, clip.Rect(image.Rect(0, 0, 1, 24)).Op())
		return layout.Dimensions{Size: image.Point{X: 1, Y: 24}}
	})
}

func button(gtx layout.Context, th *material.Theme, btn *widget.Clickable, text string) layout.Dimensions {
	bg := color.NRGBA{R: 55, G: 58, B: 65, A: 255}
	if btn.Hovered() {
		bg = color.NRGBA{R: 70, G: 73, B: 80, A: 255}
	}
	return btn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Background{}.Layout(gtx,
			func(gtx layout.Context) layout.Dimensions {
				sz := gtx.Constraints.Min
				paint.FillShape(gtx.Ops, bg, clip.Rect(image.Rectangle{Max: sz}).Op())
				return layout.Dimensions{Size: sz}
			},
			func(gtx layout.Context) layout.Dimensions {
				gtx.Constraints.Min = image.Point{X: 32, Y: 28}
				return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return layout.Inset{Left: unit.Dp(6), Right: unit.Dp(6)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
						label := material.Label(th, 12, text)
						label.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
						return label.Layout(gtx)
					})
				})
			},
		)
	})
}
