// Package vis implements a Gio viewer for a running simulation.
package vis

import (
	"image/color"
	"log/slog"
	"time"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/trafficsim/internal/vis/interact"
	"github.com/elektrokombinacija/trafficsim/internal/vis/state"
	"github.com/elektrokombinacija/trafficsim/internal/vis/widgets"
)

// App is the viewer.
type App struct {
	state     *state.State
	theme     *material.Theme
	camera    *interact.Camera
	workspace *widgets.Workspace
	toolbar   *widgets.Toolbar
	status    *widgets.Status
}

// NewApp builds the simulation with build and shows it paused at tick 0.
func NewApp(build state.Builder, ticksPerSecond float64, log *slog.Logger) (*App, error) {
	st, err := state.New(build, ticksPerSecond)
	if err != nil {
		return nil, err
	}
	camera := interact.NewCamera()
	a := &App{
		state:     st,
		theme:     material.NewTheme(),
		camera:    camera,
		workspace: widgets.NewWorkspace(st, camera),
		toolbar:   widgets.NewToolbar(st, log),
		status:    widgets.NewStatus(st),
	}
	a.toolbar.OnFit = a.workspace.Refit
	return a, nil
}

// Run processes window events until the window is closed.
func (a *App) Run(w *app.Window) error {
	var ops op.Ops
	tag := new(int)

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKey(ke)
				}
			}
			event.Op(gtx.Ops, tag)

			a.state.Update(e.Now)
			a.layout(gtx)
			e.Frame(gtx.Ops)

			if a.state.Playback.Playing {
				w.Invalidate()
			}
		}
	}
}

func (a *App) handleKey(e key.Event) {
	p := a.state.Playback
	switch e.Name {
	case key.NameSpace:
		p.TogglePlay(time.Now())
	case key.NameRightArrow:
		p.Pause()
		a.state.Step(1)
	case key.NameUpArrow:
		p.SetSpeed(p.TicksPerSecond * 2)
	case key.NameDownArrow:
		p.SetSpeed(p.TicksPerSecond / 2)
	case key.NameHome:
		a.toolbar.Reset()
	case "F":
		a.workspace.Refit()
	case key.NameEscape:
		a.state.Selected = 0
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.toolbar.Layout(gtx, a.theme)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return a.workspace.Layout(gtx)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.status.Layout(gtx, a.theme)
		}),
	)
}
