package app

import (
	"context"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windfield/bridge"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/overlay"
	"github.com/pthm-cable/windfield/renderer"
	"github.com/pthm-cable/windfield/ui"
)

const controlsLegend = "Arrows/drag: pan | Wheel/+/-: zoom | Home: reset | Right click: set location | Space: pause | R: restart | L: light/dark | P: perf | Tab: panel"

var (
	backgroundLight = rl.Color{R: 232, G: 236, B: 240, A: 255}
	backgroundDark  = rl.Color{R: 18, G: 22, B: 30, A: 255}
	graticuleLight  = rl.Color{R: 190, G: 198, B: 208, A: 255}
	graticuleDark   = rl.Color{R: 40, G: 48, B: 60, A: 255}
)

// graticuleSteps are candidate line spacings in degrees, coarse to fine.
var graticuleSteps = []float64{30, 10, 5, 2, 1, 0.5, 0.25, 0.1}

// maxGraticuleLines bounds the lines drawn across the wider viewport axis.
const maxGraticuleLines = 12

// RunDesktop drives the engine from the raylib window until it closes, ctx
// is cancelled, or MaxTicks frames have run.
func (a *App) RunDesktop(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.serve(ctx) }()

	a.Mount()
	ticks := 0
	for !rl.WindowShouldClose() && ctx.Err() == nil {
		a.handleInput()
		a.Tick(float64(rl.GetFrameTime()))
		a.draw()

		ticks++
		if a.opts.MaxTicks > 0 && ticks >= a.opts.MaxTicks {
			a.logger.Info("max ticks reached", "tick", ticks)
			break
		}
	}

	cancel()
	return <-serveErr
}

// draw composites the background, the particle canvas and the UI.
func (a *App) draw() {
	dark := a.overlay.Renderer().Dark()

	rl.BeginDrawing()
	if dark {
		rl.ClearBackground(backgroundDark)
	} else {
		rl.ClearBackground(backgroundLight)
	}
	a.drawGraticule(dark)
	a.canvas.Draw()

	a.hud.Draw(a.hudData())
	if a.showPerf {
		a.perfPanel.Draw(a.overlay.Perf())
	}
	a.applyControls(a.controls.Draw(a.controlsState()))
	a.hud.DrawControls(int32(a.screenWidth), int32(a.screenHeight), controlsLegend)
	rl.EndDrawing()
}

// drawGraticule draws latitude and longitude lines in place of map tiles.
func (a *App) drawGraticule(dark bool) {
	col := graticuleLight
	if dark {
		col = graticuleDark
	}
	b := a.cam.Bounds()
	step := graticuleStep(math.Max(b.LonSpan(), b.LatSpan()))

	for lon := math.Ceil(b.West/step) * step; lon <= b.East; lon += step {
		x := int32(a.cam.GeoToScreen(geo.Point{Lat: b.North, Lon: lon}).X)
		rl.DrawLine(x, 0, x, int32(a.screenHeight), col)
	}
	for lat := math.Ceil(b.South/step) * step; lat <= b.North; lat += step {
		y := int32(a.cam.GeoToScreen(geo.Point{Lat: lat, Lon: b.West}).Y)
		rl.DrawLine(0, y, int32(a.screenWidth), y, col)
	}
}

// graticuleStep picks the finest spacing that keeps the line count bounded.
func graticuleStep(span float64) float64 {
	step := graticuleSteps[0]
	for _, s := range graticuleSteps {
		if span/s > maxGraticuleLines {
			break
		}
		step = s
	}
	return step
}

func (a *App) hudData() ui.HUDData {
	st := a.overlay.Status()
	data := ui.HUDData{
		Title:     "Wind Field",
		State:     st.State,
		Message:   st.Message,
		Loading:   a.overlay.Loading(),
		Particles: a.overlay.Particles().Count(),
		GridCells: a.overlay.Grid().Len(),
		InFlight:  a.overlay.InFlight(),
		Opacity:   a.overlay.Renderer().Opacity(),
		Lat:       a.cam.Lat,
		Lon:       a.cam.Lon,
		Zoom:      a.cam.Zoom,
		FPS:       rl.GetFPS(),
	}
	if user, ok := a.overlay.User(); ok {
		if w := a.overlay.WindAt(user); w.Speed() > 0 {
			data.Readout = renderer.Readout(w)
		}
	}
	return data
}

func (a *App) controlsState() ui.ControlsState {
	return ui.ControlsState{
		Dark:     a.overlay.Renderer().Dark(),
		Paused:   a.overlay.Loop() == overlay.Paused,
		ShowPerf: a.showPerf,
	}
}

func (a *App) applyControls(act ui.ControlsActions) {
	st := a.controlsState()
	if !act.Changed(st) {
		return
	}
	if act.Dark != st.Dark {
		a.overlay.Renderer().SetDark(act.Dark)
	}
	if act.Paused != st.Paused {
		a.setPaused(act.Paused)
	}
	a.showPerf = act.ShowPerf
	if act.Restart {
		a.local.Post(bridge.RestartAnimation{})
	}
	if act.RecenterMap {
		a.cam.Reset()
	}
	a.logger.Debug("controls changed", "actions", act)
}
