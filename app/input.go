package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windfield/bridge"
	"github.com/pthm-cable/windfield/overlay"
)

// panSpeed is the keyboard pan step in pixels per frame.
const panSpeed = 8

// handleInput processes keyboard and mouse input.
func (a *App) handleInput() {
	a.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		a.setPaused(a.overlay.Loop() != overlay.Paused)
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.local.Post(bridge.RestartAnimation{})
	}
	if rl.IsKeyPressed(rl.KeyL) {
		a.overlay.Renderer().SetDark(!a.overlay.Renderer().Dark())
	}
	if rl.IsKeyPressed(rl.KeyP) {
		a.showPerf = !a.showPerf
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		a.controls.Toggle()
	}

	a.handleCameraInput()

	// Right click places the user
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		pos := rl.GetMousePosition()
		p := a.host.setLocation(pos.X, pos.Y)
		a.logger.Info("location set", "lat", p.Lat, "lon", p.Lon)
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == a.screenWidth && h == a.screenHeight {
		return
	}
	a.screenWidth = w
	a.screenHeight = h

	a.cam.Resize(w, h)
	a.canvas.Resize(int32(w), int32(h))
	a.perfPanel.SetPosition(int32(w)-260, 10)
	a.controls.SetPosition(int32(w)-200, int32(h)-180)
}

// handleCameraInput processes camera pan/zoom controls. The map host
// reports the new viewport on the next tick.
func (a *App) handleCameraInput() {
	if rl.IsKeyDown(rl.KeyRight) {
		a.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		a.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		a.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		a.cam.Pan(0, -panSpeed)
	}

	// Drag to pan, except over the controls panel
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !a.overControls() {
		d := rl.GetMouseDelta()
		if d.X != 0 || d.Y != 0 {
			a.cam.Pan(-d.X, -d.Y)
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.cam.ZoomBy(float64(wheel) * 0.25)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		a.cam.ZoomBy(0.5)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		a.cam.ZoomBy(-0.5)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		a.cam.Reset()
	}
}

func (a *App) overControls() bool {
	if !a.controls.IsVisible() {
		return false
	}
	pos := rl.GetMousePosition()
	return pos.X >= a.screenWidth-200 && pos.Y >= a.screenHeight-180
}

// setPaused pauses or resumes the engine the way a hidden map would.
func (a *App) setPaused(paused bool) {
	a.local.Post(bridge.VisibilityChanged{Visible: !paused})
}
