package overlay

import (
	"github.com/pthm-cable/windfield/bridge"
)

const (
	errLocation = "location unavailable"
	errMap      = "map failed"
)

// Handle applies one inbound message. Messages from the bridge are handled
// in arrival order during Step; a host in the same goroutine may also call
// Handle directly.
func (o *Overlay) Handle(m bridge.Inbound) {
	switch m := m.(type) {
	case bridge.ViewportChanged:
		o.onViewport(m)
	case bridge.SetLocation:
		o.locate(m.Point(), false)
	case bridge.Loaded:
		o.logger.Info("map host loaded")
	case bridge.RestartAnimation:
		o.restart()
	case bridge.VisibilityChanged:
		o.onVisibility(m.Visible)
	case bridge.NativeLocation:
		o.locate(m.Point(), true)
	case bridge.NativeLocationError:
		o.logger.Warn("map host could not locate user", "message", m.Message)
		o.errMsg = errLocation
		o.refreshStatus()
	case bridge.MapError:
		o.logger.Error("map host error", "message", m.Message)
		o.errMsg = errMap
		o.loop.Stop()
		o.refreshStatus()
	default:
		o.logger.Warn("unhandled bridge message", "type", m.Type())
	}
}

func (o *Overlay) onViewport(m bridge.ViewportChanged) {
	o.view = viewport{bounds: m.Bounds, zoom: m.Zoom}
	o.hasView = true

	o.particles.SetViewport(m.Bounds)
	if o.particles.Resize(o.renderer.Canvas().Size(), m.Zoom) {
		o.logger.Debug("particle pool resized", "zoom", m.Zoom, "particles", o.particles.Count())
	}
	o.renderer.SetZoom(m.Zoom)
	o.grid.SetFocus(m.Bounds.Center())

	o.debounce.Push(o.view)
}

// restart brings the loop back to Running with a fresh pool. A map error
// is cleared since the host asked to start over.
func (o *Overlay) restart() {
	o.loop.Stop()
	o.particles.Reset()
	o.loop.Start()
	if o.errMsg == errMap {
		o.errMsg = ""
	}
	o.logger.Info("animation restarted", "particles", o.particles.Count())
	o.refreshStatus()
}

func (o *Overlay) onVisibility(visible bool) {
	var changed bool
	if visible {
		changed = o.loop.Resume()
	} else {
		changed = o.loop.Pause()
	}
	if changed {
		o.logger.Debug("visibility changed", "visible", visible, "loop", o.loop.State())
		o.refreshStatus()
	}
}
