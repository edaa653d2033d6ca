package app

import (
	"log/slog"

	"github.com/pthm-cable/windfield/bridge"
	"github.com/pthm-cable/windfield/camera"
	"github.com/pthm-cable/windfield/geo"
)

const errNoNativeLocation = "no native location on this host"

// mapHost plays the map side of the bridge for hosts that render in
// process. It reports camera movement as viewport changes and applies the
// engine's fly-to requests to the camera.
type mapHost struct {
	cam    *camera.Camera
	local  *bridge.Local
	logger *slog.Logger

	lastBounds geo.Bounds
	lastZoom   float64
	state      bridge.Status
}

func newMapHost(cam *camera.Camera, local *bridge.Local, logger *slog.Logger) *mapHost {
	return &mapHost{cam: cam, local: local, logger: logger}
}

// sync posts a viewport change when the camera moved since the last call.
func (h *mapHost) sync() bool {
	b := h.cam.Bounds()
	if b == h.lastBounds && h.cam.Zoom == h.lastZoom {
		return false
	}
	if !h.local.Post(bridge.ViewportChanged{Bounds: b, Zoom: h.cam.Zoom}) {
		h.logger.Warn("bridge queue full, viewport change dropped")
		return false
	}
	h.lastBounds = b
	h.lastZoom = h.cam.Zoom
	return true
}

// drain applies every message the engine sent since the last call.
func (h *mapHost) drain() {
	for _, m := range h.local.Drain() {
		switch m := m.(type) {
		case bridge.FlyTo:
			h.cam.FlyTo(geo.Point{Lat: m.Center[1], Lon: m.Center[0]}, m.Zoom)
		case bridge.RequestLocation:
			h.local.Post(bridge.NativeLocationError{Message: errNoNativeLocation})
		case bridge.Status:
			if m != h.state {
				h.logger.Debug("engine status", "state", m.State, "message", m.Message)
				h.state = m
			}
		}
	}
}

// setLocation places the user at a screen position.
func (h *mapHost) setLocation(sx, sy float32) geo.Point {
	p := h.cam.ScreenToGeo(sx, sy)
	h.local.Post(bridge.SetLocation{Coordinates: [2]float64{p.Lon, p.Lat}})
	return p
}

// Status returns the last status the engine reported.
func (h *mapHost) Status() bridge.Status {
	return h.state
}
