package renderer

import (
	"fmt"
	"image/color"

	"github.com/pthm-cable/windfield/geo"
)

var (
	markerFill    = color.RGBA{R: 30, G: 120, B: 255, A: 255}
	markerRing    = color.RGBA{R: 255, G: 255, B: 255, A: 230}
	readoutLight  = color.RGBA{R: 20, G: 20, B: 30, A: 255}
	readoutDark   = color.RGBA{R: 235, G: 235, B: 245, A: 255}
	readoutOffset = geo.ScreenPoint{X: 12, Y: -8}
)

// Readout formats wind as speed in km/h and a 16-point cardinal direction.
func Readout(w geo.WindVector) string {
	return fmt.Sprintf("%.0f km/h %s", w.Speed()*geo.KmhPerMs, geo.Cardinal(w.Direction()))
}

// DrawMarkers draws the user position marker and the wind readout next to it.
// Nothing is drawn when the user is off screen.
func (r *Renderer) DrawMarkers(user geo.Point, wind geo.WindVector, hasWind bool, bounds geo.Bounds) bool {
	if bounds.IsZero() || !bounds.ContainsPoint(user) {
		return false
	}
	at := geo.GeoToScreen(user, bounds, r.canvas.Size())

	radius := r.cfg.MarkerRadius
	if radius <= 0 {
		radius = 6
	}
	r.canvas.Circle(at, radius+2, markerRing)
	r.canvas.Circle(at, radius, markerFill)

	if !hasWind {
		return true
	}
	text := readoutLight
	if r.isDark {
		text = readoutDark
	}
	size := r.cfg.ReadoutFontSize
	if size <= 0 {
		size = 16
	}
	r.canvas.Text(Readout(wind), geo.ScreenPoint{X: at.X + readoutOffset.X, Y: at.Y + readoutOffset.Y}, size, text)
	return true
}
