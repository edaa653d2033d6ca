// Package camera provides the desktop host's geographic camera.
package camera

import (
	"math"

	"github.com/pthm-cable/windfield/geo"
)

// tileSize is the pixel width of the world at zoom 0, as on slippy maps.
const tileSize = 256

// maxLat keeps the viewport off the poles.
const maxLat = 85.0

// Camera controls which geographic rectangle the canvas shows.
// The projection is linear in latitude and longitude, matching the field sampler.
type Camera struct {
	// Center of the view in degrees
	Lat, Lon float64

	// Zoom level (each step doubles the scale)
	Zoom float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Zoom constraints
	MinZoom, MaxZoom float64

	home     geo.Point
	homeZoom float64
}

// New creates a camera centred on center.
func New(viewportW, viewportH float32, center geo.Point, zoom float64) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinZoom:   2,
		MaxZoom:   14,
		home:      center,
		homeZoom:  zoom,
	}
	c.FlyTo(center, zoom)
	return c
}

// DegreesPerPixel returns the angular size of one screen pixel.
func (c *Camera) DegreesPerPixel() float64 {
	return 360 / (tileSize * math.Exp2(c.Zoom))
}

// Bounds returns the visible rectangle.
func (c *Camera) Bounds() geo.Bounds {
	dpp := c.DegreesPerPixel()
	halfW := float64(c.ViewportW) / 2 * dpp
	halfH := float64(c.ViewportH) / 2 * dpp
	return geo.Bounds{
		North: c.Lat + halfH,
		South: c.Lat - halfH,
		East:  c.Lon + halfW,
		West:  c.Lon - halfW,
	}
}

// Size returns the viewport as a canvas size.
func (c *Camera) Size() geo.Size {
	return geo.Size{Width: c.ViewportW, Height: c.ViewportH}
}

// ScreenToGeo converts screen coordinates to a geographic point.
func (c *Camera) ScreenToGeo(sx, sy float32) geo.Point {
	return geo.ScreenToGeo(sx, sy, c.Bounds(), c.Size())
}

// GeoToScreen converts a geographic point to screen coordinates.
func (c *Camera) GeoToScreen(p geo.Point) geo.ScreenPoint {
	return geo.GeoToScreen(p, c.Bounds(), c.Size())
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.clampCenter()
}

// Pan moves the view by the given delta in screen pixels. Positive dy
// moves the view south.
func (c *Camera) Pan(dx, dy float32) {
	dpp := c.DegreesPerPixel()
	c.Lon += float64(dx) * dpp
	c.Lat -= float64(dy) * dpp
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomBy changes the zoom level by delta steps.
func (c *Camera) ZoomBy(delta float64) {
	c.SetZoom(c.Zoom + delta)
}

// FlyTo centres the view on p at zoom.
func (c *Camera) FlyTo(p geo.Point, zoom float64) {
	c.Lat = p.Lat
	c.Lon = p.Lon
	c.SetZoom(zoom)
}

// Reset returns the camera to its initial position and zoom.
func (c *Camera) Reset() {
	c.FlyTo(c.home, c.homeZoom)
}

// clampCenter keeps the visible rectangle inside the latitude limits and
// wraps the centre longitude into [-180, 180).
func (c *Camera) clampCenter() {
	halfH := float64(c.ViewportH) / 2 * c.DegreesPerPixel()
	limit := math.Max(maxLat-halfH, 0)
	c.Lat = clamp(c.Lat, -limit, limit)
	if c.Lon < -180 || c.Lon >= 180 {
		c.Lon = mod(c.Lon+180, 360) - 180
	}
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// clamp restricts a value to a range.
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
