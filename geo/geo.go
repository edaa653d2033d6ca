// Package geo provides the geographic primitives shared by the wind field engine:
// points, bounds, grid cells, the screen projection and wind vector math.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBounds is returned when a bounds rectangle has north <= south.
var ErrInvalidBounds = errors.New("geo: north must be greater than south")

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// ScreenPoint is a position on the drawing surface in pixels.
type ScreenPoint struct {
	X, Y float32
}

// Bounds is a north-up geographic rectangle in degrees.
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// NewBounds creates validated bounds.
func NewBounds(north, south, east, west float64) (Bounds, error) {
	b := Bounds{North: north, South: south, East: east, West: west}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// Validate checks the north > south invariant.
func (b Bounds) Validate() error {
	if !(b.North > b.South) {
		return fmt.Errorf("%w: north=%f south=%f", ErrInvalidBounds, b.North, b.South)
	}
	return nil
}

// IsZero reports whether b is the zero rectangle (nothing fetched yet).
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// LatSpan returns the north-south extent in degrees.
func (b Bounds) LatSpan() float64 { return b.North - b.South }

// LonSpan returns the east-west extent in degrees.
func (b Bounds) LonSpan() float64 { return b.East - b.West }

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() Point {
	return Point{
		Lat: (b.North + b.South) / 2,
		Lon: (b.East + b.West) / 2,
	}
}

// Contains reports whether o lies entirely inside b.
func (b Bounds) Contains(o Bounds) bool {
	return o.North <= b.North && o.South >= b.South &&
		o.East <= b.East && o.West >= b.West
}

// ContainsPoint reports whether p lies inside b (edges inclusive).
func (b Bounds) ContainsPoint(p Point) bool {
	return p.Lat <= b.North && p.Lat >= b.South &&
		p.Lon <= b.East && p.Lon >= b.West
}

// Union returns the smallest rectangle covering both b and o.
// The zero rectangle acts as the identity.
func (b Bounds) Union(o Bounds) Bounds {
	if b.IsZero() {
		return o
	}
	if o.IsZero() {
		return b
	}
	return Bounds{
		North: math.Max(b.North, o.North),
		South: math.Min(b.South, o.South),
		East:  math.Max(b.East, o.East),
		West:  math.Min(b.West, o.West),
	}
}

// Expand scales the lat/lon spans by factor around the centre,
// clamped to the valid coordinate range.
func (b Bounds) Expand(factor float64) Bounds {
	c := b.Center()
	halfLat := b.LatSpan() * factor / 2
	halfLon := b.LonSpan() * factor / 2
	return Bounds{
		North: c.Lat + halfLat,
		South: c.Lat - halfLat,
		East:  c.Lon + halfLon,
		West:  c.Lon - halfLon,
	}.Clamp()
}

// Clamp limits the rectangle to latitudes [-90, 90] and longitudes [-180, 180].
func (b Bounds) Clamp() Bounds {
	return Bounds{
		North: clamp(b.North, -90, 90),
		South: clamp(b.South, -90, 90),
		East:  clamp(b.East, -180, 180),
		West:  clamp(b.West, -180, 180),
	}
}

// Square returns the rectangle extending radius degrees from center in every direction.
func Square(center Point, radius float64) Bounds {
	return Bounds{
		North: center.Lat + radius,
		South: center.Lat - radius,
		East:  center.Lon + radius,
		West:  center.Lon - radius,
	}.Clamp()
}

// Distance returns the planar distance in degrees between two points.
// Good enough for ordering cells by proximity; not a great-circle distance.
func Distance(a, b Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
