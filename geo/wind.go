package geo

import "math"

// KmhPerMs converts between km/h and m/s.
const KmhPerMs = 3.6

// WindVector is an eastward (U) and northward (V) wind component pair in m/s.
type WindVector struct {
	U float64
	V float64
}

// Speed returns the vector magnitude in m/s.
func (w WindVector) Speed() float64 {
	return math.Hypot(w.U, w.V)
}

// Direction returns the compass bearing in degrees [0, 360) that
// FromSpeedDirection would need to reproduce w.
func (w WindVector) Direction() float64 {
	if w.U == 0 && w.V == 0 {
		return 0
	}
	deg := math.Atan2(-w.U, w.V) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// FromSpeedDirection converts a speed (m/s) and compass bearing (degrees)
// into a vector: u = -speed*sin(dir), v = speed*cos(dir).
func FromSpeedDirection(speed, directionDegrees float64) WindVector {
	rad := directionDegrees * math.Pi / 180
	return WindVector{
		U: -speed * math.Sin(rad),
		V: speed * math.Cos(rad),
	}
}

// KmhToMs converts a speed in km/h to m/s.
func KmhToMs(kmh float64) float64 {
	return kmh / KmhPerMs
}

var cardinalPoints = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// Cardinal returns the 16-point compass name for a bearing in degrees.
func Cardinal(directionDegrees float64) string {
	d := math.Mod(directionDegrees, 360)
	if d < 0 {
		d += 360
	}
	index := int(d/22.5+.5) % 16 // .5 for rounding
	return cardinalPoints[index]
}
