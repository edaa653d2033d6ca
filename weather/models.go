package weather

import (
	"github.com/pthm-cable/windfield/geo"
)

// ForecastResponse is one location's forecast as returned by the service.
// Multi-location requests return a JSON array of these in request order.
type ForecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Timezone  string  `json:"timezone"`
	Hourly    Hourly  `json:"hourly"`
}

// Hourly holds parallel per-hour arrays. Entries may be null.
type Hourly struct {
	Time             []string   `json:"time"`
	WindSpeed10m     []*float64 `json:"wind_speed_10m"`
	WindDirection10m []*float64 `json:"wind_direction_10m"`
}

// Observation is the current-hour wind at a requested point.
type Observation struct {
	Point        geo.Point
	SpeedKmh     float64
	DirectionDeg float64 // Compass bearing the wind blows from
}

// Wind converts the observation into an east/north vector in m/s.
func (o Observation) Wind() geo.WindVector {
	return geo.FromSpeedDirection(geo.KmhToMs(o.SpeedKmh), o.DirectionDeg)
}

// current returns the first hourly entry, if both values are present.
func (h Hourly) current() (speed, direction float64, ok bool) {
	if len(h.WindSpeed10m) == 0 || len(h.WindDirection10m) == 0 {
		return 0, 0, false
	}
	s, d := h.WindSpeed10m[0], h.WindDirection10m[0]
	if s == nil || d == nil {
		return 0, 0, false
	}
	return *s, *d, true
}
