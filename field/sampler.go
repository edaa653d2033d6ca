package field

import (
	"github.com/pthm-cable/windfield/geo"
)

// Sampler turns the sparse grid into a continuous vector field by bilinear
// interpolation between cell anchors. Missing neighbours count as calm.
type Sampler struct {
	grid *Grid
}

// NewSampler creates a sampler reading from grid.
func NewSampler(grid *Grid) *Sampler {
	return &Sampler{grid: grid}
}

// Sample returns the wind at a screen position for the given viewport and canvas.
func (s *Sampler) Sample(screenX, screenY float32, bounds geo.Bounds, canvas geo.Size) geo.WindVector {
	p := geo.ScreenToGeo(screenX, screenY, bounds, canvas)
	return s.SampleGeo(p.Lat, p.Lon)
}

// SampleGeo returns the wind at a geographic coordinate.
func (s *Sampler) SampleGeo(lat, lon float64) geo.WindVector {
	res := s.grid.Resolution()
	c := res.Cell(lat, lon)
	r := float64(res)

	// Fractional offsets inside the cell
	tx := clamp01(lon/r - float64(c.Lon))
	ty := clamp01(lat/r - float64(c.Lat))

	v00 := s.at(geo.Cell{Lat: c.Lat, Lon: c.Lon})
	v10 := s.at(geo.Cell{Lat: c.Lat, Lon: c.Lon + 1})
	v01 := s.at(geo.Cell{Lat: c.Lat + 1, Lon: c.Lon})
	v11 := s.at(geo.Cell{Lat: c.Lat + 1, Lon: c.Lon + 1})

	return geo.WindVector{
		U: lerp(lerp(v00.U, v10.U, tx), lerp(v01.U, v11.U, tx), ty),
		V: lerp(lerp(v00.V, v10.V, tx), lerp(v01.V, v11.V, tx), ty),
	}
}

func (s *Sampler) at(c geo.Cell) geo.WindVector {
	v, _ := s.grid.cell(c)
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
