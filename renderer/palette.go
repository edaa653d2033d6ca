package renderer

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/interp"
)

// SpeedBreakpoints are the wind speeds in m/s at which palette colours are pinned.
var SpeedBreakpoints = []float64{0, 8, 12, 16, 20, 25, 30}

// LightPalette colours trails over a light basemap.
var LightPalette = []color.RGBA{
	{R: 40, G: 110, B: 200, A: 255},  // calm
	{R: 20, G: 150, B: 170, A: 255},  // 8 m/s
	{R: 60, G: 160, B: 70, A: 255},   // 12
	{R: 200, G: 170, B: 30, A: 255},  // 16
	{R: 225, G: 120, B: 30, A: 255},  // 20
	{R: 200, G: 45, B: 45, A: 255},   // 25
	{R: 130, G: 30, B: 140, A: 255},  // 30+
}

// DarkPalette colours trails over a dark basemap.
var DarkPalette = []color.RGBA{
	{R: 120, G: 190, B: 255, A: 255},
	{R: 90, G: 225, B: 220, A: 255},
	{R: 130, G: 235, B: 120, A: 255},
	{R: 250, G: 230, B: 90, A: 255},
	{R: 255, G: 170, B: 80, A: 255},
	{R: 255, G: 95, B: 95, A: 255},
	{R: 220, G: 120, B: 255, A: 255},
}

// Palette maps wind speed to colour by piecewise-linear interpolation per channel.
// Speeds outside the breakpoints take the nearest end colour.
type Palette struct {
	channels [4]interp.PiecewiseLinear
}

// NewPalette fits a palette through colours pinned at speeds.
func NewPalette(speeds []float64, colours []color.RGBA) (*Palette, error) {
	if len(speeds) != len(colours) {
		return nil, fmt.Errorf("palette: %d speeds for %d colours", len(speeds), len(colours))
	}
	if len(speeds) < 2 {
		return nil, fmt.Errorf("palette: need at least 2 breakpoints, got %d", len(speeds))
	}

	var ys [4][]float64
	for i := range ys {
		ys[i] = make([]float64, len(colours))
	}
	for i, c := range colours {
		ys[0][i] = float64(c.R)
		ys[1][i] = float64(c.G)
		ys[2][i] = float64(c.B)
		ys[3][i] = float64(c.A)
	}

	p := &Palette{}
	for i := range p.channels {
		if err := p.channels[i].Fit(speeds, ys[i]); err != nil {
			return nil, fmt.Errorf("palette: fitting channel %d: %w", i, err)
		}
	}
	return p, nil
}

// MustPalette is like NewPalette but panics on error. For package-level palettes.
func MustPalette(speeds []float64, colours []color.RGBA) *Palette {
	p, err := NewPalette(speeds, colours)
	if err != nil {
		panic(err)
	}
	return p
}

// At returns the colour for a speed in m/s.
func (p *Palette) At(speed float64) color.RGBA {
	if math.IsNaN(speed) {
		speed = 0
	}
	return color.RGBA{
		R: channel(p.channels[0].Predict(speed)),
		G: channel(p.channels[1].Predict(speed)),
		B: channel(p.channels[2].Predict(speed)),
		A: channel(p.channels[3].Predict(speed)),
	}
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
