// Package renderer draws particle trails and overlay markers onto a canvas.
package renderer

import (
	"image/color"
	"math"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/systems"
)

// widthSpeedCeiling is the speed in m/s at which the speed width bonus saturates.
const widthSpeedCeiling = 30.0

// Canvas is a drawing surface layered above the map.
type Canvas interface {
	Size() geo.Size
	BeginFrame()
	EndFrame()
	// Clear resets the surface to fully transparent.
	Clear()
	Line(from, to geo.ScreenPoint, width float32, c color.RGBA)
	Circle(center geo.ScreenPoint, radius float32, c color.RGBA)
	Text(text string, at geo.ScreenPoint, size int, c color.RGBA)
}

// FrameStats summarises one rendered frame.
type FrameStats struct {
	Particles int // Particles with a drawable trail
	Segments  int
	Opacity   float64
}

// Renderer draws trails coloured by speed with recency, age and transition fades.
type Renderer struct {
	cfg     config.RenderConfig
	maxAge  int
	canvas  Canvas
	light   *Palette
	dark    *Palette
	isDark  bool
	zoom    float64
	opacity float64
}

// NewRenderer creates a renderer. maxAge is the particle lifetime in ticks.
func NewRenderer(cfg config.RenderConfig, maxAge int, canvas Canvas) (*Renderer, error) {
	light, err := NewPalette(SpeedBreakpoints, LightPalette)
	if err != nil {
		return nil, err
	}
	dark, err := NewPalette(SpeedBreakpoints, DarkPalette)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		cfg:     cfg,
		maxAge:  maxAge,
		canvas:  canvas,
		light:   light,
		dark:    dark,
		isDark:  cfg.Dark,
		opacity: 1,
	}, nil
}

// Canvas returns the surface being drawn on.
func (r *Renderer) Canvas() Canvas {
	return r.canvas
}

// SetZoom sets the zoom used for line width tiers.
func (r *Renderer) SetZoom(zoom float64) {
	r.zoom = zoom
}

// SetDark switches between the light and dark palettes.
func (r *Renderer) SetDark(dark bool) {
	r.isDark = dark
}

// Dark reports whether the dark palette is active.
func (r *Renderer) Dark() bool {
	return r.isDark
}

// Palette returns the active palette.
func (r *Renderer) Palette() *Palette {
	if r.isDark {
		return r.dark
	}
	return r.light
}

// Opacity returns the current transition opacity.
func (r *Renderer) Opacity() float64 {
	return r.opacity
}

// RenderFrame clears the canvas and draws every particle trail.
// transitioning dims the field toward the minimum transition opacity while
// the grid is being repopulated; it recovers once the flag clears.
func (r *Renderer) RenderFrame(particles []systems.Particle, transitioning bool) FrameStats {
	r.stepOpacity(transitioning)
	r.canvas.Clear()

	stats := FrameStats{Opacity: r.opacity}
	palette := r.Palette()
	baseWidth := float32(config.Lookup(r.cfg.WidthTiers, r.zoom))

	for i := range particles {
		p := &particles[i]
		n := len(p.Path)
		if n < 2 {
			continue
		}

		ageFade := r.ageFade(p.Age)
		base := ageFade * r.opacity
		if base <= 0 {
			continue
		}

		width := baseWidth * (1 + float32(speedWeight(float64(p.Speed))*r.cfg.SpeedWidthFactor))
		drawn := false

		for j := 0; j < n-1; j++ {
			// Quadratic recency fade: tail faint, head opaque
			t := float64(j+1) / float64(n-1)
			alpha := t * t * base

			c := palette.At(float64(p.Path[j+1].Speed))
			a := float64(c.A) * alpha
			if a < 1 {
				continue
			}
			c.A = uint8(a)

			r.canvas.Line(p.Path[j].ScreenPoint, p.Path[j+1].ScreenPoint, width, c)
			stats.Segments++
			drawn = true
		}
		if drawn {
			stats.Particles++
		}
	}

	return stats
}

// stepOpacity eases the transition opacity toward its target by one frame.
func (r *Renderer) stepOpacity(transitioning bool) {
	target := 1.0
	if transitioning {
		target = r.cfg.TransitionMinOpacity
	}
	rate := r.cfg.TransitionRate
	if rate <= 0 {
		r.opacity = target
		return
	}
	switch {
	case r.opacity < target:
		r.opacity = math.Min(r.opacity+rate, target)
	case r.opacity > target:
		r.opacity = math.Max(r.opacity-rate, target)
	}
}

// ageFade ramps a particle in over its first ticks and out over its last.
func (r *Renderer) ageFade(age int) float64 {
	ticks := float64(r.cfg.AgeFadeTicks)
	if ticks <= 0 {
		return 1
	}
	fadeIn := math.Min(float64(age)/ticks, 1)
	fadeOut := math.Min(float64(r.maxAge-age)/ticks, 1)
	return math.Max(math.Min(fadeIn, fadeOut), 0)
}

func speedWeight(speed float64) float64 {
	return math.Min(math.Max(speed, 0)/widthSpeedCeiling, 1)
}
