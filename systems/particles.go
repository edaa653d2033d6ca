package systems

import (
	"math/rand"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
)

// referenceFPS is the frame rate at which one tick moves a particle by exactly
// wind * jitter * speedFactor * visualScale pixels.
const referenceFPS = 60

// FieldSampler provides wind vectors at screen positions.
type FieldSampler interface {
	Sample(screenX, screenY float32, bounds geo.Bounds, canvas geo.Size) geo.WindVector
}

// TrailPoint is one recorded position with the wind speed sampled there.
type TrailPoint struct {
	geo.ScreenPoint
	Speed float32 // m/s
}

// Particle is a streak advected through the wind field.
type Particle struct {
	X, Y        float32
	Age         int
	SpeedJitter float32
	Speed       float32 // Last sampled speed in m/s
	// Trail history (oldest first, current position last)
	Path []TrailPoint
}

// ParticleSystem advects a fixed pool of particles through the sampled field.
// The pool is recycled in place; it is only resized when the zoom tier or
// canvas changes.
type ParticleSystem struct {
	Particles []Particle

	cfg     config.ParticlesConfig
	sampler FieldSampler
	bounds  geo.Bounds
	canvas  geo.Size
	zoom    float64
	tier    int
	rng     *rand.Rand
}

// NewParticleSystem creates a pool sized for the canvas and zoom.
func NewParticleSystem(cfg config.ParticlesConfig, sampler FieldSampler, canvas geo.Size, zoom float64, rng *rand.Rand) *ParticleSystem {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	s := &ParticleSystem{
		cfg:     cfg,
		sampler: sampler,
		canvas:  canvas,
		zoom:    zoom,
		rng:     rng,
	}
	_, s.tier = cfg.ParticleTierFor(zoom)
	s.resizePool(PoolSize(cfg, canvas, zoom))
	return s
}

// PoolSize returns clamp(area * density / divisor, min, max) for the zoom tier.
func PoolSize(cfg config.ParticlesConfig, canvas geo.Size, zoom float64) int {
	tier, _ := cfg.ParticleTierFor(zoom)
	divisor := cfg.AreaDivisor
	if divisor <= 0 {
		divisor = 1000
	}
	n := int(float64(canvas.Area()) * tier.Density / divisor)
	if n < tier.Min {
		n = tier.Min
	}
	if n > tier.Max {
		n = tier.Max
	}
	return n
}

// SetViewport updates the geographic bounds the canvas currently shows.
// Particles keep their screen positions.
func (s *ParticleSystem) SetViewport(bounds geo.Bounds) {
	s.bounds = bounds
}

// Bounds returns the current viewport bounds.
func (s *ParticleSystem) Bounds() geo.Bounds {
	return s.bounds
}

// Canvas returns the current canvas size.
func (s *ParticleSystem) Canvas() geo.Size {
	return s.canvas
}

// Zoom returns the zoom level the pool was last sized for.
func (s *ParticleSystem) Zoom() float64 {
	return s.zoom
}

// Resize recomputes the pool when the canvas or the zoom tier changes.
// Returns true if the pool size was recomputed.
func (s *ParticleSystem) Resize(canvas geo.Size, zoom float64) bool {
	s.zoom = zoom
	_, tier := s.cfg.ParticleTierFor(zoom)
	if tier == s.tier && canvas == s.canvas {
		return false
	}
	s.tier = tier
	s.canvas = canvas
	s.resizePool(PoolSize(s.cfg, canvas, zoom))
	return true
}

// Reset respawns every particle at a random position.
func (s *ParticleSystem) Reset() {
	for i := range s.Particles {
		s.respawn(&s.Particles[i])
	}
}

// Tick advances every particle by one frame of dt seconds.
func (s *ParticleSystem) Tick(dt float64) {
	step := dt * referenceFPS
	if step <= 0 {
		return
	}
	if s.cfg.MaxStepFrames > 0 && step > s.cfg.MaxStepFrames {
		step = s.cfg.MaxStepFrames
	}
	scale := s.cfg.SpeedFactor * s.cfg.VisualScale * step
	margin := s.cfg.RespawnMargin

	for i := range s.Particles {
		p := &s.Particles[i]

		wind := s.sampler.Sample(p.X, p.Y, s.bounds, s.canvas)
		speed := wind.Speed()
		p.Speed = float32(speed)

		if speed < s.cfg.CalmThreshold {
			// Freeze: collapse the trail onto the current position
			p.Path = append(p.Path[:0], TrailPoint{ScreenPoint: geo.ScreenPoint{X: p.X, Y: p.Y}, Speed: p.Speed})
		} else {
			k := float64(p.SpeedJitter) * scale
			p.X += float32(wind.U * k)
			// Screen Y grows southward
			p.Y -= float32(wind.V * k)
			p.Path = appendCapped(p.Path, TrailPoint{ScreenPoint: geo.ScreenPoint{X: p.X, Y: p.Y}, Speed: p.Speed}, s.cfg.MaxPathLength)
		}

		p.Age++
		if p.Age >= s.cfg.MaxAge || s.outside(p.X, p.Y, margin) {
			s.respawn(p)
		}
	}
}

// Count returns the current pool size.
func (s *ParticleSystem) Count() int {
	return len(s.Particles)
}

func (s *ParticleSystem) outside(x, y, margin float32) bool {
	return x < -margin || y < -margin || x > s.canvas.Width+margin || y > s.canvas.Height+margin
}

func (s *ParticleSystem) resizePool(n int) {
	if n <= len(s.Particles) {
		s.Particles = s.Particles[:n]
		return
	}
	for len(s.Particles) < n {
		var p Particle
		s.respawn(&p)
		// Stagger initial ages so the pool does not respawn in lockstep
		p.Age = s.rng.Intn(s.cfg.MaxAge)
		s.Particles = append(s.Particles, p)
	}
}

func (s *ParticleSystem) respawn(p *Particle) {
	p.X = s.rng.Float32() * s.canvas.Width
	p.Y = s.rng.Float32() * s.canvas.Height
	p.Age = 0
	p.Speed = 0
	jitter := s.cfg.JitterMin + s.rng.Float64()*(s.cfg.JitterMax-s.cfg.JitterMin)
	p.SpeedJitter = float32(jitter)
	if p.Path == nil {
		p.Path = make([]TrailPoint, 0, s.cfg.MaxPathLength)
	}
	p.Path = append(p.Path[:0], TrailPoint{ScreenPoint: geo.ScreenPoint{X: p.X, Y: p.Y}})
}

// appendCapped appends tp and drops the oldest points beyond limit, reusing the backing array.
func appendCapped(path []TrailPoint, tp TrailPoint, limit int) []TrailPoint {
	if limit < 1 {
		limit = 1
	}
	if len(path) >= limit {
		drop := len(path) - limit + 1
		copy(path, path[drop:])
		path = path[:len(path)-drop]
	}
	return append(path, tp)
}

// MeanSpeed returns the mean sampled speed over the pool, for telemetry.
func (s *ParticleSystem) MeanSpeed() float64 {
	if len(s.Particles) == 0 {
		return 0
	}
	var sum float64
	for i := range s.Particles {
		sum += float64(s.Particles[i].Speed)
	}
	return sum / float64(len(s.Particles))
}
