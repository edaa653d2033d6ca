// Package config provides configuration loading and access for the wind field engine.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/windfield/geo"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// APIKeyEnv overrides weather.api_key when set.
const APIKeyEnv = "WINDFIELD_API_KEY"

// MaxChunkSize is the weather service's per-request coordinate limit.
const MaxChunkSize = 100

// Config holds all engine configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Log       LogConfig       `yaml:"log"`
	Grid      GridConfig      `yaml:"grid"`
	Weather   WeatherConfig   `yaml:"weather"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Particles ParticlesConfig `yaml:"particles"`
	Render    RenderConfig    `yaml:"render"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the desktop host.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// GridConfig holds the wind grid settings.
type GridConfig struct {
	Resolution float64 `yaml:"resolution"` // Cell size in degrees
	MaxCells   int     `yaml:"max_cells"`  // 0 = unbounded for the session
}

// WeatherConfig holds the forecast service settings.
type WeatherConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	APIKeyHeader      string        `yaml:"api_key_header"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the forecast service.
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"` // Consecutive failures before opening
	OpenTimeout      time.Duration `yaml:"open_timeout"`      // Time spent open before probing again
}

// FetchConfig holds batching settings for the data fetch client.
type FetchConfig struct {
	ChunkSize     int `yaml:"chunk_size"`     // Coordinates per request (service limit 100)
	MaxConcurrent int `yaml:"max_concurrent"` // Chunks in flight at once
}

// SchedulerConfig holds viewport fetch scheduling parameters.
type SchedulerConfig struct {
	Debounce           time.Duration `yaml:"debounce"`
	MoveThreshold      float64       `yaml:"move_threshold"`        // Fraction of the prior span
	MaxCellsPerRequest int           `yaml:"max_cells_per_request"` // Nearest-first cap per settle
	RadiusTiers        []ZoomTier    `yaml:"radius_tiers"`          // Degrees around the user on first fetch
	ExpansionTiers     []ZoomTier    `yaml:"expansion_tiers"`       // Viewport span multiplier
}

// ZoomTier maps a minimum zoom to a value. Tiers are evaluated from the
// highest MinZoom down; the last tier applies below every threshold.
type ZoomTier struct {
	MinZoom float64 `yaml:"min_zoom"`
	Value   float64 `yaml:"value"`
}

// ParticlesConfig holds particle advection parameters.
type ParticlesConfig struct {
	MaxAge        int            `yaml:"max_age"`         // Ticks before respawn
	MaxPathLength int            `yaml:"max_path_length"` // Trail points kept per particle
	CalmThreshold float64        `yaml:"calm_threshold"`  // m/s below which particles freeze
	SpeedFactor   float64        `yaml:"speed_factor"`
	VisualScale   float64        `yaml:"visual_scale"`   // Pixels per (m/s * tick) after speed factor
	RespawnMargin float32        `yaml:"respawn_margin"` // Pixels outside the canvas before respawn
	JitterMin     float64        `yaml:"jitter_min"`
	JitterMax     float64        `yaml:"jitter_max"`
	MaxStepFrames float64        `yaml:"max_step_frames"` // Cap on dt*60 after a stalled frame
	AreaDivisor   float64        `yaml:"area_divisor"`    // Pool = area * density / divisor
	Tiers         []ParticleTier `yaml:"tiers"`
}

// ParticleTier holds pool sizing for a zoom range.
type ParticleTier struct {
	MinZoom float64 `yaml:"min_zoom"`
	Density float64 `yaml:"density"`
	Min     int     `yaml:"min"`
	Max     int     `yaml:"max"`
}

// RenderConfig holds trail drawing parameters.
type RenderConfig struct {
	Dark                 bool       `yaml:"dark"`
	AgeFadeTicks         int        `yaml:"age_fade_ticks"`
	TransitionMinOpacity float64    `yaml:"transition_min_opacity"`
	TransitionRate       float64    `yaml:"transition_rate"` // Opacity change per frame
	SpeedWidthFactor     float64    `yaml:"speed_width_factor"`
	WidthTiers           []ZoomTier `yaml:"width_tiers"`
	MarkerRadius         float32    `yaml:"marker_radius"`
	ReadoutFontSize      int        `yaml:"readout_font_size"`
}

// OverlayConfig holds overlay lifecycle parameters.
type OverlayConfig struct {
	LoadingFallback time.Duration  `yaml:"loading_fallback"`
	InitialView     ViewConfig     `yaml:"initial_view"`
	Location        LocationConfig `yaml:"location"`
}

// ViewConfig is the desktop host's starting camera.
type ViewConfig struct {
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
	Zoom float64 `yaml:"zoom"`
}

// LocationConfig configures the static location provider.
type LocationConfig struct {
	Enabled bool    `yaml:"enabled"`
	Lat     float64 `yaml:"lat"`
	Lon     float64 `yaml:"lon"`
}

// ServerConfig holds the bridge HTTP server settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"` // Empty = any origin
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds between field stats log lines
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW32  float32        // Screen.Width as float32
	ScreenH32  float32        // Screen.Height as float32
	Resolution geo.Resolution // Grid.Resolution as a grid step
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Weather.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Grid.Resolution <= 0 {
		errs = append(errs, fmt.Errorf("grid.resolution must be positive, got %f", c.Grid.Resolution))
	}
	if c.Fetch.ChunkSize < 1 || c.Fetch.ChunkSize > MaxChunkSize {
		errs = append(errs, fmt.Errorf("fetch.chunk_size must be in [1, %d], got %d", MaxChunkSize, c.Fetch.ChunkSize))
	}
	if c.Particles.MaxAge < 1 {
		errs = append(errs, fmt.Errorf("particles.max_age must be positive, got %d", c.Particles.MaxAge))
	}
	if c.Particles.MaxPathLength < 1 {
		errs = append(errs, fmt.Errorf("particles.max_path_length must be positive, got %d", c.Particles.MaxPathLength))
	}
	if c.Particles.JitterMax < c.Particles.JitterMin {
		errs = append(errs, errors.New("particles.jitter_max must be >= jitter_min"))
	}
	for name, tiers := range map[string][]ZoomTier{
		"scheduler.radius_tiers":    c.Scheduler.RadiusTiers,
		"scheduler.expansion_tiers": c.Scheduler.ExpansionTiers,
		"render.width_tiers":        c.Render.WidthTiers,
	} {
		if len(tiers) == 0 {
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
		}
	}
	if len(c.Particles.Tiers) == 0 {
		errs = append(errs, errors.New("particles.tiers must not be empty"))
	}
	for _, t := range c.Particles.Tiers {
		if t.Min > t.Max {
			errs = append(errs, fmt.Errorf("particles.tiers: min %d > max %d at zoom %f", t.Min, t.Max, t.MinZoom))
		}
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.Resolution = geo.Resolution(c.Grid.Resolution)

	// Tier lookups walk from the highest threshold down
	sortTiers(c.Scheduler.RadiusTiers)
	sortTiers(c.Scheduler.ExpansionTiers)
	sortTiers(c.Render.WidthTiers)
	sort.SliceStable(c.Particles.Tiers, func(i, j int) bool {
		return c.Particles.Tiers[i].MinZoom > c.Particles.Tiers[j].MinZoom
	})
}

func sortTiers(tiers []ZoomTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinZoom > tiers[j].MinZoom
	})
}

// Lookup returns the value of the first tier whose MinZoom <= zoom,
// falling back to the lowest tier.
func Lookup(tiers []ZoomTier, zoom float64) float64 {
	if len(tiers) == 0 {
		return 0
	}
	for _, t := range tiers {
		if zoom >= t.MinZoom {
			return t.Value
		}
	}
	return tiers[len(tiers)-1].Value
}

// ParticleTierFor returns the pool sizing tier for a zoom level and its index
// counted from the highest tier.
func (c *ParticlesConfig) ParticleTierFor(zoom float64) (ParticleTier, int) {
	for i, t := range c.Tiers {
		if zoom >= t.MinZoom {
			return t, i
		}
	}
	last := len(c.Tiers) - 1
	return c.Tiers[last], last
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
