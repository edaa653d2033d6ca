// Package app assembles the wind overlay with a host: a raylib desktop
// window, a headless loop, or a websocket bridge for a remote map.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/pthm-cable/windfield/bridge"
	"github.com/pthm-cable/windfield/camera"
	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/location"
	"github.com/pthm-cable/windfield/overlay"
	"github.com/pthm-cable/windfield/renderer"
	"github.com/pthm-cable/windfield/telemetry"
	"github.com/pthm-cable/windfield/ui"
	"github.com/pthm-cable/windfield/weather"
)

// DT is the frame step used by the headless loop, in seconds.
const DT = 1.0 / 60.0

const shutdownTimeout = 5 * time.Second

// Options configures an App beyond the config file.
type Options struct {
	Headless  bool
	Serve     string // Bridge server address; empty disables the server
	OutputDir string
	Seed      int64
	MaxTicks  int // 0 = unlimited
}

// App holds the engine, its host and the optional bridge server.
type App struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	clock  clockwork.Clock

	overlay *overlay.Overlay
	metrics *telemetry.Metrics
	output  *telemetry.OutputManager
	client  *weather.Client
	cam     *camera.Camera

	// In-process hosts
	local *bridge.Local
	host  *mapHost

	// Remote host
	hub    *bridge.Hub
	server *http.Server

	// Desktop only
	canvas    *renderer.RaylibCanvas
	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	controls  *ui.ControlsPanel
	showPerf  bool

	screenWidth, screenHeight float32
}

// New wires the engine for the chosen host. Desktop mode requires an open
// raylib window.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*App, error) {
	a := &App{
		cfg:          cfg,
		opts:         opts,
		logger:       logger,
		clock:        clockwork.NewRealClock(),
		metrics:      telemetry.NewMetrics(prometheus.NewRegistry()),
		screenWidth:  cfg.Derived.ScreenW32,
		screenHeight: cfg.Derived.ScreenH32,
	}

	a.client = weather.NewClient(cfg.Weather,
		weather.WithLogger(logger),
		weather.WithStateListener(func(_ string, _, to gobreaker.State) {
			a.metrics.BreakerState.Set(float64(to))
		}),
	)

	out, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	a.output = out
	if err := out.WriteConfig(cfg); err != nil {
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	view := cfg.Overlay.InitialView
	a.cam = camera.New(a.screenWidth, a.screenHeight, geo.Point{Lat: view.Lat, Lon: view.Lon}, view.Zoom)

	var canvas renderer.Canvas
	if opts.Headless {
		canvas = renderer.NewCountingCanvas(a.screenWidth, a.screenHeight)
	} else {
		a.canvas = renderer.NewRaylibCanvas(int32(a.screenWidth), int32(a.screenHeight))
		a.hud = ui.NewHUD()
		a.perfPanel = ui.NewPerfPanel(int32(a.screenWidth)-260, 10)
		a.controls = ui.NewControlsPanel(int32(a.screenWidth)-200, int32(a.screenHeight)-180, 190)
		canvas = a.canvas
	}

	// A remote map host drives the headless engine when serving; otherwise
	// the camera plays the map.
	var b overlay.Bridge
	if opts.Headless && opts.Serve != "" {
		a.hub = bridge.NewHub(cfg.Server, logger, a.metrics)
		b = a.hub
	} else {
		a.local = bridge.NewLocal(0)
		a.host = newMapHost(a.cam, a.local, logger)
		b = a.local
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	a.overlay, err = overlay.New(ctx, overlay.Deps{
		Config:     cfg,
		Forecaster: a.client,
		Canvas:     canvas,
		Bridge:     b,
		Location:   location.NewStatic(cfg.Overlay.Location),
		Clock:      a.clock,
		Logger:     logger,
		Metrics:    a.metrics,
		Output:     out,
		Rand:       rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		return nil, err
	}

	if opts.Serve != "" {
		router := bridge.NewRouter(a.hub, a.metrics, a.overlay.Status)
		a.server = bridge.NewServer(opts.Serve, router)
	}

	logger.Info("engine ready",
		"headless", opts.Headless,
		"serve", opts.Serve,
		"seed", seed,
		"view", a.cam.Bounds(),
	)
	return a, nil
}

// Overlay returns the engine.
func (a *App) Overlay() *overlay.Overlay {
	return a.overlay
}

// Unload releases the engine and any graphics resources.
func (a *App) Unload() {
	a.overlay.Close()
	if a.canvas != nil {
		a.canvas.Unload()
	}
	if err := a.output.Close(); err != nil {
		a.logger.Error("closing output", "error", err)
	}
}

// Mount starts the engine and, for in-process hosts, reports the first viewport.
func (a *App) Mount() {
	a.overlay.Mount()
	if a.host != nil {
		a.host.sync()
	}
}

// Tick advances one frame. In-process hosts exchange bridge messages first.
func (a *App) Tick(dt float64) {
	if a.host != nil {
		a.host.drain()
		a.host.sync()
	}
	a.overlay.Step(dt)
}

// serve runs the bridge hub and HTTP server until ctx is cancelled.
func (a *App) serve(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	if a.hub != nil {
		go func() {
			if err := a.hub.Run(ctx); err != nil {
				a.logger.Error("bridge hub stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("bridge server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down bridge server: %w", err)
	}
	return nil
}
