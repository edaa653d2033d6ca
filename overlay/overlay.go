// Package overlay owns one mounted wind field: the grid cache and every
// component that reads or writes it.
//
// All state is mutated from the goroutine that calls Step. Fetch requests
// and location lookups run elsewhere and hand their results back over
// channels that Step drains.
package overlay

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pthm-cable/windfield/bridge"
	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/field"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/location"
	"github.com/pthm-cable/windfield/renderer"
	"github.com/pthm-cable/windfield/systems"
	"github.com/pthm-cable/windfield/telemetry"
)

// Status states reported to the map host.
const (
	StateLoading = "loading"
	StateRunning = "running"
	StatePaused  = "paused"
	StateStopped = "stopped"
	StateError   = "error"
)

// Bridge is the message boundary to the map host.
type Bridge interface {
	Inbound() <-chan bridge.Inbound
	Send(m bridge.Outbound) error
}

// Deps are the collaborators of an overlay. Forecaster, Canvas and Config
// are required.
type Deps struct {
	Config     *config.Config
	Forecaster systems.Forecaster
	Canvas     renderer.Canvas
	Bridge     Bridge            // nil: no map host
	Location   location.Provider // nil: always ask the map host
	Clock      clockwork.Clock
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
	Output     *telemetry.OutputManager
	Rand       *rand.Rand
}

type viewport struct {
	bounds geo.Bounds
	zoom   float64
}

// window accumulates fetch activity between stats flushes.
type window struct {
	chunksOK     int
	chunksFailed int
	cellsWritten int
}

// Overlay is one mounted wind field.
type Overlay struct {
	cfg     *config.Config
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *telemetry.Metrics
	output  *telemetry.OutputManager
	bridge  Bridge

	grid      *field.Grid
	sampler   *field.Sampler
	scheduler *systems.Scheduler
	fetcher   *systems.Fetcher
	particles *systems.ParticleSystem
	renderer  *renderer.Renderer
	resolver  *location.Resolver
	perf      *telemetry.PerfCollector

	debounce *systems.Debouncer[viewport]
	fallback clockwork.Timer

	ctx    context.Context
	cancel context.CancelFunc

	loop     Loop
	view     viewport
	hasView  bool
	user     *geo.Point
	loading  bool
	errMsg   string
	status   bridge.Status
	lastDraw renderer.FrameStats

	frame       int64
	mountedAt   time.Time
	lastFlush   time.Time
	window      window
	statsWindow time.Duration
}

// New builds an overlay and its grid cache. The overlay is Idle until Mount.
func New(ctx context.Context, d Deps) (*Overlay, error) {
	if d.Config == nil || d.Forecaster == nil || d.Canvas == nil {
		return nil, errors.New("overlay: config, forecaster and canvas are required")
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	cfg := d.Config

	rnd, err := renderer.NewRenderer(cfg.Render, cfg.Particles.MaxAge, d.Canvas)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	o := &Overlay{
		cfg:      cfg,
		clock:    d.Clock,
		logger:   d.Logger,
		metrics:  d.Metrics,
		output:   d.Output,
		bridge:   d.Bridge,
		renderer: rnd,
		resolver: location.NewResolver(d.Location, location.DefaultTimeout, d.Logger),
		perf:     telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow, d.Clock),
		debounce: systems.NewDebouncer[viewport](d.Clock, cfg.Scheduler.Debounce),
		ctx:      ctx,
		cancel:   cancel,
		view:     viewport{zoom: cfg.Overlay.InitialView.Zoom},
	}

	o.grid = field.NewGrid(cfg.Derived.Resolution, cfg.Grid.MaxCells)
	o.sampler = field.NewSampler(o.grid)
	o.fetcher = systems.NewFetcher(cfg.Fetch, d.Forecaster, o.grid, d.Clock, d.Logger)
	o.fetcher.OnLoaded(o.onDataLoaded)
	o.scheduler = systems.NewScheduler(cfg.Scheduler, o.grid, o.fetcher, d.Logger)
	o.particles = systems.NewParticleSystem(cfg.Particles, o.sampler, d.Canvas.Size(), o.view.zoom, d.Rand)
	o.renderer.SetZoom(o.view.zoom)
	o.renderer.SetDark(cfg.Render.Dark)

	o.statsWindow = time.Duration(cfg.Telemetry.StatsWindow * float64(time.Second))
	o.status = bridge.Status{State: StateStopped}
	return o, nil
}

// Mount starts the frame loop, the loading fallback and the location lookup.
func (o *Overlay) Mount() {
	if !o.loop.Start() {
		return
	}
	now := o.clock.Now()
	o.mountedAt = now
	o.lastFlush = now
	o.loading = true
	if o.cfg.Overlay.LoadingFallback > 0 {
		o.fallback = o.clock.NewTimer(o.cfg.Overlay.LoadingFallback)
	}
	o.resolver.Resolve(o.ctx)
	o.logger.Info("overlay mounted",
		"resolution", float64(o.grid.Resolution()),
		"particles", o.particles.Count())
	o.refreshStatus()
}

// Close stops the loop and abandons outstanding requests.
func (o *Overlay) Close() {
	o.loop.Stop()
	o.debounce.Stop()
	if o.fallback != nil {
		o.fallback.Stop()
		o.fallback = nil
	}
	o.cancel()
	o.refreshStatus()
}

// Step runs one frame: drain every queue, settle the viewport, then advance
// and draw the field when the loop is running.
func (o *Overlay) Step(dt float64) renderer.FrameStats {
	start := o.clock.Now()
	o.perf.RecordFrame()
	o.perf.StartTick()

	o.perf.StartPhase(telemetry.PhaseDrain)
	o.drainBridge()
	o.drainResults()
	o.drainLocation()
	o.checkFallback()

	o.perf.StartPhase(telemetry.PhaseSchedule)
	if v, ok := o.debounce.Poll(); ok {
		o.settle(v)
	}

	var stats renderer.FrameStats
	if o.loop.State() == Running {
		if size := o.renderer.Canvas().Size(); size != o.particles.Canvas() {
			o.particles.Resize(size, o.view.zoom)
		}

		o.perf.StartPhase(telemetry.PhaseAdvect)
		o.particles.Tick(dt)

		o.perf.StartPhase(telemetry.PhaseRender)
		canvas := o.renderer.Canvas()
		canvas.BeginFrame()
		stats = o.renderer.RenderFrame(o.particles.Particles, o.fetcher.InFlight() > 0)

		o.perf.StartPhase(telemetry.PhaseMarkers)
		o.drawMarkers()
		canvas.EndFrame()
		o.lastDraw = stats
	}
	o.perf.EndTick()

	o.frame++
	o.observeFrame(o.clock.Since(start))
	o.flushTelemetry()
	return stats
}

// Status returns the state last reported to the map host.
func (o *Overlay) Status() bridge.Status {
	return o.status
}

// Loop returns the frame loop state.
func (o *Overlay) Loop() LoopState {
	return o.loop.State()
}

// Loading reports whether the loading indicator should be shown.
func (o *Overlay) Loading() bool {
	return o.loading
}

// Grid returns the overlay's wind grid.
func (o *Overlay) Grid() *field.Grid {
	return o.grid
}

// Particles returns the particle system.
func (o *Overlay) Particles() *systems.ParticleSystem {
	return o.particles
}

// Renderer returns the trail renderer.
func (o *Overlay) Renderer() *renderer.Renderer {
	return o.renderer
}

// WindAt samples the field at p.
func (o *Overlay) WindAt(p geo.Point) geo.WindVector {
	return o.sampler.SampleGeo(p.Lat, p.Lon)
}

// Scheduler returns the viewport fetch scheduler.
func (o *Overlay) Scheduler() *systems.Scheduler {
	return o.scheduler
}

// InFlight returns the number of outstanding forecast chunks.
func (o *Overlay) InFlight() int {
	return o.fetcher.InFlight()
}

// User returns the known user location.
func (o *Overlay) User() (geo.Point, bool) {
	if o.user == nil {
		return geo.Point{}, false
	}
	return *o.user, true
}

// Frame returns the number of steps run.
func (o *Overlay) Frame() int64 {
	return o.frame
}

// Perf returns rolling frame timings.
func (o *Overlay) Perf() telemetry.PerfStats {
	return o.perf.Stats()
}

// LastFrame returns the stats of the last drawn frame.
func (o *Overlay) LastFrame() renderer.FrameStats {
	return o.lastDraw
}

func (o *Overlay) drainBridge() {
	if o.bridge == nil {
		return
	}
	for {
		select {
		case m := <-o.bridge.Inbound():
			o.Handle(m)
		default:
			return
		}
	}
}

func (o *Overlay) drainResults() {
	for {
		select {
		case r := <-o.fetcher.Results():
			o.merge(r)
		default:
			return
		}
	}
}

func (o *Overlay) drainLocation() {
	select {
	case res := <-o.resolver.Results():
		if res.Err != nil {
			o.logger.Info("location provider unavailable, asking map host", "err", res.Err)
			if o.bridge == nil {
				o.errMsg = errLocation
				o.refreshStatus()
				return
			}
			o.send(bridge.RequestLocation{})
			return
		}
		o.locate(res.Point, true)
	default:
	}
}

// checkFallback clears the loading state once the fallback timer fires,
// whether or not any data arrived.
func (o *Overlay) checkFallback() {
	if o.fallback == nil {
		return
	}
	select {
	case <-o.fallback.Chan():
		o.fallback = nil
		if o.loading {
			o.logger.Info("loading fallback elapsed", "grid_cells", o.grid.Len(), "in_flight", o.fetcher.InFlight())
			o.loading = false
			o.refreshStatus()
		}
	default:
	}
}

func (o *Overlay) onDataLoaded() {
	o.logger.Info("wind data loaded", "grid_cells", o.grid.Len())
	o.loading = false
	if o.fallback != nil {
		o.fallback.Stop()
		o.fallback = nil
	}
	o.refreshStatus()
}

// settle runs the scheduler for a settled viewport and issues the fetch.
func (o *Overlay) settle(v viewport) {
	points := o.scheduler.OnViewportSettled(v.bounds, v.zoom, o.user)
	if len(points) == 0 {
		return
	}
	chunks := o.fetcher.Fetch(o.ctx, points)
	o.logger.Debug("viewport settled", "zoom", v.zoom, "cells", len(points), "chunks", chunks)
}

func (o *Overlay) merge(r systems.ChunkResult) {
	stats := o.fetcher.Merge(r)
	if stats.Failed {
		o.window.chunksFailed++
	} else {
		o.window.chunksOK++
	}
	o.window.cellsWritten += stats.Written
	o.metrics.ObserveChunk(stats.Written, stats.Duration.Seconds(), stats.Failed)

	rec := telemetry.NewFetchRecord(o.frame, stats.ChunkSize, stats.Written, stats.InFlight, stats.GridLength, stats.Duration, r.Err)
	if err := o.output.WriteFetch(rec); err != nil {
		o.logger.Error("failed to write fetch record", "error", err)
	}
}

// locate records the user position. fly asks the map host to centre on it.
func (o *Overlay) locate(p geo.Point, fly bool) {
	o.user = &p
	if o.errMsg == errLocation {
		o.errMsg = ""
	}
	o.logger.Info("user location", "lat", p.Lat, "lon", p.Lon)
	if fly {
		o.send(bridge.NewFlyTo(p, o.view.zoom))
	}
	// A first fetch around the user only makes sense before anything was requested
	if o.hasView && o.scheduler.FetchedBounds().IsZero() && !o.debounce.Pending() {
		o.settle(o.view)
	}
	o.refreshStatus()
}

func (o *Overlay) drawMarkers() {
	if o.user == nil || !o.hasView {
		return
	}
	wind := o.sampler.SampleGeo(o.user.Lat, o.user.Lon)
	o.renderer.DrawMarkers(*o.user, wind, o.grid.Len() > 0, o.view.bounds)
}

func (o *Overlay) send(m bridge.Outbound) {
	if o.bridge == nil {
		return
	}
	if err := o.bridge.Send(m); err != nil {
		o.logger.Warn("bridge send failed", "type", m.Type(), "err", err)
	}
}

// refreshStatus derives the status from the loop, loading and error state
// and forwards it to the map host when it changed.
func (o *Overlay) refreshStatus() {
	var s bridge.Status
	switch {
	case o.errMsg != "":
		s = bridge.Status{State: StateError, Message: o.errMsg}
	case o.loop.State() == Idle:
		s = bridge.Status{State: StateStopped}
	case o.loop.State() == Paused:
		s = bridge.Status{State: StatePaused}
	case o.loading:
		s = bridge.Status{State: StateLoading}
	default:
		s = bridge.Status{State: StateRunning}
	}
	if s == o.status {
		return
	}
	o.status = s
	o.logger.Info("status", "state", s.State, "message", s.Message)
	o.send(s)
}
