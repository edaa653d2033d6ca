package overlay

import (
	"time"

	"github.com/pthm-cable/windfield/telemetry"
)

// observeFrame updates the per-frame gauges.
func (o *Overlay) observeFrame(d time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.FrameSeconds.Observe(d.Seconds())
	o.metrics.GridCells.Set(float64(o.grid.Len()))
	o.metrics.InFlight.Set(float64(o.fetcher.InFlight()))
	o.metrics.Particles.Set(float64(o.particles.Count()))
}

// flushTelemetry logs and writes the stats window once it has elapsed.
func (o *Overlay) flushTelemetry() {
	if o.statsWindow <= 0 || o.lastFlush.IsZero() {
		return
	}
	now := o.clock.Now()
	if now.Sub(o.lastFlush) < o.statsWindow {
		return
	}
	o.lastFlush = now

	stats := o.FieldStats()
	perfStats := o.perf.Stats()
	o.window = window{}

	stats.LogStats(o.logger)
	perfStats.LogStats(o.logger)

	if err := o.output.WriteStats(stats); err != nil {
		o.logger.Error("failed to write stats", "error", err)
	}
	if err := o.output.WritePerf(perfStats, o.frame); err != nil {
		o.logger.Error("failed to write perf", "error", err)
	}
}

// FieldStats summarises the current window.
func (o *Overlay) FieldStats() telemetry.FieldStats {
	stats := telemetry.FieldStats{
		Frame:             o.frame,
		GridCells:         o.grid.Len(),
		InFlight:          o.fetcher.InFlight(),
		ChunksOK:          o.window.chunksOK,
		ChunksFailed:      o.window.chunksFailed,
		CellsWritten:      o.window.cellsWritten,
		Particles:         o.particles.Count(),
		ParticleSpeedMean: o.particles.MeanSpeed(),
		Opacity:           o.renderer.Opacity(),
	}
	if !o.mountedAt.IsZero() {
		stats.ElapsedSec = o.clock.Since(o.mountedAt).Seconds()
	}
	stats.FillSpeeds(o.grid.Speeds())
	return stats
}
