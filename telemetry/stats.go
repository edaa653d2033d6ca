package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FieldStats holds aggregated statistics for one reporting window.
type FieldStats struct {
	Frame      int64   `csv:"frame"`
	ElapsedSec float64 `csv:"elapsed_sec"`

	// Grid state at window end
	GridCells int `csv:"grid_cells"`
	InFlight  int `csv:"in_flight"`

	// Fetch activity during the window
	ChunksOK     int `csv:"chunks_ok"`
	ChunksFailed int `csv:"chunks_failed"`
	CellsWritten int `csv:"cells_written"`

	// Wind speed distribution over the grid, m/s
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Particles at window end
	Particles         int     `csv:"particles"`
	ParticleSpeedMean float64 `csv:"particle_speed_mean"`
	Opacity           float64 `csv:"opacity"`
}

// ComputeSpeedStats calculates mean, sample standard deviation and
// percentiles. values is not modified.
func ComputeSpeedStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}
	if n == 1 {
		return values[0], 0, values[0], values[0], values[0]
	}

	mean, std = stat.MeanStdDev(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.LinInterp, sorted, nil)
	p50 = stat.Quantile(0.50, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.90, stat.LinInterp, sorted, nil)
	return mean, std, p10, p50, p90
}

// FillSpeeds populates the speed distribution fields from grid speeds.
func (s *FieldStats) FillSpeeds(speeds []float64) {
	s.SpeedMean, s.SpeedStd, s.SpeedP10, s.SpeedP50, s.SpeedP90 = ComputeSpeedStats(speeds)
}

// LogValue implements slog.LogValuer for structured logging.
func (s FieldStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("frame", s.Frame),
		slog.Float64("elapsed_sec", s.ElapsedSec),
		slog.Int("grid_cells", s.GridCells),
		slog.Int("in_flight", s.InFlight),
		slog.Int("chunks_ok", s.ChunksOK),
		slog.Int("chunks_failed", s.ChunksFailed),
		slog.Int("cells_written", s.CellsWritten),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Int("particles", s.Particles),
		slog.Float64("particle_speed_mean", s.ParticleSpeedMean),
		slog.Float64("opacity", s.Opacity),
	)
}

// LogStats logs the window stats.
func (s FieldStats) LogStats(logger *slog.Logger) {
	logger.Info("stats", "window", s)
}
