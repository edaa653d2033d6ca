package systems

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/field"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/weather"
)

// resultBuffer bounds completed chunks waiting for the owning loop to merge them.
const resultBuffer = 64

// Forecaster fetches current wind for a batch of points.
type Forecaster interface {
	Forecast(ctx context.Context, points []geo.Point) ([]weather.Observation, error)
}

// ChunkResult is one completed request, delivered to the owning loop.
type ChunkResult struct {
	Signature    string
	Points       []geo.Point
	Observations []weather.Observation
	Err          error
	Duration     time.Duration
}

// MergeStats describes what a merge wrote into the grid.
type MergeStats struct {
	Written    int
	FirstData  bool // The grid went from empty to populated
	Failed     bool
	ChunkSize  int
	Duration   time.Duration
	InFlight   int
	GridLength int
}

// Fetcher batches points into forecast requests and merges results into the grid.
//
// Fetch and Merge are called from the owning loop only; request goroutines
// never touch the grid and hand results back over Results().
type Fetcher struct {
	client        Forecaster
	grid          *field.Grid
	clock         clockwork.Clock
	logger        *slog.Logger
	chunkSize     int
	maxConcurrent int

	results  chan ChunkResult
	inflight map[string]struct{}
	pending  map[geo.Cell]int
	loaded   bool
	onLoaded func()
}

// NewFetcher creates a fetcher writing into grid.
func NewFetcher(cfg config.FetchConfig, client Forecaster, grid *field.Grid, clock clockwork.Clock, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	size := cfg.ChunkSize
	if size <= 0 || size > config.MaxChunkSize {
		size = config.MaxChunkSize
	}
	conc := cfg.MaxConcurrent
	if conc <= 0 {
		conc = 1
	}
	return &Fetcher{
		client:        client,
		grid:          grid,
		clock:         clock,
		logger:        logger,
		chunkSize:     size,
		maxConcurrent: conc,
		results:       make(chan ChunkResult, resultBuffer),
		inflight:      make(map[string]struct{}),
		pending:       make(map[geo.Cell]int),
	}
}

// OnLoaded registers a callback fired once, from Merge, when the first
// vector lands in an empty grid.
func (f *Fetcher) OnLoaded(fn func()) {
	f.onLoaded = fn
}

// Loaded reports whether real data has been merged.
func (f *Fetcher) Loaded() bool {
	return f.loaded
}

// Results delivers completed chunks. The owning loop drains it and calls Merge.
func (f *Fetcher) Results() <-chan ChunkResult {
	return f.results
}

// IsPending reports whether a cell is covered by an outstanding request.
func (f *Fetcher) IsPending(c geo.Cell) bool {
	return f.pending[c] > 0
}

// InFlight returns the number of outstanding chunks.
func (f *Fetcher) InFlight() int {
	return len(f.inflight)
}

// Chunk splits points into batches of at most size.
func Chunk(points []geo.Point, size int) [][]geo.Point {
	if size <= 0 {
		size = config.MaxChunkSize
	}
	chunks := make([][]geo.Point, 0, (len(points)+size-1)/size)
	for start := 0; start < len(points); start += size {
		end := min(start+size, len(points))
		chunks = append(chunks, points[start:end])
	}
	return chunks
}

// Signature identifies a chunk by its coordinates at grid resolution.
func Signature(res geo.Resolution, points []geo.Point) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(';')
		}
		c := res.Cell(p.Lat, p.Lon)
		b.WriteString(strconv.Itoa(c.Lat))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(c.Lon))
	}
	return b.String()
}

// Fetch issues one request per chunk without blocking the caller. Chunks whose
// signature is already outstanding, and points whose cell is pending, are skipped.
// Returns the number of chunks issued.
func (f *Fetcher) Fetch(ctx context.Context, points []geo.Point) int {
	res := f.grid.Resolution()

	fresh := make([]geo.Point, 0, len(points))
	for _, p := range points {
		if !f.IsPending(res.Cell(p.Lat, p.Lon)) {
			fresh = append(fresh, p)
		}
	}

	type job struct {
		sig    string
		points []geo.Point
	}
	var jobs []job
	for _, ch := range Chunk(fresh, f.chunkSize) {
		sig := Signature(res, ch)
		if _, ok := f.inflight[sig]; ok {
			continue
		}
		f.inflight[sig] = struct{}{}
		for _, p := range ch {
			f.pending[res.Cell(p.Lat, p.Lon)]++
		}
		jobs = append(jobs, job{sig: sig, points: ch})
	}
	if len(jobs) == 0 {
		return 0
	}

	f.logger.Debug("fetching chunks", "chunks", len(jobs), "points", len(fresh))

	go func() {
		var g errgroup.Group
		g.SetLimit(f.maxConcurrent)
		for _, j := range jobs {
			j := j // per-iteration copy; go.mod targets go1.21 loop semantics
			g.Go(func() error {
				start := f.clock.Now()
				obs, err := f.client.Forecast(ctx, j.points)
				r := ChunkResult{
					Signature:    j.sig,
					Points:       j.points,
					Observations: obs,
					Err:          err,
					Duration:     f.clock.Since(start),
				}
				select {
				case f.results <- r:
				case <-ctx.Done():
				}
				// Chunk failures are reported through the result, not the group
				return nil
			})
		}
		_ = g.Wait()
	}()

	return len(jobs)
}

// Merge writes a completed chunk into the grid and clears its pending state.
func (f *Fetcher) Merge(r ChunkResult) MergeStats {
	res := f.grid.Resolution()
	delete(f.inflight, r.Signature)
	for _, p := range r.Points {
		c := res.Cell(p.Lat, p.Lon)
		if f.pending[c] <= 1 {
			delete(f.pending, c)
		} else {
			f.pending[c]--
		}
	}

	stats := MergeStats{
		ChunkSize: len(r.Points),
		Duration:  r.Duration,
	}

	if r.Err != nil {
		// Cells stay absent and are picked up by the next scheduler pass
		f.logger.Debug("chunk dropped", "points", len(r.Points), "error", r.Err)
		stats.Failed = true
	} else {
		wasEmpty := f.grid.Len() == 0
		for _, o := range r.Observations {
			f.grid.Set(o.Point.Lat, o.Point.Lon, o.Wind())
			stats.Written++
		}
		if !f.loaded && wasEmpty && stats.Written > 0 {
			f.loaded = true
			stats.FirstData = true
			if f.onLoaded != nil {
				f.onLoaded()
			}
		}
	}

	stats.InFlight = len(f.inflight)
	stats.GridLength = f.grid.Len()
	return stats
}
