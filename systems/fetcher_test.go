package systems

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/field"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/weather"
)

type fakeForecaster struct {
	mu    sync.Mutex
	sizes []int
	fail  bool
	block chan struct{}
}

func (f *fakeForecaster) Forecast(ctx context.Context, points []geo.Point) ([]weather.Observation, error) {
	f.mu.Lock()
	f.sizes = append(f.sizes, len(points))
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, errors.New("boom")
	}
	obs := make([]weather.Observation, len(points))
	for i, p := range points {
		obs[i] = weather.Observation{Point: p, SpeedKmh: 36, DirectionDeg: 90}
	}
	return obs, nil
}

func (f *fakeForecaster) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int(nil), f.sizes...)
	sort.Ints(out)
	return out
}

func testFetcher(client Forecaster, grid *field.Grid) *Fetcher {
	return NewFetcher(
		config.FetchConfig{ChunkSize: 100, MaxConcurrent: 4},
		client, grid, clockwork.NewFakeClock(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func distinctPoints(n int) []geo.Point {
	points := make([]geo.Point, n)
	for i := range points {
		points[i] = geo.Point{Lat: float64(i/50) * 0.5, Lon: float64(i%50) * 0.5}
	}
	return points
}

func collect(t *testing.T, f *Fetcher, n int) []ChunkResult {
	t.Helper()
	out := make([]ChunkResult, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case r := <-f.Results():
			out = append(out, r)
		case <-timeout:
			t.Fatalf("timed out waiting for %d results, got %d", n, len(out))
		}
	}
	return out
}

func TestChunkSizes(t *testing.T) {
	chunks := Chunk(distinctPoints(250), 100)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)

	assert.Empty(t, Chunk(nil, 100))
}

func TestFetcherIssuesThreeChunksFor250Points(t *testing.T) {
	client := &fakeForecaster{}
	grid := field.NewGrid(0.5, 0)
	f := testFetcher(client, grid)

	issued := f.Fetch(context.Background(), distinctPoints(250))
	assert.Equal(t, 3, issued)

	results := collect(t, f, 3)
	assert.Equal(t, []int{50, 100, 100}, client.calls())

	total := 0
	for _, r := range results {
		total += f.Merge(r).Written
	}
	assert.Equal(t, 250, total)
	assert.Equal(t, 250, grid.Len())
	assert.Zero(t, f.InFlight())
}

func TestFetcherMergeConvertsUnits(t *testing.T) {
	client := &fakeForecaster{}
	grid := field.NewGrid(0.5, 0)
	f := testFetcher(client, grid)

	f.Fetch(context.Background(), []geo.Point{{Lat: 10, Lon: 20}})
	f.Merge(collect(t, f, 1)[0])

	v, ok := grid.Get(10, 20)
	require.True(t, ok)
	assert.InDelta(t, -10.0, v.U, 1e-9)
	assert.InDelta(t, 0.0, v.V, 1e-9)
}

func TestFetcherLoadedFiresOnce(t *testing.T) {
	client := &fakeForecaster{}
	f := testFetcher(client, field.NewGrid(0.5, 0))

	fired := 0
	f.OnLoaded(func() { fired++ })

	f.Fetch(context.Background(), distinctPoints(150))
	results := collect(t, f, 2)

	first := f.Merge(results[0])
	second := f.Merge(results[1])

	assert.Equal(t, 1, fired)
	assert.True(t, first.FirstData)
	assert.False(t, second.FirstData)
	assert.True(t, f.Loaded())
}

func TestFetcherFailureLeavesCellsMissing(t *testing.T) {
	client := &fakeForecaster{fail: true}
	grid := field.NewGrid(0.5, 0)
	f := testFetcher(client, grid)

	fired := false
	f.OnLoaded(func() { fired = true })

	points := distinctPoints(10)
	f.Fetch(context.Background(), points)
	stats := f.Merge(collect(t, f, 1)[0])

	assert.True(t, stats.Failed)
	assert.Zero(t, grid.Len())
	assert.False(t, fired)

	// Cells are no longer pending, so a later pass may request them again
	for _, p := range points {
		assert.False(t, f.IsPending(grid.Resolution().Cell(p.Lat, p.Lon)))
	}
	client.fail = false
	assert.Equal(t, 1, f.Fetch(context.Background(), points))
	collect(t, f, 1)
}

func TestFetcherDeduplicatesInFlight(t *testing.T) {
	client := &fakeForecaster{block: make(chan struct{})}
	grid := field.NewGrid(0.5, 0)
	f := testFetcher(client, grid)

	points := distinctPoints(30)
	assert.Equal(t, 1, f.Fetch(context.Background(), points))
	assert.Equal(t, 0, f.Fetch(context.Background(), points), "same cells are already pending")
	assert.Equal(t, 1, f.InFlight())

	for _, p := range points {
		assert.True(t, f.IsPending(grid.Resolution().Cell(p.Lat, p.Lon)))
	}

	close(client.block)
	f.Merge(collect(t, f, 1)[0])
	assert.Equal(t, []int{30}, client.calls())
	assert.Zero(t, f.InFlight())
}

func TestFetcherSkipsOnlyPendingSubset(t *testing.T) {
	client := &fakeForecaster{block: make(chan struct{})}
	f := testFetcher(client, field.NewGrid(0.5, 0))

	points := distinctPoints(20)
	f.Fetch(context.Background(), points[:10])
	assert.Equal(t, 1, f.Fetch(context.Background(), points))

	close(client.block)
	collect(t, f, 2)
	assert.Equal(t, []int{10, 10}, client.calls())
}

func TestSignatureUsesGridCells(t *testing.T) {
	a := Signature(0.5, []geo.Point{{Lat: 10.1, Lon: 20.1}, {Lat: 11, Lon: 21}})
	b := Signature(0.5, []geo.Point{{Lat: 10.2, Lon: 20.3}, {Lat: 11.4, Lon: 21.4}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Signature(0.5, []geo.Point{{Lat: 10.1, Lon: 20.1}}))
}
