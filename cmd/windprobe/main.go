// Windprobe fetches current wind over a rectangle through the same fetcher
// and grid the overlay uses, then prints speed statistics.
//
// Usage: go run ./cmd/windprobe -bounds 51,50,11,10 -csv wind.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jonboulle/clockwork"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/field"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/systems"
	"github.com/pthm-cable/windfield/telemetry"
	"github.com/pthm-cable/windfield/weather"
)

// probeRow is one sampled cell in the CSV output.
type probeRow struct {
	Lat          float64 `csv:"lat"`
	Lon          float64 `csv:"lon"`
	SpeedKmh     float64 `csv:"speed_kmh"`
	DirectionDeg float64 `csv:"direction_deg"`
	Cardinal     string  `csv:"cardinal"`
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	boundsFlag := flag.String("bounds", "", "north,south,east,west in degrees (empty = 1 degree around the initial view)")
	csvPath := flag.String("csv", "", "Write per-cell wind to this CSV file")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall deadline for all requests")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	bounds, err := parseBounds(*boundsFlag, cfg.Overlay.InitialView)
	if err != nil {
		logger.Error("invalid bounds", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res := cfg.Derived.Resolution
	cells := res.Cells(bounds)
	res.NearestFirst(cells, bounds.Center())
	points := make([]geo.Point, len(cells))
	for i, c := range cells {
		points[i] = res.Corner(c)
	}

	client := weather.NewClient(cfg.Weather, weather.WithLogger(logger))
	grid := field.NewGrid(res, 0)
	fetcher := systems.NewFetcher(cfg.Fetch, client, grid, clockwork.NewRealClock(), logger)

	start := time.Now()
	chunks := fetcher.Fetch(ctx, points)
	failed := 0
	for i := 0; i < chunks; i++ {
		select {
		case r := <-fetcher.Results():
			if fetcher.Merge(r).Failed {
				failed++
				logger.Warn("chunk failed", "points", len(r.Points), "error", r.Err)
			}
		case <-ctx.Done():
			logger.Error("gave up waiting for chunks", "received", i, "chunks", chunks)
			os.Exit(1)
		}
	}

	mean, std, p10, p50, p90 := telemetry.ComputeSpeedStats(grid.Speeds())
	fmt.Printf("cells: %d requested, %d with data, %d/%d chunks failed, %s\n",
		len(points), grid.Len(), failed, chunks, time.Since(start).Round(time.Millisecond))
	fmt.Printf("speed m/s: mean %.2f std %.2f p10 %.2f p50 %.2f p90 %.2f\n", mean, std, p10, p50, p90)

	if *csvPath != "" {
		if err := writeCSV(*csvPath, field.NewSampler(grid), points); err != nil {
			logger.Error("failed to write csv", "error", err)
			os.Exit(1)
		}
	}
}

func parseBounds(s string, view config.ViewConfig) (geo.Bounds, error) {
	if s == "" {
		return geo.Square(geo.Point{Lat: view.Lat, Lon: view.Lon}, 1), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Bounds{}, errors.New("want north,south,east,west")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Bounds{}, fmt.Errorf("parsing %q: %w", p, err)
		}
		v[i] = f
	}
	return geo.NewBounds(v[0], v[1], v[2], v[3])
}

func writeCSV(path string, sampler *field.Sampler, points []geo.Point) error {
	rows := make([]probeRow, 0, len(points))
	for _, p := range points {
		w := sampler.SampleGeo(p.Lat, p.Lon)
		rows = append(rows, probeRow{
			Lat:          p.Lat,
			Lon:          p.Lon,
			SpeedKmh:     w.Speed() * geo.KmhPerMs,
			DirectionDeg: w.Direction(),
			Cardinal:     geo.Cardinal(w.Direction()),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
