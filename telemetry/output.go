package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/windfield/config"
)

// FetchRecord is one chunk request outcome, written to fetches.csv.
type FetchRecord struct {
	Frame      int64   `csv:"frame"`
	Points     int     `csv:"points"`
	Written    int     `csv:"written"`
	Failed     bool    `csv:"failed"`
	Error      string  `csv:"error"`
	DurationMS float64 `csv:"duration_ms"`
	InFlight   int     `csv:"in_flight"`
	GridCells  int     `csv:"grid_cells"`
}

// NewFetchRecord builds a record from merge results.
func NewFetchRecord(frame int64, points, written, inFlight, gridCells int, d time.Duration, err error) FetchRecord {
	r := FetchRecord{
		Frame:      frame,
		Points:     points,
		Written:    written,
		DurationMS: float64(d.Microseconds()) / 1000,
		InFlight:   inFlight,
		GridCells:  gridCells,
	}
	if err != nil {
		r.Failed = true
		r.Error = err.Error()
	}
	return r
}

// csvFile is an output CSV whose header is written with the first record.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles session output with CSV logging.
type OutputManager struct {
	dir     string
	stats   *csvFile
	perf    *csvFile
	fetches *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **csvFile
	}{
		{"stats.csv", &om.stats},
		{"perf.csv", &om.perf},
		{"fetches.csv", &om.fetches},
	}
	for _, fs := range files {
		f, err := os.Create(filepath.Join(dir, fs.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", fs.name, err)
		}
		*fs.dst = &csvFile{f: f}
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteStats writes a window stats record to stats.csv.
func (om *OutputManager) WriteStats(stats FieldStats) error {
	if om == nil {
		return nil
	}
	if err := om.stats.write([]FieldStats{stats}); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, frame int64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(frame)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteFetch writes a chunk outcome to fetches.csv.
func (om *OutputManager) WriteFetch(r FetchRecord) error {
	if om == nil {
		return nil
	}
	if err := om.fetches.write([]FetchRecord{r}); err != nil {
		return fmt.Errorf("writing fetch: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.stats, om.perf, om.fetches} {
		if c == nil || c.f == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
