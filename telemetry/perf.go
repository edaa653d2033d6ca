package telemetry

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Phase names for one overlay Step, in the order the overlay runs them.
const (
	PhaseDrain    = "drain"    // Bridge messages, fetch results, location, loading fallback
	PhaseSchedule = "schedule" // Debounced viewport settle and fetch issue
	PhaseAdvect   = "advect"   // Field sampling and particle advection
	PhaseRender   = "render"   // Trail segments onto the canvas
	PhaseMarkers  = "markers"  // User marker and wind readout
)

var phaseOrder = [...]string{PhaseDrain, PhaseSchedule, PhaseAdvect, PhaseRender, PhaseMarkers}

const numPhases = len(phaseOrder)

// Phases returns the Step phases in execution order.
func Phases() []string {
	return append([]string(nil), phaseOrder[:]...)
}

func phaseIndex(name string) int {
	for i, p := range phaseOrder {
		if p == name {
			return i
		}
	}
	return -1
}

// stepSample is one Step's duration split across the fixed phases.
type stepSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector times overlay Steps over a ring of the most recent samples.
// Host frame pacing is measured separately by RecordFrame, since a paused
// overlay still sees frames but skips most phases.
type PerfCollector struct {
	clock clockwork.Clock
	ring  []stepSample
	next  int
	full  bool

	cur     stepSample
	began   time.Time
	mark    time.Time
	current int // index of the running phase, -1 when none

	prevFrame time.Time
	frameGap  time.Duration
}

// NewPerfCollector keeps the last window Steps. A nil clock uses wall time.
func NewPerfCollector(window int, clock clockwork.Clock) *PerfCollector {
	if window < 1 {
		window = 60
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PerfCollector{
		clock:   clock,
		ring:    make([]stepSample, window),
		current: -1,
	}
}

// StartTick opens a Step.
func (p *PerfCollector) StartTick() {
	now := p.clock.Now()
	p.cur = stepSample{}
	p.began, p.mark = now, now
	p.current = -1
}

// StartPhase closes the running phase and opens name. Unknown names count
// toward the Step total only.
func (p *PerfCollector) StartPhase(name string) {
	p.closePhase(p.clock.Now())
	p.current = phaseIndex(name)
}

// EndTick closes the Step and stores it in the ring.
func (p *PerfCollector) EndTick() {
	now := p.clock.Now()
	p.closePhase(now)
	p.current = -1
	p.cur.total = now.Sub(p.began)

	p.ring[p.next] = p.cur
	p.next++
	if p.next == len(p.ring) {
		p.next = 0
		p.full = true
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.current >= 0 {
		p.cur.phases[p.current] += now.Sub(p.mark)
	}
	p.mark = now
}

// RecordFrame notes a host frame boundary; the gap between the last two
// drives the FPS figure.
func (p *PerfCollector) RecordFrame() {
	now := p.clock.Now()
	if !p.prevFrame.IsZero() {
		p.frameGap = now.Sub(p.prevFrame)
	}
	p.prevFrame = now
}

func (p *PerfCollector) samples() []stepSample {
	if p.full {
		return p.ring
	}
	return p.ring[:p.next]
}

// PerfStats summarises the Steps currently in the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Mean time per phase, and its share of the mean Step
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		PhaseAvg:      make(map[string]time.Duration, numPhases),
		PhasePct:      make(map[string]float64, numPhases),
		FrameDuration: p.frameGap,
	}
	if p.frameGap > 0 {
		out.FPS = float64(time.Second) / float64(p.frameGap)
	}

	window := p.samples()
	if len(window) == 0 {
		return out
	}

	var total time.Duration
	var phases [numPhases]time.Duration
	out.MinTickDuration = window[0].total
	for _, s := range window {
		total += s.total
		out.MinTickDuration = min(out.MinTickDuration, s.total)
		out.MaxTickDuration = max(out.MaxTickDuration, s.total)
		for i, d := range s.phases {
			phases[i] += d
		}
	}

	n := time.Duration(len(window))
	out.AvgTickDuration = total / n
	if out.AvgTickDuration > 0 {
		out.TicksPerSecond = float64(time.Second) / float64(out.AvgTickDuration)
	}
	for i, name := range phaseOrder {
		if phases[i] == 0 {
			continue
		}
		avg := phases[i] / n
		out.PhaseAvg[name] = avg
		if out.AvgTickDuration > 0 {
			out.PhasePct[name] = float64(avg) / float64(out.AvgTickDuration) * 100
		}
	}
	return out
}

// LogStats writes one "perf" line. Phases under 0.1% are left out.
func (s PerfStats) LogStats(logger *slog.Logger) {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, name := range phaseOrder {
		if pct := s.PhasePct[name]; pct > 0.1 {
			attrs = append(attrs, name+"_pct", float64(int(pct*10))/10)
		}
	}
	logger.Info("perf", attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	Frame       int64   `csv:"frame"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	MinTickUS   int64   `csv:"min_tick_us"`
	MaxTickUS   int64   `csv:"max_tick_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	FPS         float64 `csv:"fps"`
	DrainPct    float64 `csv:"drain_pct"`
	SchedulePct float64 `csv:"schedule_pct"`
	AdvectPct   float64 `csv:"advect_pct"`
	RenderPct   float64 `csv:"render_pct"`
	MarkersPct  float64 `csv:"markers_pct"`
}

// ToCSV flattens the stats for the overlay frame they were taken at.
func (s PerfStats) ToCSV(frame int64) PerfStatsCSV {
	return PerfStatsCSV{
		Frame:       frame,
		AvgTickUS:   s.AvgTickDuration.Microseconds(),
		MinTickUS:   s.MinTickDuration.Microseconds(),
		MaxTickUS:   s.MaxTickDuration.Microseconds(),
		TicksPerSec: s.TicksPerSecond,
		FPS:         s.FPS,
		DrainPct:    s.PhasePct[PhaseDrain],
		SchedulePct: s.PhasePct[PhaseSchedule],
		AdvectPct:   s.PhasePct[PhaseAdvect],
		RenderPct:   s.PhasePct[PhaseRender],
		MarkersPct:  s.PhasePct[PhaseMarkers],
	}
}
