package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pc := NewPerfCollector(10, clock)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDrain)
		clock.Advance(100 * time.Microsecond)
		pc.StartPhase(PhaseAdvect)
		clock.Advance(300 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration != 400*time.Microsecond {
		t.Errorf("avg tick = %v, want 400us", stats.AvgTickDuration)
	}
	if stats.PhaseAvg[PhaseDrain] != 100*time.Microsecond {
		t.Errorf("drain avg = %v, want 100us", stats.PhaseAvg[PhaseDrain])
	}
	if stats.PhaseAvg[PhaseAdvect] != 300*time.Microsecond {
		t.Errorf("advect avg = %v, want 300us", stats.PhaseAvg[PhaseAdvect])
	}
	if stats.PhasePct[PhaseAdvect] != 75 {
		t.Errorf("advect pct = %v, want 75", stats.PhasePct[PhaseAdvect])
	}
	if stats.TicksPerSecond != 2500 {
		t.Errorf("ticks/sec = %v, want 2500", stats.TicksPerSecond)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pc := NewPerfCollector(5, clock)

	// Slow frames first, then enough fast frames to push them out
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseRender)
		clock.Advance(10 * time.Millisecond)
		pc.EndTick()
	}
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseRender)
		clock.Advance(time.Millisecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.MaxTickDuration != time.Millisecond {
		t.Errorf("max tick = %v, slow frames should have left the window", stats.MaxTickDuration)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10, clockwork.NewFakeClock())

	stats := pc.Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pc := NewPerfCollector(10, clock)

	pc.RecordFrame()
	clock.Advance(20 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration != 20*time.Millisecond {
		t.Errorf("frame duration = %v, want 20ms", stats.FrameDuration)
	}
	if stats.FPS != 50 {
		t.Errorf("fps = %v, want 50", stats.FPS)
	}
}

func TestPerfStats_ToCSVAndLog(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pc := NewPerfCollector(4, clock)
	pc.StartTick()
	pc.StartPhase(PhaseSchedule)
	clock.Advance(time.Millisecond)
	pc.StartPhase(PhaseMarkers)
	clock.Advance(time.Millisecond)
	pc.EndTick()

	stats := pc.Stats()
	row := stats.ToCSV(42)
	if row.Frame != 42 || row.SchedulePct != 50 || row.MarkersPct != 50 {
		t.Errorf("unexpected csv row %+v", row)
	}

	var buf bytes.Buffer
	stats.LogStats(slog.New(slog.NewTextHandler(&buf, nil)))
	if !strings.Contains(buf.String(), "schedule_pct=50") {
		t.Errorf("log line missing phase pct: %s", buf.String())
	}
}

func TestPerfCollector_UnknownPhaseCountsTowardTotal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pc := NewPerfCollector(3, clock)

	pc.StartTick()
	pc.StartPhase("gc")
	clock.Advance(time.Millisecond)
	pc.StartPhase(PhaseAdvect)
	clock.Advance(time.Millisecond)
	pc.EndTick()

	stats := pc.Stats()
	if stats.AvgTickDuration != 2*time.Millisecond {
		t.Errorf("avg tick = %v, want 2ms", stats.AvgTickDuration)
	}
	if _, ok := stats.PhaseAvg["gc"]; ok {
		t.Error("unknown phase should not be reported")
	}
	if stats.PhasePct[PhaseAdvect] != 50 {
		t.Errorf("advect pct = %v, want 50", stats.PhasePct[PhaseAdvect])
	}
}
