package ui

import (
	"strings"
	"testing"
)

func TestHUDStatusText(t *testing.T) {
	tests := []struct {
		name string
		data HUDData
		want string
	}{
		{"running", HUDData{State: "running"}, "running"},
		{"loading", HUDData{State: "loading", Loading: true}, "loading"},
		{"paused while loading", HUDData{State: "paused", Loading: true}, "paused (loading)"},
		{"error", HUDData{State: "error", Message: "map failed"}, "error: map failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.data.StatusText(); got != tt.want {
				t.Errorf("StatusText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHUDLines(t *testing.T) {
	d := HUDData{Particles: 1200, GridCells: 40, InFlight: 2, Lat: 52.5, Lon: 13.4, Zoom: 7, FPS: 60}
	lines := d.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines without a readout, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "Particles: 1200") || !strings.Contains(lines[0], "In flight: 2") {
		t.Errorf("unexpected counts line %q", lines[0])
	}
	if !strings.Contains(lines[1], "52.500, 13.400") {
		t.Errorf("unexpected position line %q", lines[1])
	}

	d.Readout = "12 km/h"
	if lines := d.Lines(); len(lines) != 3 || lines[2] != "Here: 12 km/h" {
		t.Errorf("readout line missing: %v", lines)
	}
}

func TestControlsActionsChanged(t *testing.T) {
	st := ControlsState{Dark: true}
	if (ControlsActions{Dark: true}).Changed(st) {
		t.Error("identical toggles should not count as a change")
	}
	if !(ControlsActions{Dark: false}).Changed(st) {
		t.Error("flipped toggle should count as a change")
	}
	if !(ControlsActions{Dark: true, Restart: true}).Changed(st) {
		t.Error("button press should count as a change")
	}
}
