package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windfield/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	State     string
	Message   string
	Loading   bool
	Particles int
	GridCells int
	InFlight  int
	Opacity   float64
	Lat, Lon  float64
	Zoom      float64
	FPS       int32
	Readout   string
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Lines returns the HUD text below the title, top to bottom.
func (d HUDData) Lines() []string {
	lines := []string{
		fmt.Sprintf("Particles: %d | Cells: %d | In flight: %d", d.Particles, d.GridCells, d.InFlight),
		fmt.Sprintf("%.3f, %.3f | Zoom: %.1f | FPS: %d", d.Lat, d.Lon, d.Zoom, d.FPS),
	}
	if d.Readout != "" {
		lines = append(lines, "Here: "+d.Readout)
	}
	return lines
}

// StatusText is the status line, with the loading flag and any message.
func (d HUDData) StatusText() string {
	text := d.State
	if d.Loading && d.State != "loading" {
		text += " (loading)"
	}
	if d.Message != "" {
		text += ": " + d.Message
	}
	return text
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	y := int32(35)
	for _, line := range data.Lines() {
		rl.DrawText(line, 10, y, 16, rl.LightGray)
		y += 20
	}

	rl.DrawText(data.StatusText(), 10, y, 16, h.statusColor(data.State))
	y += 20

	h.renderer.DrawBar(10, y, "Opacity", float32(data.Opacity), 240)
}

func (h *HUD) statusColor(state string) rl.Color {
	switch state {
	case "error":
		return h.renderer.Theme.ErrorColor
	case "paused", "stopped", "loading":
		return h.renderer.Theme.WarnColor
	default:
		return rl.Yellow
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase frame timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Frame Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Tick: %s (max %s)", stats.AvgTickDuration.Round(time.Microsecond),
		stats.MaxTickDuration.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16

	for _, phase := range telemetry.Phases() {
		avg := stats.PhaseAvg[phase]
		pct := stats.PhasePct[phase]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", phase, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
