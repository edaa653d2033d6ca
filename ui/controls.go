package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsState is what the panel shows.
type ControlsState struct {
	Dark     bool
	Paused   bool
	ShowPerf bool
}

// ControlsActions reports what the user clicked this frame.
type ControlsActions struct {
	Dark        bool
	Paused      bool
	ShowPerf    bool
	Restart     bool
	RecenterMap bool
}

// Changed reports whether any toggle differs from st or a button was pressed.
func (a ControlsActions) Changed(st ControlsState) bool {
	return a.Restart || a.RecenterMap ||
		a.Dark != st.Dark || a.Paused != st.Paused || a.ShowPerf != st.ShowPerf
}

// ControlsPanel renders the right-side panel with raygui toggles and buttons.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel and returns the resulting control values.
func (c *ControlsPanel) Draw(st ControlsState) ControlsActions {
	act := ControlsActions{Dark: st.Dark, Paused: st.Paused, ShowPerf: st.ShowPerf}
	if !c.visible {
		return act
	}

	r := c.renderer
	padding := r.Theme.Padding
	rowH := float32(24)
	panelHeight := int32(rowH)*5 + padding*3

	r.DrawPanel(c.x, c.y, c.width, panelHeight)
	y := r.DrawSectionHeader(c.x+padding, c.y+padding, "Controls")

	row := func() rl.Rectangle {
		rect := rl.Rectangle{
			X:      float32(c.x + padding),
			Y:      float32(y),
			Width:  float32(c.width - padding*2),
			Height: rowH - 4,
		}
		y += int32(rowH)
		return rect
	}

	act.Dark = gui.Toggle(row(), toggleText(st.Dark, "Dark map", "Light map"), st.Dark)
	act.Paused = gui.Toggle(row(), toggleText(st.Paused, "Resume", "Pause"), st.Paused)
	act.ShowPerf = gui.Toggle(row(), "Perf panel", st.ShowPerf)
	act.Restart = gui.Button(row(), "Restart animation")
	act.RecenterMap = gui.Button(row(), "Recenter")

	return act
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
