// Palette preview tool - shows the wind speed palettes with sliders for
// speed and direction.
//
// Usage: go run ./cmd/palettepreview
package main

import (
	"fmt"
	"image/color"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
	"github.com/pthm-cable/windfield/renderer"
)

const (
	windowWidth  = 900
	windowHeight = 420
	rampX        = 20
	rampWidth    = windowWidth - 40
	rampHeight   = 40
	maxSpeed     = 35.0 // m/s shown across the ramp
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	light := renderer.MustPalette(renderer.SpeedBreakpoints, renderer.LightPalette)
	dark := renderer.MustPalette(renderer.SpeedBreakpoints, renderer.DarkPalette)

	rl.InitWindow(windowWidth, windowHeight, "Wind Palette Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	speed := float32(10)
	direction := float32(270)
	useDark := cfg.Render.Dark

	for !rl.WindowShouldClose() {
		palette := light
		bg := rl.RayWhite
		if useDark {
			palette = dark
			bg = rl.Color{R: 18, G: 22, B: 30, A: 255}
		}

		rl.BeginDrawing()
		rl.ClearBackground(bg)

		// Ramp, one column per pixel
		for x := 0; x < rampWidth; x++ {
			s := float64(x) / rampWidth * maxSpeed
			rl.DrawLine(int32(rampX+x), 20, int32(rampX+x), 20+rampHeight, toRL(palette.At(s)))
		}
		for _, bp := range renderer.SpeedBreakpoints {
			x := int32(rampX + bp/maxSpeed*rampWidth)
			rl.DrawLine(x, 20+rampHeight, x, 28+rampHeight, rl.Gray)
			rl.DrawText(fmt.Sprintf("%.0f", bp), x-4, 32+rampHeight, 12, rl.Gray)
		}

		// Selected speed marker and swatch
		mx := int32(rampX + float64(speed)/maxSpeed*rampWidth)
		rl.DrawTriangle(
			rl.Vector2{X: float32(mx), Y: 18},
			rl.Vector2{X: float32(mx) - 6, Y: 8},
			rl.Vector2{X: float32(mx) + 6, Y: 8},
			rl.Red,
		)
		wind := geo.FromSpeedDirection(float64(speed), float64(direction))
		rl.DrawRectangle(rampX, 120, 80, 80, toRL(palette.At(float64(speed))))
		rl.DrawText(renderer.Readout(wind), rampX+100, 130, 20, rl.Gray)
		rl.DrawText(fmt.Sprintf("u=%.2f v=%.2f m/s", wind.U, wind.V), rampX+100, 160, 16, rl.Gray)

		// Controls
		panelY := float32(230)
		speed = gui.SliderBar(rl.Rectangle{X: 120, Y: panelY, Width: 500, Height: 20}, "Speed m/s", fmt.Sprintf("%.1f", speed), speed, 0, maxSpeed)
		panelY += 30
		direction = gui.SliderBar(rl.Rectangle{X: 120, Y: panelY, Width: 500, Height: 20}, "From deg", fmt.Sprintf("%.0f", direction), direction, 0, 359)
		panelY += 40
		if gui.Button(rl.Rectangle{X: 120, Y: panelY, Width: 120, Height: 30}, toggleText(useDark, "Light", "Dark")) {
			useDark = !useDark
		}

		rl.EndDrawing()
	}
}

func toRL(c color.RGBA) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
