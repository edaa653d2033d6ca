package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windfield/geo"
)

// RaylibCanvas draws into an off-screen render texture that the desktop host
// composites above its map layer.
type RaylibCanvas struct {
	target rl.RenderTexture2D
	width  int32
	height int32
}

// NewRaylibCanvas allocates the render texture. Requires an open window.
func NewRaylibCanvas(width, height int32) *RaylibCanvas {
	return &RaylibCanvas{
		target: rl.LoadRenderTexture(width, height),
		width:  width,
		height: height,
	}
}

// Resize reallocates the render texture when the window size changes.
func (c *RaylibCanvas) Resize(width, height int32) {
	if width == c.width && height == c.height {
		return
	}
	rl.UnloadRenderTexture(c.target)
	c.target = rl.LoadRenderTexture(width, height)
	c.width = width
	c.height = height
}

func (c *RaylibCanvas) Size() geo.Size {
	return geo.Size{Width: float32(c.width), Height: float32(c.height)}
}

func (c *RaylibCanvas) BeginFrame() {
	rl.BeginTextureMode(c.target)
}

func (c *RaylibCanvas) EndFrame() {
	rl.EndTextureMode()
}

func (c *RaylibCanvas) Clear() {
	rl.ClearBackground(rl.Blank)
}

func (c *RaylibCanvas) Line(from, to geo.ScreenPoint, width float32, col color.RGBA) {
	rl.DrawLineEx(
		rl.Vector2{X: from.X, Y: from.Y},
		rl.Vector2{X: to.X, Y: to.Y},
		width,
		toRL(col),
	)
}

func (c *RaylibCanvas) Circle(center geo.ScreenPoint, radius float32, col color.RGBA) {
	rl.DrawCircleV(rl.Vector2{X: center.X, Y: center.Y}, radius, toRL(col))
}

func (c *RaylibCanvas) Text(text string, at geo.ScreenPoint, size int, col color.RGBA) {
	rl.DrawText(text, int32(at.X), int32(at.Y), int32(size), toRL(col))
}

// Draw composites the canvas onto the current target at the origin.
func (c *RaylibCanvas) Draw() {
	// Render textures are stored upside down
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(c.width), Height: -float32(c.height)}
	rl.DrawTextureRec(c.target.Texture, src, rl.Vector2{}, rl.White)
}

// Unload frees the render texture.
func (c *RaylibCanvas) Unload() {
	rl.UnloadRenderTexture(c.target)
}

func toRL(c color.RGBA) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
