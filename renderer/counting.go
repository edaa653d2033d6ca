package renderer

import (
	"image/color"

	"github.com/pthm-cable/windfield/geo"
)

// CountingCanvas records draw calls without drawing. It backs the headless
// host and tests.
type CountingCanvas struct {
	W, H float32

	Frames  int
	Clears  int
	Lines   int // Lines since the last Clear
	Circles int
	Texts   []string

	LastWidth float32
	LastColor color.RGBA
}

// NewCountingCanvas creates a counting canvas of the given size.
func NewCountingCanvas(width, height float32) *CountingCanvas {
	return &CountingCanvas{W: width, H: height}
}

func (c *CountingCanvas) Size() geo.Size { return geo.Size{Width: c.W, Height: c.H} }

func (c *CountingCanvas) BeginFrame() {}

func (c *CountingCanvas) EndFrame() { c.Frames++ }

func (c *CountingCanvas) Clear() {
	c.Clears++
	c.Lines = 0
	c.Circles = 0
	c.Texts = c.Texts[:0]
}

func (c *CountingCanvas) Line(_, _ geo.ScreenPoint, width float32, col color.RGBA) {
	c.Lines++
	c.LastWidth = width
	c.LastColor = col
}

func (c *CountingCanvas) Circle(_ geo.ScreenPoint, _ float32, _ color.RGBA) {
	c.Circles++
}

func (c *CountingCanvas) Text(text string, _ geo.ScreenPoint, _ int, _ color.RGBA) {
	c.Texts = append(c.Texts, text)
}
