package geo

// Size is the pixel size of the drawing surface.
type Size struct {
	Width  float32
	Height float32
}

// Area returns the surface area in square pixels.
func (s Size) Area() float64 {
	return float64(s.Width) * float64(s.Height)
}

// ScreenToGeo linearly reprojects a screen position into the viewport.
// North-up, no rotation or pitch.
func ScreenToGeo(x, y float32, b Bounds, s Size) Point {
	if s.Width <= 0 || s.Height <= 0 {
		return b.Center()
	}
	fx := float64(x) / float64(s.Width)
	fy := float64(y) / float64(s.Height)
	return Point{
		Lat: b.North - fy*b.LatSpan(),
		Lon: b.West + fx*b.LonSpan(),
	}
}

// GeoToScreen is the inverse of ScreenToGeo.
func GeoToScreen(p Point, b Bounds, s Size) ScreenPoint {
	latSpan := b.LatSpan()
	lonSpan := b.LonSpan()
	if latSpan == 0 || lonSpan == 0 {
		return ScreenPoint{X: s.Width / 2, Y: s.Height / 2}
	}
	return ScreenPoint{
		X: float32((p.Lon - b.West) / lonSpan * float64(s.Width)),
		Y: float32((b.North - p.Lat) / latSpan * float64(s.Height)),
	}
}
