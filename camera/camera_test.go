package camera

import (
	"math"
	"testing"

	"github.com/pthm-cable/windfield/geo"
)

func TestNew(t *testing.T) {
	cam := New(1280, 720, geo.Point{Lat: 52.5, Lon: 13.4}, 7)

	if cam.Lat != 52.5 || cam.Lon != 13.4 {
		t.Errorf("expected camera at (52.5, 13.4), got (%f, %f)", cam.Lat, cam.Lon)
	}
	if cam.Zoom != 7 {
		t.Errorf("expected zoom 7, got %f", cam.Zoom)
	}
}

func TestBoundsSpan(t *testing.T) {
	cam := New(256, 256, geo.Point{}, 2)

	// At zoom 2 the world is 1024px wide: 256px covers 90 degrees
	b := cam.Bounds()
	if math.Abs(b.LonSpan()-90) > 1e-9 || math.Abs(b.LatSpan()-90) > 1e-9 {
		t.Errorf("expected 90 degree spans, got %v x %v", b.LonSpan(), b.LatSpan())
	}
	if b.Center() != (geo.Point{}) {
		t.Errorf("bounds should be centred on the camera, got %+v", b.Center())
	}
}

func TestZoomHalvesSpan(t *testing.T) {
	cam := New(800, 600, geo.Point{Lat: 40, Lon: -3}, 6)
	before := cam.Bounds().LonSpan()
	cam.ZoomBy(1)
	after := cam.Bounds().LonSpan()

	if math.Abs(after-before/2) > 1e-9 {
		t.Errorf("zooming in one level should halve the span: %v -> %v", before, after)
	}
}

func TestScreenToGeoRoundtrip(t *testing.T) {
	cam := New(1280, 720, geo.Point{Lat: 52.5, Lon: 13.4}, 7)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},  // center
		{100, 100},  // top-left
		{1200, 600}, // near bottom-right
	}

	for _, tc := range testCases {
		p := cam.ScreenToGeo(tc.sx, tc.sy)
		s := cam.GeoToScreen(p)
		if math.Abs(float64(s.X-tc.sx)) > 0.01 || math.Abs(float64(s.Y-tc.sy)) > 0.01 {
			t.Errorf("roundtrip failed: (%f,%f) -> %+v -> %+v", tc.sx, tc.sy, p, s)
		}
	}

	center := cam.ScreenToGeo(640, 360)
	if math.Abs(center.Lat-52.5) > 1e-6 || math.Abs(center.Lon-13.4) > 1e-6 {
		t.Errorf("screen centre should map to the camera centre, got %+v", center)
	}
}

func TestPan(t *testing.T) {
	cam := New(1000, 1000, geo.Point{Lat: 10, Lon: 10}, 4)
	dpp := cam.DegreesPerPixel()

	cam.Pan(100, 0)
	if math.Abs(cam.Lon-(10+100*dpp)) > 1e-9 {
		t.Errorf("pan right should move east, lon=%v", cam.Lon)
	}

	cam.Pan(0, 100)
	if math.Abs(cam.Lat-(10-100*dpp)) > 1e-9 {
		t.Errorf("pan down should move south, lat=%v", cam.Lat)
	}
}

func TestLongitudeWraps(t *testing.T) {
	cam := New(100, 100, geo.Point{Lat: 0, Lon: 179}, 8)
	cam.Pan(float32(3/cam.DegreesPerPixel()), 0)

	if math.Abs(cam.Lon-(-178)) > 1e-6 {
		t.Errorf("expected longitude to wrap to -178, got %v", cam.Lon)
	}
}

func TestLatitudeClamped(t *testing.T) {
	cam := New(512, 512, geo.Point{Lat: 0, Lon: 0}, 3)
	cam.Pan(0, -1e6)

	if b := cam.Bounds(); b.North > maxLat+1e-9 {
		t.Errorf("view crossed the latitude limit: north=%v", b.North)
	}
}

func TestZoomClamped(t *testing.T) {
	cam := New(800, 600, geo.Point{}, 7)
	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected max zoom %v, got %v", cam.MaxZoom, cam.Zoom)
	}
	cam.SetZoom(-5)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected min zoom %v, got %v", cam.MinZoom, cam.Zoom)
	}
}

func TestReset(t *testing.T) {
	cam := New(800, 600, geo.Point{Lat: 1, Lon: 2}, 7)
	cam.Pan(300, 300)
	cam.ZoomBy(2)
	cam.Reset()

	if cam.Lat != 1 || cam.Lon != 2 || cam.Zoom != 7 {
		t.Errorf("reset should restore the initial view, got (%v, %v) z%v", cam.Lat, cam.Lon, cam.Zoom)
	}
}
