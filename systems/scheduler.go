package systems

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/field"
	"github.com/pthm-cable/windfield/geo"
)

// PendingSet reports cells that already have a request outstanding.
type PendingSet interface {
	IsPending(c geo.Cell) bool
}

// Scheduler decides which grid cells must be fetched for a settled viewport.
// It keeps the cumulative rectangle already requested so that panning back
// over covered ground costs nothing.
type Scheduler struct {
	cfg     config.SchedulerConfig
	grid    *field.Grid
	pending PendingSet
	logger  *slog.Logger

	fetched geo.Bounds // Union of every requested rectangle
	last    geo.Bounds // Viewport that last triggered an expansion

	// holes is set once fetched may cover cells the grid does not hold,
	// either because a request was capped or because the grid evicted.
	holes     bool
	evictions int
}

// NewScheduler creates a scheduler over grid. pending may be nil.
func NewScheduler(cfg config.SchedulerConfig, grid *field.Grid, pending PendingSet, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		grid:    grid,
		pending: pending,
		logger:  logger,
	}
}

// FetchedBounds returns the cumulative requested rectangle.
func (s *Scheduler) FetchedBounds() geo.Bounds {
	return s.fetched
}

// RadiusFor returns the first-fetch radius in degrees for a zoom level.
func (s *Scheduler) RadiusFor(zoom float64) float64 {
	return config.Lookup(s.cfg.RadiusTiers, zoom)
}

// ExpansionFor returns the viewport span multiplier for a zoom level.
func (s *Scheduler) ExpansionFor(zoom float64) float64 {
	return config.Lookup(s.cfg.ExpansionTiers, zoom)
}

// OnViewportSettled returns the cell anchors to fetch for a settled viewport.
// user is the known user location, or nil.
func (s *Scheduler) OnViewportSettled(bounds geo.Bounds, zoom float64, user *geo.Point) []geo.Point {
	// First fetch centres a tiered square on the user
	if user != nil && s.fetched.IsZero() {
		square := geo.Square(*user, s.RadiusFor(zoom))
		s.fetched = square
		s.last = bounds
		points := s.missing(square, *user)
		s.logger.Debug("initial fetch around user",
			"lat", user.Lat, "lon", user.Lon, "zoom", zoom, "cells", len(points))
		return points
	}

	if n := s.grid.Evictions(); n != s.evictions {
		s.evictions = n
		s.holes = true
	}

	contained := !s.fetched.IsZero() && s.fetched.Contains(bounds)
	if contained || !s.MovedEnough(bounds) {
		if !s.holes {
			return nil
		}
		points := s.missing(bounds, bounds.Center())
		if len(points) > 0 {
			s.logger.Debug("refilling viewport holes", "zoom", zoom, "cells", len(points))
		}
		return points
	}

	expanded := bounds.Expand(s.ExpansionFor(zoom))
	s.fetched = s.fetched.Union(expanded)
	s.last = bounds

	points := s.missing(expanded, bounds.Center())
	s.logger.Debug("viewport expansion",
		"zoom", zoom, "cells", len(points),
		"fetched_north", s.fetched.North, "fetched_south", s.fetched.South,
		"fetched_east", s.fetched.East, "fetched_west", s.fetched.West)
	return points
}

// MovedEnough reports whether bounds differs from the last triggering
// viewport by more than the move threshold of its span, in centre or in size.
func (s *Scheduler) MovedEnough(bounds geo.Bounds) bool {
	if s.last.IsZero() {
		return true
	}
	prevLat, prevLon := s.last.LatSpan(), s.last.LonSpan()
	if prevLat <= 0 || prevLon <= 0 {
		return true
	}
	t := s.cfg.MoveThreshold

	pc, nc := s.last.Center(), bounds.Center()
	if math.Abs(nc.Lat-pc.Lat) > t*prevLat || math.Abs(nc.Lon-pc.Lon) > t*prevLon {
		return true
	}
	// Zooming out grows the span without moving the centre
	if math.Abs(bounds.LatSpan()-prevLat) > t*prevLat || math.Abs(bounds.LonSpan()-prevLon) > t*prevLon {
		return true
	}
	return false
}

// Missing returns the anchors of cells inside b that are neither cached nor pending.
// A capped result marks the fetched rectangle as holed.
func (s *Scheduler) Missing(b geo.Bounds) []geo.Point {
	return s.missing(b, b.Center())
}

// missing enumerates absent, non-pending cells inside b, nearest to center
// first, capped at the per-request maximum.
func (s *Scheduler) missing(b geo.Bounds, center geo.Point) []geo.Point {
	res := s.grid.Resolution()
	all := res.Cells(b)

	cells := all[:0]
	for _, c := range all {
		if s.grid.HasCell(c) {
			continue
		}
		if s.pending != nil && s.pending.IsPending(c) {
			continue
		}
		cells = append(cells, c)
	}

	if limit := s.cfg.MaxCellsPerRequest; limit > 0 && len(cells) > limit {
		res.NearestFirst(cells, center)
		s.logger.Debug("capping cell request", "requested", len(cells), "limit", limit)
		cells = cells[:limit]
		s.holes = true
	}

	points := make([]geo.Point, len(cells))
	for i, c := range cells {
		points[i] = res.Corner(c)
	}
	return points
}
