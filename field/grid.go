// Package field holds the sparse wind grid and the continuous field sampled from it.
//
// Neither type is safe for concurrent use: both are owned by the overlay's
// processing goroutine, which is the only writer and reader.
package field

import (
	"sort"

	"github.com/pthm-cable/windfield/geo"
)

// evictFraction is the share of the capacity freed per eviction pass,
// so that eviction is not re-run on every write once the grid is full.
const evictFraction = 0.1

// Grid is a sparse store of wind vectors keyed by fixed-resolution cells.
type Grid struct {
	res       geo.Resolution
	cells     map[geo.Cell]geo.WindVector
	maxCells  int
	focus     geo.Point
	evictions int
}

// NewGrid creates an empty grid. maxCells <= 0 means unbounded.
func NewGrid(res geo.Resolution, maxCells int) *Grid {
	if res <= 0 {
		res = geo.DefaultResolution
	}
	return &Grid{
		res:      res,
		cells:    make(map[geo.Cell]geo.WindVector),
		maxCells: maxCells,
	}
}

// Resolution returns the fixed grid step.
func (g *Grid) Resolution() geo.Resolution {
	return g.res
}

// Get returns the vector stored for the cell containing (lat, lon).
func (g *Grid) Get(lat, lon float64) (geo.WindVector, bool) {
	v, ok := g.cells[g.res.Cell(lat, lon)]
	return v, ok
}

// Has reports whether the cell containing (lat, lon) holds a vector.
func (g *Grid) Has(lat, lon float64) bool {
	_, ok := g.cells[g.res.Cell(lat, lon)]
	return ok
}

// HasCell reports whether a cell holds a vector.
func (g *Grid) HasCell(c geo.Cell) bool {
	_, ok := g.cells[c]
	return ok
}

// Set stores v for the cell containing (lat, lon), overwriting any previous value.
func (g *Grid) Set(lat, lon float64, v geo.WindVector) {
	g.cells[g.res.Cell(lat, lon)] = v
	if g.maxCells > 0 && len(g.cells) > g.maxCells {
		g.evict()
	}
}

// Len returns the number of stored cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// Speeds returns the speed of every stored vector in m/s, in no particular order.
func (g *Grid) Speeds() []float64 {
	out := make([]float64, 0, len(g.cells))
	for _, v := range g.cells {
		out = append(out, v.Speed())
	}
	return out
}

// Evictions returns how many eviction passes have removed cells.
func (g *Grid) Evictions() int {
	return g.evictions
}

// SetFocus records the current viewport centre used to pick eviction victims.
func (g *Grid) SetFocus(p geo.Point) {
	g.focus = p
}

func (g *Grid) cell(c geo.Cell) (geo.WindVector, bool) {
	v, ok := g.cells[c]
	return v, ok
}

// evict drops the cells farthest from the focus point.
func (g *Grid) evict() {
	target := g.maxCells - int(float64(g.maxCells)*evictFraction)
	if target < 1 {
		target = 1
	}
	excess := len(g.cells) - target
	if excess <= 0 {
		return
	}

	type ranked struct {
		cell geo.Cell
		dist float64
	}
	all := make([]ranked, 0, len(g.cells))
	for c := range g.cells {
		all = append(all, ranked{cell: c, dist: geo.Distance(g.res.Corner(c), g.focus)})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].dist > all[j].dist
	})
	for _, r := range all[:excess] {
		delete(g.cells, r.cell)
	}
	g.evictions++
}
