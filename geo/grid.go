package geo

import (
	"math"
	"sort"
)

// DefaultResolution is the default grid step in degrees.
const DefaultResolution Resolution = 0.5

// cellEpsilon absorbs float error so that a cell corner (index * R)
// always maps back to its own index.
const cellEpsilon = 1e-9

// Resolution is a fixed angular grid step in degrees.
type Resolution float64

// Cell is a grid key: integer cell indices at a given resolution.
// The cell's anchor is its south-west corner at (Lat*R, Lon*R).
type Cell struct {
	Lat int
	Lon int
}

// Cell derives the grid key for a coordinate by flooring to a multiple of r.
// Every key in the engine is derived here.
func (r Resolution) Cell(lat, lon float64) Cell {
	return Cell{
		Lat: r.index(lat),
		Lon: r.index(lon),
	}
}

func (r Resolution) index(v float64) int {
	return int(math.Floor(v/float64(r) + cellEpsilon))
}

// Corner returns the anchor coordinate of a cell.
func (r Resolution) Corner(c Cell) Point {
	return Point{
		Lat: float64(c.Lat) * float64(r),
		Lon: float64(c.Lon) * float64(r),
	}
}

// Cells enumerates the cells covering b. A rectangle whose north or east edge
// falls exactly on a grid line does not include the cell beyond that line.
func (r Resolution) Cells(b Bounds) []Cell {
	south := r.index(b.South)
	west := r.index(b.West)
	north := r.upper(b.North)
	east := r.upper(b.East)
	if north < south || east < west {
		return nil
	}

	cells := make([]Cell, 0, (north-south+1)*(east-west+1))
	for lat := south; lat <= north; lat++ {
		for lon := west; lon <= east; lon++ {
			cells = append(cells, Cell{Lat: lat, Lon: lon})
		}
	}
	return cells
}

// upper returns the last cell index whose anchor lies strictly below v,
// or the cell containing v when v is not on a grid line.
func (r Resolution) upper(v float64) int {
	return int(math.Ceil(v/float64(r)-cellEpsilon)) - 1
}

// NearestFirst sorts cells by distance of their anchor from center, closest first.
func (r Resolution) NearestFirst(cells []Cell, center Point) {
	sort.SliceStable(cells, func(i, j int) bool {
		return Distance(r.Corner(cells[i]), center) < Distance(r.Corner(cells[j]), center)
	})
}
