// Package grid holds the occupancy grid owned by an exploration session.
//
// Cells are stored row-major (index = y*Width + x). Cell (x, y) is centred at
// world coordinate (x*Resolution + XOffset, y*Resolution + YOffset) and covers
// half a resolution on every side of that centre.
//
// The grid only ever gains knowledge: merging observations never turns a known
// cell back into Unknown, and merging the same observations twice is a no-op.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Sentinel errors for grid operations.
var (
	// ErrEmptyGrid indicates a grid with no rows or no columns.
	ErrEmptyGrid = errors.New("grid: grid must have at least one row and one column")
	// ErrBadResolution indicates a non-positive or non-finite resolution.
	ErrBadResolution = errors.New("grid: resolution must be positive and finite")
	// ErrMalformedMap indicates an ASCII map that cannot be parsed.
	ErrMalformedMap = errors.New("grid: malformed map")
)

// State is the knowledge about a single cell.
type State uint8

const (
	Unknown State = iota
	Free
	Occupied
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Cell addresses a grid cell by column (X) and row (Y).
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Observation is a single sensed cell state.
type Observation struct {
	Cell  Cell  `json:"cell"`
	State State `json:"state"`
}

// Region is a circular sensor footprint in world coordinates.
type Region struct {
	Center orb.Point
	Radius float64
}

// Grid is a 2D occupancy grid with an affine cell→world mapping.
type Grid struct {
	Width      int
	Height     int
	Resolution float64
	XOffset    float64
	YOffset    float64
	cells      []State
}

// New creates a grid with every cell Unknown.
func New(width, height int, resolution float64) (*Grid, error) {
	return NewFilled(width, height, resolution, Unknown)
}

// NewFilled creates a grid with every cell set to s.
func NewFilled(width, height int, resolution float64, s State) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyGrid
	}
	if resolution <= 0 || math.IsInf(resolution, 0) || math.IsNaN(resolution) {
		return nil, fmt.Errorf("%w: %v", ErrBadResolution, resolution)
	}
	cells := make([]State, width*height)
	if s != Unknown {
		for i := range cells {
			cells[i] = s
		}
	}
	return &Grid{
		Width:      width,
		Height:     height,
		Resolution: resolution,
		cells:      cells,
	}, nil
}

// InBounds reports whether (x,y) lies within the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Index maps (x,y) to a row-major index.
func (g *Grid) Index(x, y int) int {
	return y*g.Width + x
}

// Coordinate converts a row-major index back to (x,y).
func (g *Grid) Coordinate(idx int) (x, y int) {
	return idx % g.Width, idx / g.Width
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// At returns the state of (x,y). Cells outside the grid read as Occupied.
func (g *Grid) At(x, y int) State {
	if !g.InBounds(x, y) {
		return Occupied
	}
	return g.cells[g.Index(x, y)]
}

// Set overwrites the state of (x,y). Out-of-range cells are ignored.
// Set is meant for map construction; sessions update through Merge.
func (g *Grid) Set(x, y int, s State) {
	if g.InBounds(x, y) {
		g.cells[g.Index(x, y)] = s
	}
}

// Merge applies observations and returns how many cells changed.
// Unknown observations never erase knowledge; repeated merges are no-ops.
func (g *Grid) Merge(obs []Observation) int {
	changed := 0
	for _, o := range obs {
		if o.State == Unknown || !g.InBounds(o.Cell.X, o.Cell.Y) {
			continue
		}
		i := g.Index(o.Cell.X, o.Cell.Y)
		if g.cells[i] != o.State {
			g.cells[i] = o.State
			changed++
		}
	}
	return changed
}

// Snapshot returns a deep copy of the grid.
func (g *Grid) Snapshot() *Grid {
	cp := *g
	cp.cells = make([]State, len(g.cells))
	copy(cp.cells, g.cells)
	return &cp
}

// Equal reports whether two grids have the same geometry and contents.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height || g.Resolution != o.Resolution ||
		g.XOffset != o.XOffset || g.YOffset != o.YOffset {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Count returns the number of cells in state s.
func (g *Grid) Count(s State) int {
	n := 0
	for _, c := range g.cells {
		if c == s {
			n++
		}
	}
	return n
}

// CellCenter returns the world coordinate of the centre of (x,y).
func (g *Grid) CellCenter(x, y int) orb.Point {
	return orb.Point{
		float64(x)*g.Resolution + g.XOffset,
		float64(y)*g.Resolution + g.YOffset,
	}
}

// CellOf returns the cell containing world point p and whether it is in bounds.
func (g *Grid) CellOf(p orb.Point) (Cell, bool) {
	c := Cell{
		X: int(math.Round((p[0] - g.XOffset) / g.Resolution)),
		Y: int(math.Round((p[1] - g.YOffset) / g.Resolution)),
	}
	return c, g.InBounds(c.X, c.Y)
}

// CellsIn returns every in-bounds cell whose centre lies inside r.
func (g *Grid) CellsIn(r Region) []Cell {
	if r.Radius < 0 {
		return nil
	}
	span := int(math.Ceil(r.Radius/g.Resolution)) + 1
	center, _ := g.CellOf(r.Center)
	r2 := r.Radius * r.Radius

	var out []Cell
	for y := center.Y - span; y <= center.Y+span; y++ {
		for x := center.X - span; x <= center.X+span; x++ {
			if !g.InBounds(x, y) {
				continue
			}
			c := g.CellCenter(x, y)
			dx, dy := c[0]-r.Center[0], c[1]-r.Center[1]
			if dx*dx+dy*dy <= r2 {
				out = append(out, Cell{X: x, Y: y})
			}
		}
	}
	return out
}

// Inflate returns a copy where every Free cell within radius cells of an
// Occupied cell becomes Occupied. Unknown cells are left alone so frontiers
// survive inflation.
func (g *Grid) Inflate(radius float64) *Grid {
	out := g.Snapshot()
	if radius <= 0 {
		return out
	}
	span := int(math.Ceil(radius))
	r2 := radius * radius
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.cells[g.Index(x, y)] != Occupied {
				continue
			}
			for dy := -span; dy <= span; dy++ {
				for dx := -span; dx <= span; dx++ {
					if float64(dx*dx+dy*dy) > r2 {
						continue
					}
					nx, ny := x+dx, y+dy
					if g.InBounds(nx, ny) && out.cells[out.Index(nx, ny)] == Free {
						out.cells[out.Index(nx, ny)] = Occupied
					}
				}
			}
		}
	}
	return out
}
