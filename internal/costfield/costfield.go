// Package costfield computes travel-cost fields over an occupancy grid.
//
// A Field holds the shortest travel distance from a reference cell to every
// cell of the grid, computed with Dijkstra's algorithm over 4- or
// 8-connected adjacency. Cells that cannot be reached hold +Inf.
package costfield

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"exploration-planner/internal/grid"
)

var (
	// ErrOutOfBounds indicates the reference point lies outside the grid.
	ErrOutOfBounds = errors.New("costfield: reference outside grid")

	// ErrUnreachableGoal indicates no traversable path reaches the target.
	ErrUnreachableGoal = errors.New("costfield: goal is unreachable")
)

// Connectivity selects the cell adjacency used by the wavefront.
type Connectivity int

const (
	// Conn4 links orthogonal neighbours only.
	Conn4 Connectivity = 4
	// Conn8 adds diagonal neighbours; diagonals may not cut an impassable corner.
	Conn8 Connectivity = 8
)

// step is a move to a neighbouring cell and its length in cells.
type step struct {
	dx, dy int
	length float64
}

var (
	orthogonal = []step{{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1}}
	diagonal   = []step{
		{1, 1, math.Sqrt2}, {-1, 1, math.Sqrt2},
		{1, -1, math.Sqrt2}, {-1, -1, math.Sqrt2},
	}
)

type options struct {
	conn     Connectivity
	passable func(g *grid.Grid, x, y int) bool
}

// Option configures Solve and SolveFrom.
type Option func(*options)

// WithConnectivity selects Conn4 or Conn8 adjacency.
func WithConnectivity(c Connectivity) Option {
	return func(o *options) { o.conn = c }
}

// WithPassable replaces the traversability test. The default allows free
// cells only.
func WithPassable(fn func(x, y int) bool) Option {
	return func(o *options) {
		o.passable = func(_ *grid.Grid, x, y int) bool { return fn(x, y) }
	}
}

// WithUnknownPassable treats unknown cells as traversable.
func WithUnknownPassable() Option {
	return func(o *options) {
		o.passable = func(g *grid.Grid, x, y int) bool { return g.At(x, y) != grid.Occupied }
	}
}

func freeOnly(g *grid.Grid, x, y int) bool {
	return g.At(x, y) == grid.Free
}

// Field is a solved cost field. It is read-only after Solve returns.
type Field struct {
	width, height int
	resolution    float64
	xOffset       float64
	yOffset       float64

	cost []float64
	prev []int // predecessor index toward the reference, -1 at seeds
}

// Solve computes the cost field from the cell containing ref.
func Solve(g *grid.Grid, ref orb.Point, opts ...Option) (*Field, error) {
	if g == nil || g.Len() == 0 {
		return nil, grid.ErrEmptyGrid
	}
	cell, ok := g.CellOf(ref)
	if !ok {
		return nil, fmt.Errorf("%w: (%.3f, %.3f)", ErrOutOfBounds, ref[0], ref[1])
	}
	return SolveFrom(g, []grid.Cell{cell}, opts...)
}

// SolveFrom computes the cost field seeded at every listed cell. Seeds hold
// cost zero whether or not they are passable; out-of-bounds seeds are
// ignored.
func SolveFrom(g *grid.Grid, seeds []grid.Cell, opts ...Option) (*Field, error) {
	if g == nil || g.Len() == 0 {
		return nil, grid.ErrEmptyGrid
	}
	o := options{conn: Conn8, passable: freeOnly}
	for _, opt := range opts {
		opt(&o)
	}
	if o.conn != Conn4 && o.conn != Conn8 {
		return nil, fmt.Errorf("costfield: unsupported connectivity %d", o.conn)
	}

	f := &Field{
		width:      g.Width,
		height:     g.Height,
		resolution: g.Resolution,
		xOffset:    g.XOffset,
		yOffset:    g.YOffset,
		cost:       make([]float64, g.Len()),
		prev:       make([]int, g.Len()),
	}
	for i := range f.cost {
		f.cost[i] = math.Inf(1)
		f.prev[i] = -1
	}

	pq := &queue{}
	heap.Init(pq)
	seeded := 0
	for _, s := range seeds {
		if !g.InBounds(s.X, s.Y) {
			continue
		}
		idx := g.Index(s.X, s.Y)
		if f.cost[idx] == 0 {
			continue
		}
		f.cost[idx] = 0
		heap.Push(pq, &item{cell: idx})
		seeded++
	}
	if seeded == 0 {
		return nil, fmt.Errorf("%w: no seed inside the grid", ErrOutOfBounds)
	}

	passable := func(x, y int) bool {
		return g.InBounds(x, y) && o.passable(g, x, y)
	}

	done := make([]bool, g.Len())
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*item)
		if done[cur.cell] {
			continue
		}
		done[cur.cell] = true
		x, y := g.Coordinate(cur.cell)

		relax := func(s step) {
			nx, ny := x+s.dx, y+s.dy
			if !passable(nx, ny) {
				return
			}
			n := g.Index(nx, ny)
			c := cur.cost + s.length*g.Resolution
			if c < f.cost[n] {
				f.cost[n] = c
				f.prev[n] = cur.cell
				heap.Push(pq, &item{cell: n, cost: c})
			}
		}

		for _, s := range orthogonal {
			relax(s)
		}
		if o.conn == Conn8 {
			for _, s := range diagonal {
				// No corner cutting: both orthogonal cells must be passable.
				if passable(x+s.dx, y) && passable(x, y+s.dy) {
					relax(s)
				}
			}
		}
	}
	return f, nil
}

// CostAt returns the cost of cell (x, y), +Inf when unreachable or out of
// bounds.
func (f *Field) CostAt(x, y int) float64 {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return math.Inf(1)
	}
	return f.cost[y*f.width+x]
}

// Cost returns the cost of the cell containing p.
func (f *Field) Cost(p orb.Point) float64 {
	c, ok := f.cellOf(p)
	if !ok {
		return math.Inf(1)
	}
	return f.CostAt(c.X, c.Y)
}

// Reachable reports whether the cell containing p has a finite cost.
func (f *Field) Reachable(p orb.Point) bool {
	return !math.IsInf(f.Cost(p), 1)
}

// MaxCost returns the largest finite cost in the field, 0 when only seeds
// are reachable.
func (f *Field) MaxCost() float64 {
	m := 0.0
	for _, c := range f.cost {
		if !math.IsInf(c, 1) && c > m {
			m = c
		}
	}
	return m
}

// ReachableCount returns the number of cells with finite cost.
func (f *Field) ReachableCount() int {
	n := 0
	for _, c := range f.cost {
		if !math.IsInf(c, 1) {
			n++
		}
	}
	return n
}

func (f *Field) cellOf(p orb.Point) (grid.Cell, bool) {
	x := int(math.Round((p[0] - f.xOffset) / f.resolution))
	y := int(math.Round((p[1] - f.yOffset) / f.resolution))
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return grid.Cell{}, false
	}
	return grid.Cell{X: x, Y: y}, true
}

func (f *Field) center(idx int) orb.Point {
	x, y := idx%f.width, idx/f.width
	return orb.Point{
		float64(x)*f.resolution + f.xOffset,
		float64(y)*f.resolution + f.yOffset,
	}
}
