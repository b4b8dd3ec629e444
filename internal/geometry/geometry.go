// Package geometry converts occupancy grids into free-space polygons.
//
// Occupied cells are treated as squares of side Resolution. Their union is
// traced exactly along cell edges, so no polygon-union library is needed:
// every directed edge between an occupied and a non-occupied cell is emitted
// with the occupied cell on its left, and the edges are chained into rings.
// Cells outside the grid count as occupied, so every map is enclosed.
//
// The outline of the largest non-occupied region holding at least one free
// cell becomes the boundary and every occupied component inside it becomes
// an obstacle. Regions of unknown cells alone never become the boundary.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"exploration-planner/internal/grid"
)

// ErrGeometry indicates the grid yields no usable free-space boundary.
var ErrGeometry = errors.New("geometry: grid has no valid free-space boundary")

// bufferFraction is the outward growth applied to the occupied region, as a
// fraction of the grid resolution.
const bufferFraction = 0.001

// PolygonSet is the free-space boundary plus the obstacles inside it.
type PolygonSet struct {
	Boundary  orb.Polygon   `json:"boundary"`
	Obstacles []orb.Polygon `json:"obstacles"`
}

// corner is a lattice point between cells; corner (i,j) is the lower-left
// corner of cell (i,j).
type corner struct{ X, Y int }

// cellEdge is a directed cell edge with the occupied cell on its left and
// the non-occupied cell across on its right.
type cellEdge struct {
	from, to corner
	cell     grid.Cell
	across   grid.Cell
}

func (e cellEdge) dir() corner {
	return corner{e.to.X - e.from.X, e.to.Y - e.from.Y}
}

// tracedRing is a closed lattice ring plus a cell on each side of it.
type tracedRing struct {
	corners []corner // open: first corner is not repeated
	seed    grid.Cell
	open    grid.Cell
}

// Extract computes the boundary and obstacle polygons for g.
func Extract(g *grid.Grid) (PolygonSet, error) {
	if g == nil || g.Width == 0 || g.Height == 0 || g.Len() == 0 {
		return PolygonSet{}, fmt.Errorf("%w: empty grid", ErrGeometry)
	}
	if g.Count(grid.Free) == 0 {
		return PolygonSet{}, fmt.Errorf("%w: no free cells", ErrGeometry)
	}

	rings := traceRings(g)
	region, hasFree := openRegions(g)

	var (
		boundary     orb.Ring
		boundaryArea float64
		candidates   []candidate
	)
	frame := corner{-1, -1}
	for _, tr := range rings {
		ring := toWorldRing(g, tr.corners)
		switch ring.Orientation() {
		case orb.CW:
			// Outline of a non-occupied region.
			if !g.InBounds(tr.open.X, tr.open.Y) || !hasFree[region[g.Index(tr.open.X, tr.open.Y)]] {
				continue
			}
			if a := math.Abs(planar.Area(ring)); a > boundaryArea {
				boundary, boundaryArea = ring, a
			}
		case orb.CCW:
			if containsCorner(tr.corners, frame) {
				continue // exterior of the enclosing frame
			}
			candidates = append(candidates, candidate{
				ring: ring,
				seed: g.CellCenter(tr.seed.X, tr.seed.Y),
			})
		}
	}
	if boundary == nil {
		return PolygonSet{}, fmt.Errorf("%w: no free-space outline", ErrGeometry)
	}

	inside := candidates[:0]
	for _, c := range candidates {
		if planar.RingContains(boundary, c.seed) {
			inside = append(inside, c)
		}
	}
	inside = removeContained(inside)

	tol := g.Resolution * 1e-3
	buffer := g.Resolution * bufferFraction

	set := PolygonSet{
		Obstacles: make([]orb.Polygon, 0, len(inside)),
	}
	b := bufferRing(SimplifyRing(boundary, tol), buffer)
	b.Reverse() // holes of the occupied region run clockwise
	set.Boundary = orb.Polygon{b}

	for _, c := range inside {
		set.Obstacles = append(set.Obstacles, orb.Polygon{bufferRing(SimplifyRing(c.ring, tol), buffer)})
	}
	// Largest obstacles first, matching the boundary's area ordering.
	sort.SliceStable(set.Obstacles, func(i, j int) bool {
		return planar.Area(set.Obstacles[i]) > planar.Area(set.Obstacles[j])
	})

	return set, nil
}

// occupiedAt treats the one-cell frame around the grid as occupied and
// everything beyond the frame as open, so the frame has a finite exterior.
func occupiedAt(g *grid.Grid, x, y int) bool {
	if x < -1 || y < -1 || x > g.Width || y > g.Height {
		return false
	}
	return g.At(x, y) == grid.Occupied
}

// traceRings emits every occupied/non-occupied cell edge and chains them
// into closed rings.
func traceRings(g *grid.Grid) []tracedRing {
	var edges []cellEdge
	for y := -1; y <= g.Height; y++ {
		for x := -1; x <= g.Width; x++ {
			if !occupiedAt(g, x, y) {
				continue
			}
			cell := grid.Cell{X: x, Y: y}
			if !occupiedAt(g, x, y-1) {
				edges = append(edges, cellEdge{corner{x, y}, corner{x + 1, y}, cell, grid.Cell{X: x, Y: y - 1}})
			}
			if !occupiedAt(g, x+1, y) {
				edges = append(edges, cellEdge{corner{x + 1, y}, corner{x + 1, y + 1}, cell, grid.Cell{X: x + 1, Y: y}})
			}
			if !occupiedAt(g, x, y+1) {
				edges = append(edges, cellEdge{corner{x + 1, y + 1}, corner{x, y + 1}, cell, grid.Cell{X: x, Y: y + 1}})
			}
			if !occupiedAt(g, x-1, y) {
				edges = append(edges, cellEdge{corner{x, y + 1}, corner{x, y}, cell, grid.Cell{X: x - 1, Y: y}})
			}
		}
	}

	outgoing := make(map[corner][]int, len(edges))
	for i, e := range edges {
		outgoing[e.from] = append(outgoing[e.from], i)
	}

	// next picks the successor edge. Where two occupied cells touch only at a
	// corner there are two candidates; turning right joins them into one
	// component, the same result a buffered union of the squares gives.
	next := func(i int) int {
		e := edges[i]
		cands := outgoing[e.to]
		if len(cands) == 1 {
			return cands[0]
		}
		d := e.dir()
		right := corner{d.Y, -d.X}
		for _, c := range cands {
			if edges[c].dir() == right {
				return c
			}
		}
		return cands[0]
	}

	used := make([]bool, len(edges))
	var rings []tracedRing
	for start := range edges {
		if used[start] {
			continue
		}
		ring := tracedRing{seed: edges[start].cell, open: edges[start].across}
		for i := start; !used[i]; i = next(i) {
			used[i] = true
			ring.corners = append(ring.corners, edges[i].from)
		}
		ring.corners = mergeCollinear(ring.corners)
		if len(ring.corners) >= 3 {
			rings = append(rings, ring)
		}
	}
	return rings
}

// openRegions labels the 4-connected components of non-occupied cells and
// reports which components hold a free cell. Occupied cells are labelled -1.
// Diagonal neighbours stay apart, matching the right turn traceRings takes
// where two occupied cells touch at a corner.
func openRegions(g *grid.Grid) (label []int, hasFree []bool) {
	label = make([]int, g.Len())
	for i := range label {
		label[i] = -1
	}
	var queue []grid.Cell
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.At(x, y) == grid.Occupied || label[g.Index(x, y)] >= 0 {
				continue
			}
			id := len(hasFree)
			hasFree = append(hasFree, false)
			label[g.Index(x, y)] = id
			queue = append(queue[:0], grid.Cell{X: x, Y: y})
			for len(queue) > 0 {
				c := queue[0]
				queue = queue[1:]
				if g.At(c.X, c.Y) == grid.Free {
					hasFree[id] = true
				}
				for _, n := range [4]grid.Cell{{X: c.X + 1, Y: c.Y}, {X: c.X - 1, Y: c.Y}, {X: c.X, Y: c.Y + 1}, {X: c.X, Y: c.Y - 1}} {
					if !g.InBounds(n.X, n.Y) || g.At(n.X, n.Y) == grid.Occupied || label[g.Index(n.X, n.Y)] >= 0 {
						continue
					}
					label[g.Index(n.X, n.Y)] = id
					queue = append(queue, n)
				}
			}
		}
	}
	return label, hasFree
}

// Outlines returns every occupied/non-occupied outline of g except the
// exterior of the enclosing frame, simplified and buffered like the rings of
// Extract. Walls of regions outside the boundary are kept, so the result
// suits occlusion tests anywhere on the map.
func Outlines(g *grid.Grid) ([]orb.Ring, error) {
	if g == nil || g.Width == 0 || g.Height == 0 || g.Len() == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrGeometry)
	}
	tol := g.Resolution * 1e-3
	buffer := g.Resolution * bufferFraction
	frame := corner{-1, -1}

	var out []orb.Ring
	for _, tr := range traceRings(g) {
		ring := toWorldRing(g, tr.corners)
		if ring.Orientation() == orb.CCW && containsCorner(tr.corners, frame) {
			continue
		}
		out = append(out, bufferRing(SimplifyRing(ring, tol), buffer))
	}
	return out, nil
}

// mergeCollinear drops lattice corners where the ring does not turn,
// including across the closing edge.
func mergeCollinear(pts []corner) []corner {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]corner, 0, n)
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		cur := pts[i]
		nxt := pts[(i+1)%n]
		cross := (cur.X-prev.X)*(nxt.Y-cur.Y) - (cur.Y-prev.Y)*(nxt.X-cur.X)
		if cross != 0 {
			out = append(out, cur)
		}
	}
	return out
}

func containsCorner(pts []corner, c corner) bool {
	for _, p := range pts {
		if p == c {
			return true
		}
	}
	return false
}

// toWorldRing converts lattice corners into a closed world-coordinate ring.
func toWorldRing(g *grid.Grid, pts []corner) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{
			(float64(p.X)-0.5)*g.Resolution + g.XOffset,
			(float64(p.Y)-0.5)*g.Resolution + g.YOffset,
		})
	}
	return append(ring, ring[0])
}

// bufferRing offsets every edge of a closed ring by d to the right of its
// direction of travel, joining edges with mitred corners.
func bufferRing(r orb.Ring, d float64) orb.Ring {
	if len(r) < 4 || d == 0 {
		return r
	}
	pts := r[:len(r)-1]
	n := len(pts)
	normal := func(a, b orb.Point) orb.Point {
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			return orb.Point{}
		}
		return orb.Point{dy / l, -dx / l}
	}

	out := make(orb.Ring, 0, len(r))
	for i := 0; i < n; i++ {
		n1 := normal(pts[(i-1+n)%n], pts[i])
		n2 := normal(pts[i], pts[(i+1)%n])
		denom := 1 + n1[0]*n2[0] + n1[1]*n2[1]
		var off orb.Point
		if denom < 1e-9 {
			off = orb.Point{n1[0] * d, n1[1] * d}
		} else {
			off = orb.Point{(n1[0] + n2[0]) * d / denom, (n1[1] + n2[1]) * d / denom}
		}
		out = append(out, orb.Point{pts[i][0] + off[0], pts[i][1] + off[1]})
	}
	return append(out, out[0])
}

// Area returns the free area: boundary minus obstacles.
func (s PolygonSet) Area() float64 {
	a := planar.Area(s.Boundary)
	for _, o := range s.Obstacles {
		a -= planar.Area(o)
	}
	return a
}
