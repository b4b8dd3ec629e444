// Package frontier finds the boundaries between known-free and unknown
// space in an occupancy grid.
//
// A frontier cell is a free cell with at least one unknown 4-neighbour.
// Frontier cells are grouped into 8-connected clusters; each cluster is one
// candidate subgoal.
package frontier

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"exploration-planner/internal/grid"
)

var (
	orthogonal = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	all        = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

// Frontier is a connected cluster of frontier cells.
type Frontier struct {
	ID       int         `json:"id"`
	Cells    []grid.Cell `json:"cells"`
	Centroid orb.Point   `json:"centroid"`
	// Target is the member cell centre closest to the centroid; the robot
	// travels here to explore the frontier.
	Target orb.Point `json:"target"`
}

// Size returns the number of cells in the frontier.
func (f Frontier) Size() int {
	return len(f.Cells)
}

// IsFrontierCell reports whether (x, y) is free with an unknown 4-neighbour.
func IsFrontierCell(g *grid.Grid, x, y int) bool {
	if g.At(x, y) != grid.Free {
		return false
	}
	for _, d := range orthogonal {
		nx, ny := x+d[0], y+d[1]
		if g.InBounds(nx, ny) && g.At(nx, ny) == grid.Unknown {
			return true
		}
	}
	return false
}

// Find clusters the frontier cells of g. Clusters smaller than minSize are
// dropped. IDs are assigned in row-major order of each cluster's first cell.
func Find(g *grid.Grid, minSize int) []Frontier {
	if g == nil || g.Len() == 0 {
		return nil
	}
	seen := make([]bool, g.Len())
	var out []Frontier

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			i0 := g.Index(x, y)
			if seen[i0] || !IsFrontierCell(g, x, y) {
				continue
			}
			// BFS to collect the cluster
			queue := []int{i0}
			seen[i0] = true
			var cells []grid.Cell

			for qi := 0; qi < len(queue); qi++ {
				ux, uy := g.Coordinate(queue[qi])
				cells = append(cells, grid.Cell{X: ux, Y: uy})
				for _, d := range all {
					vx, vy := ux+d[0], uy+d[1]
					if !g.InBounds(vx, vy) {
						continue
					}
					vi := g.Index(vx, vy)
					if !seen[vi] && IsFrontierCell(g, vx, vy) {
						seen[vi] = true
						queue = append(queue, vi)
					}
				}
			}
			if len(cells) < minSize {
				continue
			}
			out = append(out, newFrontier(g, len(out), cells))
		}
	}
	return out
}

func newFrontier(g *grid.Grid, id int, cells []grid.Cell) Frontier {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})

	var cx, cy float64
	for _, c := range cells {
		p := g.CellCenter(c.X, c.Y)
		cx += p[0]
		cy += p[1]
	}
	n := float64(len(cells))
	centroid := orb.Point{cx / n, cy / n}

	best, bestDist := cells[0], math.Inf(1)
	for _, c := range cells {
		p := g.CellCenter(c.X, c.Y)
		if d := math.Hypot(p[0]-centroid[0], p[1]-centroid[1]); d < bestDist {
			best, bestDist = c, d
		}
	}

	return Frontier{
		ID:       id,
		Cells:    cells,
		Centroid: centroid,
		Target:   g.CellCenter(best.X, best.Y),
	}
}
