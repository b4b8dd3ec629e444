package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"exploration-planner/internal/grid"
)

// Rasterize marks every cell of g whose centre falls inside one of the
// polygons as occupied and returns the number of cells it set.
func Rasterize(g *grid.Grid, polygons []orb.Polygon) int {
	n := 0
	for _, poly := range polygons {
		if len(poly) == 0 {
			continue
		}
		b := poly.Bound()
		lo, _ := g.CellOf(b.Min)
		hi, _ := g.CellOf(b.Max)
		for y := max(lo.Y, 0); y <= min(hi.Y, g.Height-1); y++ {
			for x := max(lo.X, 0); x <= min(hi.X, g.Width-1); x++ {
				if g.At(x, y) == grid.Occupied {
					continue
				}
				if planar.PolygonContains(poly, g.CellCenter(x, y)) {
					g.Set(x, y, grid.Occupied)
					n++
				}
			}
		}
	}
	return n
}
