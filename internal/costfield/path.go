package costfield

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"exploration-planner/internal/grid"
)

type pathOptions struct {
	flip     bool
	sparsify bool
}

// PathOption configures Field.Path.
type PathOption func(*pathOptions)

// Flip returns the path in reference→target order instead of target→reference.
func Flip() PathOption {
	return func(o *pathOptions) { o.flip = true }
}

// Sparsify keeps only the points where the path changes direction.
func Sparsify() PathOption {
	return func(o *pathOptions) { o.sparsify = true }
}

// Path follows the predecessor chain from the cell containing target back
// to a seed. It returns (false, nil) when the target is unreachable.
func (f *Field) Path(target orb.Point, opts ...PathOption) (bool, []orb.Point) {
	var o pathOptions
	for _, opt := range opts {
		opt(&o)
	}

	c, ok := f.cellOf(target)
	if !ok {
		return false, nil
	}
	idx := c.Y*f.width + c.X
	if math.IsInf(f.cost[idx], 1) {
		return false, nil
	}

	var cells []int
	for i := idx; i >= 0; i = f.prev[i] {
		cells = append(cells, i)
	}
	if o.sparsify {
		cells = f.sparsify(cells)
	}

	path := make([]orb.Point, len(cells))
	for i, cell := range cells {
		path[i] = f.center(cell)
	}
	if o.flip {
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
	}
	return true, path
}

// sparsify drops interior cells of straight runs.
func (f *Field) sparsify(cells []int) []int {
	if len(cells) <= 2 {
		return cells
	}
	delta := func(a, b int) grid.Cell {
		return grid.Cell{X: b%f.width - a%f.width, Y: b/f.width - a/f.width}
	}
	out := []int{cells[0]}
	for i := 1; i < len(cells)-1; i++ {
		if delta(cells[i-1], cells[i]) != delta(cells[i], cells[i+1]) {
			out = append(out, cells[i])
		}
	}
	return append(out, cells[len(cells)-1])
}

// PathBetween solves a field from `from` and returns the path from `from`
// to `to`. It returns ErrUnreachableGoal when no path exists.
func PathBetween(g *grid.Grid, from, to orb.Point, opts ...Option) ([]orb.Point, float64, error) {
	f, err := Solve(g, from, opts...)
	if err != nil {
		return nil, 0, err
	}
	ok, path := f.Path(to, Flip())
	if !ok {
		return nil, 0, fmt.Errorf("%w: (%.3f, %.3f)", ErrUnreachableGoal, to[0], to[1])
	}
	return path, f.Cost(to), nil
}

// Length returns the summed Euclidean length of a polyline.
func Length(path []orb.Point) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += math.Hypot(path[i][0]-path[i-1][0], path[i][1]-path[i-1][1])
	}
	return total
}
