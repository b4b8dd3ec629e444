// Package mapgen generates ground-truth maps and feasible start/goal poses
// for simulated exploration runs.
package mapgen

import (
	"errors"
	"fmt"
	"math/rand"

	"exploration-planner/internal/grid"
)

// ErrBadMazeSpec indicates maze dimensions that cannot produce a map.
var ErrBadMazeSpec = errors.New("mapgen: invalid maze dimensions")

// MazeSpec describes a maze on a lattice of Cols×Rows rooms.
type MazeSpec struct {
	Cols, Rows int
	// PathWidth is the side of a room and the width of corridors, in cells.
	PathWidth int
	// WallWidth is the thickness of walls, in cells.
	WallWidth  int
	Resolution float64
}

// Size returns the grid dimensions of the maze.
func (s MazeSpec) Size() (width, height int) {
	pitch := s.PathWidth + s.WallWidth
	return s.Cols*pitch + s.WallWidth, s.Rows*pitch + s.WallWidth
}

// Maze carves a perfect maze with a randomised depth-first search: every
// room is reachable and there is exactly one route between two rooms.
func Maze(spec MazeSpec, rng *rand.Rand) (*grid.Grid, error) {
	if spec.Cols <= 0 || spec.Rows <= 0 || spec.PathWidth <= 0 || spec.WallWidth < 0 {
		return nil, fmt.Errorf("%w: %+v", ErrBadMazeSpec, spec)
	}
	w, h := spec.Size()
	g, err := grid.NewFilled(w, h, spec.Resolution, grid.Occupied)
	if err != nil {
		return nil, err
	}

	pitch := spec.PathWidth + spec.WallWidth
	carve := func(x0, y0, x1, y1 int) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				g.Set(x, y, grid.Free)
			}
		}
	}
	room := func(c grid.Cell) (x, y int) {
		return spec.WallWidth + c.X*pitch, spec.WallWidth + c.Y*pitch
	}

	visited := make([]bool, spec.Cols*spec.Rows)
	start := grid.Cell{X: rng.Intn(spec.Cols), Y: rng.Intn(spec.Rows)}
	visited[start.Y*spec.Cols+start.X] = true
	x, y := room(start)
	carve(x, y, x+spec.PathWidth, y+spec.PathWidth)

	stack := []grid.Cell{start}
	dirs := []grid.Cell{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		var options []grid.Cell
		for _, d := range dirs {
			n := grid.Cell{X: cur.X + d.X, Y: cur.Y + d.Y}
			if n.X >= 0 && n.X < spec.Cols && n.Y >= 0 && n.Y < spec.Rows && !visited[n.Y*spec.Cols+n.X] {
				options = append(options, n)
			}
		}
		if len(options) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		next := options[rng.Intn(len(options))]
		visited[next.Y*spec.Cols+next.X] = true
		cx, cy := room(cur)
		nx, ny := room(next)
		// The rectangle spanning both rooms includes the wall between them.
		carve(min(cx, nx), min(cy, ny), max(cx, nx)+spec.PathWidth, max(cy, ny)+spec.PathWidth)
		stack = append(stack, next)
	}
	return g, nil
}
