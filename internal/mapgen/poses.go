package mapgen

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"exploration-planner/internal/costfield"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/pose"
)

var (
	// ErrNoFreeSpace indicates no free cell satisfies the clearance.
	ErrNoFreeSpace = errors.New("mapgen: no free cell with the requested clearance")

	// ErrNoFeasiblePoses indicates no connected start/goal pair was found.
	ErrNoFeasiblePoses = errors.New("mapgen: could not find a pair of poses that connect")
)

// Clearance returns, per cell, the travel distance to the nearest occupied
// cell or the map edge. Occupied cells hold 0.
func Clearance(g *grid.Grid) ([]float64, error) {
	var seeds []grid.Cell
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.At(x, y) == grid.Occupied {
				seeds = append(seeds, grid.Cell{X: x, Y: y})
			}
		}
	}

	out := make([]float64, g.Len())
	var field *costfield.Field
	if len(seeds) > 0 {
		var err error
		field, err = costfield.SolveFrom(g, seeds, costfield.WithPassable(func(int, int) bool { return true }))
		if err != nil {
			return nil, err
		}
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			edge := float64(min(x+1, y+1, g.Width-x, g.Height-y)) * g.Resolution
			d := edge
			if field != nil {
				d = math.Min(d, field.CostAt(x, y))
			}
			out[g.Index(x, y)] = d
		}
	}
	return out, nil
}

// RandomPose samples a free cell whose clearance is at least minClearance and
// returns a pose at its centre with a random heading.
func RandomPose(g *grid.Grid, rng *rand.Rand, minClearance float64) (pose.Pose, error) {
	cells, err := clearCells(g, minClearance)
	if err != nil {
		return pose.Pose{}, err
	}
	return poseIn(g, rng, cells), nil
}

// clearCells lists the free cells whose clearance is at least minClearance.
func clearCells(g *grid.Grid, minClearance float64) ([]grid.Cell, error) {
	dist, err := Clearance(g)
	if err != nil {
		return nil, err
	}
	var cells []grid.Cell
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.At(x, y) == grid.Free && dist[g.Index(x, y)] >= minClearance {
				cells = append(cells, grid.Cell{X: x, Y: y})
			}
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: %.3f", ErrNoFreeSpace, minClearance)
	}
	return cells, nil
}

func poseIn(g *grid.Grid, rng *rand.Rand, cells []grid.Cell) pose.Pose {
	c := cells[rng.Intn(len(cells))]
	return pose.FromPoint(g.CellCenter(c.X, c.Y), rng.Float64()*2*math.Pi)
}

// StartGoalOptions constrains start/goal sampling.
type StartGoalOptions struct {
	// InflationRadius grows obstacles, in cells, before the reachability check.
	InflationRadius float64
	MinClearance    float64
	// MinSeparation is the smallest straight-line start/goal distance.
	MinSeparation float64
	Attempts      int
}

// StartGoal samples start and goal poses connected through the inflated map.
// Clearance is computed once and every attempt draws from the same cells.
func StartGoal(g *grid.Grid, rng *rand.Rand, opts StartGoalOptions) (start, goal pose.Pose, err error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 1000
	}
	cells, err := clearCells(g, opts.MinClearance)
	if err != nil {
		return pose.Pose{}, pose.Pose{}, err
	}
	inflated := g.Inflate(opts.InflationRadius)

	for i := 0; i < opts.Attempts; i++ {
		start = poseIn(g, rng, cells)
		goal = poseIn(g, rng, cells)
		if pose.Distance(start, goal) < opts.MinSeparation {
			continue
		}

		field, err := costfield.Solve(inflated, goal.Point())
		if err != nil {
			return pose.Pose{}, pose.Pose{}, err
		}
		if ok, _ := field.Path(start.Point()); ok {
			return start, goal, nil
		}
	}
	return pose.Pose{}, pose.Pose{}, fmt.Errorf("%w after %d attempts", ErrNoFeasiblePoses, opts.Attempts)
}
