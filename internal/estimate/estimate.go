// Package estimate provides subgoal estimators that stand in for a learned
// model: an oracle that reads the ground-truth map and a distance heuristic.
package estimate

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/paulmach/orb"

	"exploration-planner/internal/costfield"
	"exploration-planner/internal/frontier"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/subgoal"
)

// ErrNoSnapshot indicates Oracle.Estimate ran before ObserveSnapshot.
var ErrNoSnapshot = errors.New("estimate: no grid snapshot observed")

// Oracle answers with the true outcome of exploring a frontier. The goal is
// feasible through a frontier when it can be reached from the frontier
// cells through cells that are free in the ground truth and still unknown
// in the observed grid.
type Oracle struct {
	truth *grid.Grid
	goal  orb.Point

	mu    sync.Mutex
	known *grid.Grid
}

// NewOracle creates an oracle over the ground-truth grid.
func NewOracle(truth *grid.Grid, goal orb.Point) *Oracle {
	return &Oracle{truth: truth, goal: goal}
}

// ObserveSnapshot records the grid frontiers are extracted from.
func (o *Oracle) ObserveSnapshot(g *grid.Grid) {
	o.mu.Lock()
	o.known = g
	o.mu.Unlock()
}

// Estimate returns p = 1 and the remaining distance when the goal lies
// beyond the frontier, otherwise p = 0 and twice the depth of the dead end.
func (o *Oracle) Estimate(ctx context.Context, f frontier.Frontier) (subgoal.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return subgoal.Estimate{}, err
	}
	o.mu.Lock()
	known := o.known
	o.mu.Unlock()
	if known == nil {
		return subgoal.Estimate{}, ErrNoSnapshot
	}

	passable := func(x, y int) bool {
		return o.truth.At(x, y) == grid.Free && known.At(x, y) != grid.Free
	}
	field, err := costfield.SolveFrom(o.truth, f.Cells, costfield.WithPassable(passable))
	if err != nil {
		return subgoal.Estimate{}, err
	}

	if c := field.Cost(o.goal); !math.IsInf(c, 1) {
		return subgoal.Estimate{ProbFeasible: 1, DeltaSuccessCost: c}, nil
	}
	return subgoal.Estimate{ExplorationCost: 2 * field.MaxCost()}, nil
}

// Heuristic scores frontiers without a map: a fixed prior probability, the
// straight-line distance to the goal on success and a cost proportional to
// the frontier size on failure.
type Heuristic struct {
	Goal orb.Point
	// Prior is the probability assigned to every frontier.
	Prior float64
	// FailureFactor scales the frontier extent into an exploration cost.
	FailureFactor float64
	// Resolution converts cell counts into distance.
	Resolution float64
}

// Estimate implements subgoal.Estimator.
func (h Heuristic) Estimate(ctx context.Context, f frontier.Frontier) (subgoal.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return subgoal.Estimate{}, err
	}
	d := math.Hypot(h.Goal[0]-f.Target[0], h.Goal[1]-f.Target[1])
	return subgoal.Estimate{
		ProbFeasible:     h.Prior,
		DeltaSuccessCost: d,
		ExplorationCost:  h.FailureFactor * float64(f.Size()) * h.Resolution,
	}, nil
}
