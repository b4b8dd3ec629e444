package estimate

import (
	"fmt"

	"github.com/paulmach/orb"

	"exploration-planner/internal/config"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/subgoal"
)

// FromConfig builds the estimator named by cfg.Estimator. The oracle needs
// the ground-truth grid; the heuristic only uses its resolution.
func FromConfig(cfg config.PlannerConfig, truth *grid.Grid, goal orb.Point) (subgoal.Estimator, error) {
	switch cfg.Estimator {
	case "", "oracle":
		if truth == nil {
			return nil, fmt.Errorf("estimate: oracle needs a ground-truth grid")
		}
		return NewOracle(truth, goal), nil
	case "heuristic":
		res := 1.0
		if truth != nil {
			res = truth.Resolution
		}
		return Heuristic{
			Goal:          goal,
			Prior:         cfg.HeuristicPrior,
			FailureFactor: cfg.FailureFactor,
			Resolution:    res,
		}, nil
	default:
		return nil, fmt.Errorf("estimate: unknown estimator %q", cfg.Estimator)
	}
}
