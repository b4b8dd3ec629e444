package estimate_test

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exploration-planner/internal/config"
	"exploration-planner/internal/estimate"
	"exploration-planner/internal/frontier"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/subgoal"
)

// corridor returns a 10×3 ground truth with an optional wall column and an
// observed grid where columns 0..3 are known free.
func corridor(t *testing.T, wallX int) (truth, known *grid.Grid) {
	t.Helper()
	truth, err := grid.NewFilled(10, 3, 1, grid.Free)
	require.NoError(t, err)
	if wallX >= 0 {
		for y := 0; y < 3; y++ {
			truth.Set(wallX, y, grid.Occupied)
		}
	}
	known, err = grid.New(10, 3, 1)
	require.NoError(t, err)
	for y := 0; y < 3; y++ {
		for x := 0; x <= 3; x++ {
			known.Set(x, y, grid.Free)
		}
	}
	return truth, known
}

func TestOracle(t *testing.T) {
	goal := orb.Point{9, 1}

	t.Run("Feasible", func(t *testing.T) {
		truth, known := corridor(t, -1)
		fs := frontier.Find(known, 1)
		require.Len(t, fs, 1)

		o := estimate.NewOracle(truth, goal)
		o.ObserveSnapshot(known)
		est, err := o.Estimate(context.Background(), fs[0])
		require.NoError(t, err)
		assert.Equal(t, subgoal.Estimate{ProbFeasible: 1, DeltaSuccessCost: 6}, est)
	})

	t.Run("DeadEnd", func(t *testing.T) {
		truth, known := corridor(t, 6)
		fs := frontier.Find(known, 1)
		require.Len(t, fs, 1)

		o := estimate.NewOracle(truth, goal)
		o.ObserveSnapshot(known)
		est, err := o.Estimate(context.Background(), fs[0])
		require.NoError(t, err)
		assert.Equal(t, 0.0, est.ProbFeasible)
		assert.Equal(t, 4.0, est.ExplorationCost)
		assert.NoError(t, est.Validate())
	})

	t.Run("NoSnapshot", func(t *testing.T) {
		truth, known := corridor(t, -1)
		o := estimate.NewOracle(truth, goal)
		_, err := o.Estimate(context.Background(), frontier.Find(known, 1)[0])
		assert.ErrorIs(t, err, estimate.ErrNoSnapshot)
	})
}

func TestHeuristic(t *testing.T) {
	h := estimate.Heuristic{Goal: orb.Point{3, 4}, Prior: 0.3, FailureFactor: 1.5, Resolution: 0.5}
	f := frontier.Frontier{ID: 1, Cells: []grid.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}}, Target: orb.Point{0, 0}}

	est, err := h.Estimate(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, subgoal.Estimate{ProbFeasible: 0.3, DeltaSuccessCost: 5, ExplorationCost: 1.5}, est)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Estimate(ctx, f)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOracle_ImplementsObserver(t *testing.T) {
	var est subgoal.Estimator = estimate.NewOracle(nil, orb.Point{})
	_, ok := est.(subgoal.SnapshotObserver)
	assert.True(t, ok)
}

func TestFromConfig(t *testing.T) {
	truth, err := grid.NewFilled(4, 4, 0.5, grid.Free)
	require.NoError(t, err)
	cfg := config.DefaultConfig().Planner

	est, err := estimate.FromConfig(cfg, truth, orb.Point{1, 1})
	require.NoError(t, err)
	assert.IsType(t, &estimate.Oracle{}, est)

	cfg.Estimator = "heuristic"
	est, err = estimate.FromConfig(cfg, truth, orb.Point{1, 1})
	require.NoError(t, err)
	h, ok := est.(estimate.Heuristic)
	require.True(t, ok)
	assert.Equal(t, 0.5, h.Resolution)
	assert.Equal(t, cfg.HeuristicPrior, h.Prior)

	cfg.Estimator = "learned"
	_, err = estimate.FromConfig(cfg, truth, orb.Point{})
	assert.Error(t, err)

	cfg.Estimator = "oracle"
	_, err = estimate.FromConfig(cfg, nil, orb.Point{})
	assert.Error(t, err)
}
