// Package subgoal defines the candidate frontier targets scored by the
// sequencing optimizer and the estimator interface that scores them.
package subgoal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"exploration-planner/internal/frontier"
	"exploration-planner/internal/grid"
)

// ErrInvalidEstimate indicates an estimator returned unusable values.
var ErrInvalidEstimate = errors.New("subgoal: invalid estimate")

// Estimate is the learned (or oracle) prediction for one frontier.
type Estimate struct {
	// ProbFeasible is the probability the goal is reachable through the
	// frontier.
	ProbFeasible float64 `json:"prob_feasible" yaml:"prob_feasible"`
	// DeltaSuccessCost is the remaining cost to the goal when it is.
	DeltaSuccessCost float64 `json:"delta_success_cost" yaml:"delta_success_cost"`
	// ExplorationCost is the cost spent discovering a dead end when it is not.
	ExplorationCost float64 `json:"exploration_cost" yaml:"exploration_cost"`
}

// Validate checks the probability range and that both costs are finite and
// non-negative.
func (e Estimate) Validate() error {
	if math.IsNaN(e.ProbFeasible) || e.ProbFeasible < 0 || e.ProbFeasible > 1 {
		return fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidEstimate, e.ProbFeasible)
	}
	if !validCost(e.DeltaSuccessCost) {
		return fmt.Errorf("%w: success cost %v", ErrInvalidEstimate, e.DeltaSuccessCost)
	}
	if !validCost(e.ExplorationCost) {
		return fmt.Errorf("%w: exploration cost %v", ErrInvalidEstimate, e.ExplorationCost)
	}
	return nil
}

func validCost(c float64) bool {
	return !math.IsNaN(c) && !math.IsInf(c, 0) && c >= 0
}

// Subgoal is a frontier with its estimate attached.
type Subgoal struct {
	ID       int `json:"id" yaml:"id"`
	Estimate `yaml:",inline"`
	// FromLastChosen marks the subgoal chosen in the previous cycle.
	FromLastChosen bool `json:"from_last_chosen" yaml:"from_last_chosen"`
}

// New validates est and builds a subgoal.
func New(id int, est Estimate) (Subgoal, error) {
	if err := est.Validate(); err != nil {
		return Subgoal{}, fmt.Errorf("subgoal %d: %w", id, err)
	}
	return Subgoal{ID: id, Estimate: est}, nil
}

// Estimator predicts the outcome of exploring a frontier.
type Estimator interface {
	Estimate(ctx context.Context, f frontier.Frontier) (Estimate, error)
}

// SnapshotObserver is implemented by estimators that need the grid the
// frontiers were extracted from. It is called once per planning cycle,
// before any Estimate call, with a snapshot the estimator may keep.
type SnapshotObserver interface {
	ObserveSnapshot(g *grid.Grid)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(ctx context.Context, f frontier.Frontier) (Estimate, error)

// Estimate calls fn(ctx, f).
func (fn EstimatorFunc) Estimate(ctx context.Context, f frontier.Frontier) (Estimate, error) {
	return fn(ctx, f)
}

// FromEstimates scores every frontier and returns the valid subgoals plus the
// IDs of frontiers that were rejected. An estimator error or invalid
// estimate excludes only that frontier. lastChosen marks the subgoal chosen
// in the previous cycle; pass -1 when there is none. Only context
// cancellation aborts the whole batch.
func FromEstimates(ctx context.Context, est Estimator, fs []frontier.Frontier, lastChosen int, logger *slog.Logger) ([]Subgoal, []int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	subgoals := make([]Subgoal, 0, len(fs))
	var rejected []int
	for _, f := range fs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		e, err := est.Estimate(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.Warn("estimator failed", "subgoal", f.ID, "error", err)
			rejected = append(rejected, f.ID)
			continue
		}
		s, err := New(f.ID, e)
		if err != nil {
			logger.Warn("rejected estimate", "subgoal", f.ID, "error", err)
			rejected = append(rejected, f.ID)
			continue
		}
		s.FromLastChosen = f.ID == lastChosen
		subgoals = append(subgoals, s)
	}
	return subgoals, rejected, nil
}
