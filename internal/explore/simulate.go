package explore

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"

	"exploration-planner/internal/config"
	"exploration-planner/internal/estimate"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/pose"
	"exploration-planner/internal/world"
)

// Simulate runs a session from start to goal in a simulated world over
// truth. The robot starts knowing nothing of the map. The returned session
// holds the trace even when the run fails.
func Simulate(ctx context.Context, truth *grid.Grid, start pose.Pose, goal orb.Point, cfg *config.Config, logger *slog.Logger) (*Session, State, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	w, err := world.NewSimulated(truth, start, nil)
	if err != nil {
		return nil, Observing, err
	}
	known, err := grid.New(truth.Width, truth.Height, truth.Resolution)
	if err != nil {
		return nil, Observing, err
	}
	known.XOffset, known.YOffset = truth.XOffset, truth.YOffset

	est, err := estimate.FromConfig(cfg.Planner, truth, goal)
	if err != nil {
		return nil, Observing, err
	}
	s, err := NewSession(known, w, est, goal, OptionsFromConfig(cfg, logger))
	if err != nil {
		return nil, Observing, err
	}
	state, err := s.Run(ctx)
	return s, state, err
}
