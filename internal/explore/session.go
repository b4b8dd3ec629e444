// Package explore runs the online exploration loop: observe, plan, move,
// repeat until the goal is reached or nothing is left to explore.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"exploration-planner/internal/config"
	"exploration-planner/internal/costfield"
	"exploration-planner/internal/frontier"
	"exploration-planner/internal/geometry"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/pose"
	"exploration-planner/internal/sequencing"
	"exploration-planner/internal/subgoal"
)

var (
	// ErrExhausted indicates no subgoal remains and the goal is unreachable.
	ErrExhausted = errors.New("explore: no subgoals remain and the goal is unreachable")

	// ErrStepLimit indicates Run stopped after MaxSteps moves.
	ErrStepLimit = errors.New("explore: step limit reached")
)

// Options tunes a session.
type Options struct {
	Connectivity    costfield.Connectivity
	UnknownPassable bool
	// InflationRadius grows obstacles by this many cells before planning.
	InflationRadius float64
	MinFrontierSize int
	BackupCost      float64
	// MaxPlanAttempts bounds consecutive failed planning cycles and the
	// number of first subgoals excluded within one cycle.
	MaxPlanAttempts int
	MaxSteps        int
	// ReplanEveryStep replans after every observation instead of only when
	// the path is invalidated or the target reached.
	ReplanEveryStep bool
	// StepCells is the number of waypoints travelled between observations.
	StepCells   int
	SensorRange float64
	Logger      *slog.Logger
}

// OptionsFromConfig maps loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Connectivity:    costfield.Connectivity(cfg.Planner.Connectivity),
		UnknownPassable: cfg.Planner.UnknownPassable,
		InflationRadius: cfg.Planner.InflationRadius,
		MinFrontierSize: cfg.Planner.MinFrontierSize,
		BackupCost:      cfg.Planner.BackupCost,
		MaxPlanAttempts: cfg.Planner.MaxPlanAttempts,
		MaxSteps:        cfg.Planner.MaxSteps,
		ReplanEveryStep: cfg.Planner.ReplanEveryStep,
		StepCells:       cfg.Motion.StepCells,
		SensorRange:     cfg.Sensor.Range,
		Logger:          logger,
	}
}

func (o *Options) setDefaults() {
	d := config.DefaultConfig()
	if o.Connectivity == 0 {
		o.Connectivity = costfield.Connectivity(d.Planner.Connectivity)
	}
	if o.MinFrontierSize <= 0 {
		o.MinFrontierSize = d.Planner.MinFrontierSize
	}
	if o.MaxPlanAttempts <= 0 {
		o.MaxPlanAttempts = d.Planner.MaxPlanAttempts
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.Planner.MaxSteps
	}
	if o.StepCells <= 0 {
		o.StepCells = d.Motion.StepCells
	}
	if o.SensorRange <= 0 {
		o.SensorRange = d.Sensor.Range
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Session owns the observed grid and drives one exploration run. Its
// methods are safe for concurrent use; observation merges may happen while
// a planning pass works on its snapshot.
type Session struct {
	id     string
	world  World
	est    subgoal.Estimator
	goal   orb.Point
	opts   Options
	frs    *frontier.Tracker
	logger *slog.Logger

	mu       sync.Mutex
	grid     *grid.Grid
	state    State
	path     []orb.Point // remaining waypoints, current cell excluded
	chosen   int
	steps    int
	failures int
	trace    Trace
}

// NewSession starts a session on the observed grid g, which the session
// takes ownership of.
func NewSession(g *grid.Grid, w World, est subgoal.Estimator, goal orb.Point, opts Options) (*Session, error) {
	if g == nil || g.Len() == 0 {
		return nil, grid.ErrEmptyGrid
	}
	if w == nil || est == nil {
		return nil, errors.New("explore: world and estimator are required")
	}
	if _, ok := g.CellOf(goal); !ok {
		return nil, fmt.Errorf("%w: goal (%.3f, %.3f)", costfield.ErrOutOfBounds, goal[0], goal[1])
	}
	opts.setDefaults()

	id := uuid.NewString()
	s := &Session{
		id:     id,
		world:  w,
		est:    est,
		goal:   goal,
		opts:   opts,
		frs:    frontier.NewTracker(),
		logger: opts.Logger.With("session", id),
		grid:   g,
		state:  Observing,
		chosen: -1,
		trace: Trace{
			SessionID: id,
			Goal:      goal,
			Poses:     []pose.Pose{w.Pose()},
			Final:     Observing,
		},
	}
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Grid returns a snapshot of the observed grid.
func (s *Session) Grid() *grid.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Snapshot()
}

// Trace returns a copy of the session history.
func (s *Session) Trace() Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.trace
	t.Poses = append([]pose.Pose(nil), s.trace.Poses...)
	t.Cycles = append([]Cycle(nil), s.trace.Cycles...)
	t.Final = s.state
	return t
}

// Merge folds observations into the grid and returns how many cells changed.
func (s *Session) Merge(obs []grid.Observation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Merge(obs)
}

// Run steps the session until it reaches a terminal state, MaxSteps moves
// have been made, or ctx is cancelled. It returns nil on GoalReached.
func (s *Session) Run(ctx context.Context) (State, error) {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return s.State(), err
		}
		if s.stepCount() >= s.opts.MaxSteps {
			return s.State(), ErrStepLimit
		}

		state, err := s.Step(ctx)
		switch {
		case state == GoalReached:
			return state, nil
		case state == Exhausted:
			return state, err
		case err != nil && ctx.Err() != nil:
			return state, ctx.Err()
		case err != nil:
			failures++
			s.logger.Warn("step failed", "state", state, "error", err)
			if failures > s.opts.MaxPlanAttempts {
				return state, fmt.Errorf("explore: giving up after %d consecutive failures: %w", failures, err)
			}
		default:
			failures = 0
		}
	}
}

func (s *Session) stepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// Step performs a single state transition and returns the new state.
func (s *Session) Step(ctx context.Context) (State, error) {
	switch st := s.State(); st {
	case Observing:
		return s.observe(ctx)
	case Planning:
		return s.plan(ctx)
	case Moving:
		return s.move(ctx)
	default:
		return st, nil
	}
}

func (s *Session) setState(st State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st != s.state {
		s.logger.Debug("transition", "from", s.state, "state", st)
	}
	s.state = st
	return st
}

func (s *Session) fieldOptions() []costfield.Option {
	opts := []costfield.Option{costfield.WithConnectivity(s.opts.Connectivity)}
	if s.opts.UnknownPassable {
		opts = append(opts, costfield.WithUnknownPassable())
	}
	return opts
}

// planningGrid snapshots the grid under the lock and inflates the copy.
func (s *Session) planningGrid() *grid.Grid {
	s.mu.Lock()
	snap := s.grid.Snapshot()
	s.mu.Unlock()
	if s.opts.InflationRadius > 0 {
		return snap.Inflate(s.opts.InflationRadius)
	}
	return snap
}

// observe merges the sensor view and decides whether to keep moving.
func (s *Session) observe(ctx context.Context) (State, error) {
	p := s.world.Pose()
	obs, err := s.world.Cells(ctx, grid.Region{Center: p.Point(), Radius: s.opts.SensorRange})
	if err != nil {
		return s.State(), fmt.Errorf("failed to observe: %w", err)
	}
	changed := s.Merge(obs)
	s.logger.Debug("observed", "cells", len(obs), "changed", changed)

	snap := s.planningGrid()
	if goalCell, _ := snap.CellOf(s.goal); snap.At(goalCell.X, goalCell.Y) == grid.Free {
		field, err := costfield.Solve(snap, p.Point(), s.fieldOptions()...)
		if err == nil {
			if ok, path := field.Path(s.goal, costfield.Flip()); ok {
				return s.finish(ctx, path[1:], field.Cost(s.goal))
			}
		}
	}

	s.mu.Lock()
	invalidated := false
	for _, wp := range s.path {
		if c, _ := s.grid.CellOf(wp); s.grid.At(c.X, c.Y) == grid.Occupied {
			invalidated = true
			break
		}
	}
	replan := invalidated || len(s.path) == 0 || s.opts.ReplanEveryStep
	chosen := s.chosen
	s.mu.Unlock()

	if invalidated {
		s.logger.Info("path invalidated by new obstacle", "subgoal", chosen)
	}
	if replan {
		return s.setState(Planning), nil
	}
	return s.setState(Moving), nil
}

// finish drives the final leg to the known, reachable goal.
func (s *Session) finish(ctx context.Context, path []orb.Point, cost float64) (State, error) {
	s.logger.Info("goal reachable", "cost", cost)
	if err := s.follow(ctx, path); err != nil {
		if ctx.Err() != nil {
			return s.State(), err
		}
		s.logger.Warn("final leg interrupted", "error", err)
		s.mu.Lock()
		s.path = nil
		s.mu.Unlock()
		return s.setState(Planning), err
	}
	s.logger.Info("goal reached", "distance", s.Trace().Distance())
	return s.setState(GoalReached), nil
}

// follow moves through the waypoints one at a time, recording each pose.
func (s *Session) follow(ctx context.Context, waypoints []orb.Point) error {
	for _, wp := range waypoints {
		next := pose.Heading(s.world.Pose(), wp)
		if err := s.world.MoveTo(ctx, next); err != nil {
			return err
		}
		s.mu.Lock()
		s.trace.Poses = append(s.trace.Poses, s.world.Pose())
		s.mu.Unlock()
	}
	return nil
}

// move advances up to StepCells waypoints along the committed path.
func (s *Session) move(ctx context.Context) (State, error) {
	s.mu.Lock()
	n := min(s.opts.StepCells, len(s.path))
	leg := append([]orb.Point(nil), s.path[:n]...)
	chosen := s.chosen
	s.steps++
	s.mu.Unlock()

	for i, wp := range leg {
		if err := s.follow(ctx, []orb.Point{wp}); err != nil {
			s.mu.Lock()
			s.path = s.path[i:]
			s.mu.Unlock()
			if ctx.Err() != nil {
				return s.State(), err
			}
			s.logger.Warn("move blocked", "subgoal", chosen, "error", err)
			return s.setState(Planning), err
		}
	}

	s.mu.Lock()
	s.path = s.path[n:]
	s.mu.Unlock()
	return s.setState(Observing), nil
}

// plan runs one planning cycle on a snapshot and commits to the first
// reachable subgoal of the optimal order.
func (s *Session) plan(ctx context.Context) (State, error) {
	p := s.world.Pose()
	cycle := Cycle{Step: s.stepCount(), Pose: p, Chosen: -1}

	state, err := s.planCycle(ctx, p, &cycle)
	if err != nil {
		cycle.Error = err.Error()
	}

	s.mu.Lock()
	s.trace.Cycles = append(s.trace.Cycles, cycle)
	if err == nil {
		s.failures = 0
		s.mu.Unlock()
		return s.setState(state), nil
	}
	if ctx.Err() != nil {
		s.mu.Unlock()
		return Planning, err
	}
	s.failures++
	exhausted := s.failures >= s.opts.MaxPlanAttempts || errors.Is(err, ErrExhausted)
	s.mu.Unlock()

	if exhausted {
		s.logger.Warn("exploration exhausted", "error", err)
		if !errors.Is(err, ErrExhausted) {
			err = fmt.Errorf("%w: %w", ErrExhausted, err)
		}
		return s.setState(Exhausted), err
	}
	return s.setState(Planning), err
}

func (s *Session) planCycle(ctx context.Context, p pose.Pose, cycle *Cycle) (State, error) {
	snap := s.planningGrid()

	// The polygons describe the known free space for the trace. Planning
	// itself runs on the grid through the cost field.
	set, err := geometry.Extract(snap)
	if err != nil {
		return Planning, err
	}
	cycle.Obstacles = len(set.Obstacles)
	cycle.OpenArea = set.Area()
	if err := set.Validate(); err != nil {
		s.logger.Debug("free-space polygons failed validation", "error", err)
	}

	field, err := costfield.Solve(snap, p.Point(), s.fieldOptions()...)
	if err != nil {
		return Planning, err
	}

	fs := s.frs.Assign(frontier.Find(snap, s.opts.MinFrontierSize))
	cycle.Frontiers = len(fs)
	if obs, ok := s.est.(subgoal.SnapshotObserver); ok {
		obs.ObserveSnapshot(snap)
	}

	s.mu.Lock()
	last := s.chosen
	s.mu.Unlock()
	subgoals, rejected, err := subgoal.FromEstimates(ctx, s.est, fs, last, s.logger)
	if err != nil {
		return Planning, err
	}
	cycle.Subgoals = subgoals
	cycle.Rejected = rejected

	targets := make(map[int]orb.Point, len(fs))
	costs := make(map[int]float64, len(fs))
	for _, f := range fs {
		targets[f.ID] = f.Target
		costs[f.ID] = field.Cost(f.Target)
	}

	for attempt := 0; attempt < s.opts.MaxPlanAttempts; attempt++ {
		plan := sequencing.Compute(costs, subgoals, s.opts.BackupCost)
		cycle.Plan = plan
		first, err := plan.First()
		if err != nil {
			return Exhausted, fmt.Errorf("%w: %w", ErrExhausted, err)
		}

		ok, path := field.Path(targets[first], costfield.Flip())
		if !ok || len(path) < 2 {
			// Unreachable or already here: drop it and order the rest.
			s.logger.Debug("excluding subgoal", "subgoal", first)
			delete(costs, first)
			continue
		}

		cycle.Chosen = first
		s.logger.Info("committed to subgoal",
			"subgoal", first,
			"cost", plan.FirstCost,
			"expected", plan.ExpectedCost,
			"candidates", len(plan.Order))

		s.mu.Lock()
		s.chosen = first
		s.path = path[1:]
		s.mu.Unlock()
		return Moving, nil
	}
	return Planning, fmt.Errorf("explore: no reachable subgoal after %d attempts", s.opts.MaxPlanAttempts)
}
