// Package world provides the robot/sensor side of an exploration session:
// a simulated world backed by a ground-truth grid and a live adapter fed
// from an external sensor stream.
package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"

	"exploration-planner/internal/geometry"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/pose"
)

// ErrBlocked indicates a move targets a cell the robot cannot occupy.
var ErrBlocked = errors.New("world: target cell is not traversable")

// rayShorten pulls a sensor ray's endpoint back toward the robot, as a
// fraction of the resolution, so a cell's own outline does not hide it.
const rayShorten = 0.75

// Simulated is a world whose sensor reveals ground-truth cells within line
// of sight. It is safe for concurrent use.
type Simulated struct {
	truth *grid.Grid
	index *geometry.EdgeIndex
	seq   *pose.Sequence

	mu   sync.Mutex
	pose pose.Pose
}

// NewSimulated builds a simulated world. The start pose must lie on a free
// truth cell.
func NewSimulated(truth *grid.Grid, start pose.Pose, seq *pose.Sequence) (*Simulated, error) {
	// Every wall occludes, including those of rooms the start cannot reach.
	outlines, err := geometry.Outlines(truth)
	if err != nil {
		return nil, fmt.Errorf("failed to build world geometry: %w", err)
	}
	if seq == nil {
		seq = &pose.Sequence{}
	}
	w := &Simulated{
		truth: truth,
		index: geometry.NewRingIndex(outlines),
		seq:   seq,
	}
	if !w.traversable(start.Point()) {
		return nil, fmt.Errorf("%w: start %s", ErrBlocked, start)
	}
	w.pose = seq.Stamp(start)
	return w, nil
}

// Truth returns the ground-truth grid.
func (w *Simulated) Truth() *grid.Grid {
	return w.truth
}

// Pose returns the current robot pose.
func (w *Simulated) Pose() pose.Pose {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pose
}

// MoveTo teleports the robot to p when its cell is free in the ground truth.
func (w *Simulated) MoveTo(ctx context.Context, p pose.Pose) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !w.traversable(p.Point()) {
		return fmt.Errorf("%w: %s", ErrBlocked, p)
	}
	w.mu.Lock()
	w.pose = w.seq.Stamp(p)
	w.mu.Unlock()
	return nil
}

// Cells returns the ground-truth state of every cell in r that is visible
// from the current pose.
func (w *Simulated) Cells(ctx context.Context, r grid.Region) ([]grid.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from := w.Pose().Point()
	shorten := rayShorten * w.truth.Resolution

	cells := w.truth.CellsIn(r)
	obs := make([]grid.Observation, 0, len(cells))
	for _, c := range cells {
		to := w.truth.CellCenter(c.X, c.Y)
		if !w.index.LineOfSight(from, pullBack(from, to, shorten)) {
			continue
		}
		obs = append(obs, grid.Observation{Cell: c, State: w.truth.At(c.X, c.Y)})
	}
	return obs, nil
}

func (w *Simulated) traversable(p orb.Point) bool {
	c, ok := w.truth.CellOf(p)
	return ok && w.truth.At(c.X, c.Y) == grid.Free
}

// pullBack moves to toward from by d, stopping at from.
func pullBack(from, to orb.Point, d float64) orb.Point {
	dx, dy := to[0]-from[0], to[1]-from[1]
	l := math.Hypot(dx, dy)
	if l <= d {
		return from
	}
	k := (l - d) / l
	return orb.Point{from[0] + dx*k, from[1] + dy*k}
}
