package world

import (
	"context"
	"sync"

	"exploration-planner/internal/grid"
	"exploration-planner/internal/pose"
)

// MoveFunc commands the physical robot and blocks until it arrives or ctx
// is cancelled.
type MoveFunc func(ctx context.Context, target pose.Pose) error

// LiveSensor adapts an external sensor stream to the planner. Observations
// arrive on a channel and are buffered until the planner asks for them.
type LiveSensor struct {
	move MoveFunc
	seq  *pose.Sequence

	mu      sync.Mutex
	pose    pose.Pose
	pending []grid.Observation
}

// NewLiveSensor creates a live world at start. move may be nil, in which
// case MoveTo only records the new pose.
func NewLiveSensor(start pose.Pose, move MoveFunc, seq *pose.Sequence) *LiveSensor {
	if seq == nil {
		seq = &pose.Sequence{}
	}
	return &LiveSensor{move: move, seq: seq, pose: seq.Stamp(start)}
}

// Feed buffers observations.
func (l *LiveSensor) Feed(obs ...grid.Observation) {
	l.mu.Lock()
	l.pending = append(l.pending, obs...)
	l.mu.Unlock()
}

// Consume feeds every batch received on ch until ch closes or ctx is done.
func (l *LiveSensor) Consume(ctx context.Context, ch <-chan []grid.Observation) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-ch:
			if !ok {
				return nil
			}
			l.Feed(batch...)
		}
	}
}

// Pose returns the last pose reached.
func (l *LiveSensor) Pose() pose.Pose {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pose
}

// MoveTo forwards the command and records the pose once it completes.
func (l *LiveSensor) MoveTo(ctx context.Context, p pose.Pose) error {
	if l.move != nil {
		if err := l.move(ctx, p); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	l.pose = l.seq.Stamp(p)
	l.mu.Unlock()
	return nil
}

// Cells drains the buffered observations. The region is ignored: a live
// sensor reports what it saw, and merging out-of-region cells is harmless.
func (l *LiveSensor) Cells(ctx context.Context, _ grid.Region) ([]grid.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.pending
	l.pending = nil
	return out, nil
}
