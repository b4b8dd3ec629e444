package explore

import (
	"context"
	"fmt"

	"exploration-planner/internal/grid"
	"exploration-planner/internal/pose"
)

// State is a stage of the exploration loop.
type State int

const (
	Observing State = iota
	Planning
	Moving
	GoalReached
	Exhausted
)

var stateNames = map[State]string{
	Observing:   "observing",
	Planning:    "planning",
	Moving:      "moving",
	GoalReached: "goal_reached",
	Exhausted:   "exhausted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == GoalReached || s == Exhausted
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("explore: unknown state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st, name := range stateNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("explore: unknown state %q", text)
}

// World is the robot and its sensor.
type World interface {
	// Pose returns the current robot pose.
	Pose() pose.Pose
	// MoveTo drives the robot to p. On error the pose reflects how far the
	// robot actually got.
	MoveTo(ctx context.Context, p pose.Pose) error
	// Cells returns the observations available inside r.
	Cells(ctx context.Context, r grid.Region) ([]grid.Observation, error)
}
