package explore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"exploration-planner/internal/pose"
	"exploration-planner/internal/sequencing"
	"exploration-planner/internal/subgoal"
)

// Cycle records one planning pass.
type Cycle struct {
	Step      int               `json:"step" yaml:"step"`
	Pose      pose.Pose         `json:"pose" yaml:"pose"`
	Obstacles int               `json:"obstacles" yaml:"obstacles"`
	OpenArea  float64           `json:"open_area" yaml:"open_area"`
	Frontiers int               `json:"frontiers" yaml:"frontiers"`
	Subgoals  []subgoal.Subgoal `json:"subgoals" yaml:"subgoals"`
	Rejected  []int             `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Plan      sequencing.Plan   `json:"plan" yaml:"plan"`
	Chosen    int               `json:"chosen" yaml:"chosen"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Trace is the history of a session.
type Trace struct {
	SessionID string      `json:"session_id" yaml:"session_id"`
	Goal      orb.Point   `json:"goal" yaml:"goal"`
	Poses     []pose.Pose `json:"poses" yaml:"poses"`
	Cycles    []Cycle     `json:"cycles" yaml:"cycles"`
	Final     State       `json:"final" yaml:"final"`
}

// Distance returns the length travelled along the recorded poses.
func (t Trace) Distance() float64 {
	total := 0.0
	for i := 1; i < len(t.Poses); i++ {
		total += pose.Distance(t.Poses[i-1], t.Poses[i])
	}
	return total
}

// SaveTrace writes the trace to a JSON file
func SaveTrace(t *Trace, filename string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadTrace reads a trace from a JSON file
func LoadTrace(filename string) (*Trace, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace: %w", err)
	}
	return &t, nil
}

// WriteTraceYAML encodes the trace as YAML.
func WriteTraceYAML(w io.Writer, t *Trace) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	return enc.Close()
}
