// Package config loads planner settings from YAML with environment overrides.
package config

import (
	"io"
	"log/slog"
	"strings"
)

// Config is the root configuration for the explorer.
type Config struct {
	Planner PlannerConfig `mapstructure:"planner" yaml:"planner"`
	Sensor  SensorConfig  `mapstructure:"sensor" yaml:"sensor"`
	Motion  MotionConfig  `mapstructure:"motion" yaml:"motion"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// PlannerConfig controls a planning cycle.
type PlannerConfig struct {
	// Connectivity is the cost-field adjacency, 4 or 8.
	Connectivity    int     `mapstructure:"connectivity" yaml:"connectivity" validate:"oneof=4 8"`
	UnknownPassable bool    `mapstructure:"unknown_passable" yaml:"unknown_passable"`
	InflationRadius float64 `mapstructure:"inflation_radius" yaml:"inflation_radius" validate:"gte=0"`
	MinFrontierSize int     `mapstructure:"min_frontier_size" yaml:"min_frontier_size" validate:"min=1"`
	BackupCost      float64 `mapstructure:"backup_cost" yaml:"backup_cost" validate:"gte=0"`
	MaxPlanAttempts int     `mapstructure:"max_plan_attempts" yaml:"max_plan_attempts" validate:"min=1"`
	MaxSteps        int     `mapstructure:"max_steps" yaml:"max_steps" validate:"min=1"`
	ReplanEveryStep bool    `mapstructure:"replan_every_step" yaml:"replan_every_step"`
	Estimator       string  `mapstructure:"estimator" yaml:"estimator" validate:"oneof=oracle heuristic"`
	HeuristicPrior  float64 `mapstructure:"heuristic_prior" yaml:"heuristic_prior" validate:"gte=0,lte=1"`
	FailureFactor   float64 `mapstructure:"failure_factor" yaml:"failure_factor" validate:"gte=0"`
}

// SensorConfig describes the simulated range sensor.
type SensorConfig struct {
	Range float64 `mapstructure:"range" yaml:"range" validate:"gt=0"`
}

// MotionConfig describes how far the robot moves between observations.
type MotionConfig struct {
	StepCells int `mapstructure:"step_cells" yaml:"step_cells" validate:"min=1"`
}

// ServerConfig configures the debug HTTP server.
type ServerConfig struct {
	Port       int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			Connectivity:    8,
			UnknownPassable: false,
			InflationRadius: 0,
			MinFrontierSize: 1,
			BackupCost:      1000,
			MaxPlanAttempts: 5,
			MaxSteps:        500,
			ReplanEveryStep: true,
			Estimator:       "oracle",
			HeuristicPrior:  0.5,
			FailureFactor:   2,
		},
		Sensor: SensorConfig{
			Range: 5,
		},
		Motion: MotionConfig{
			StepCells: 3,
		},
		Server: ServerConfig{
			Port:       8080,
			CORSOrigin: "*",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// NewLogger builds a slog logger writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
