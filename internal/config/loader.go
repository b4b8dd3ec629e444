package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. EXPLORER_PLANNER_MAX_STEPS.
const EnvPrefix = "EXPLORER"

// Loader handles loading configuration from files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperLoader implements Loader using Viper.
type viperLoader struct {
	validator Validator
}

// NewLoader creates a new Loader instance.
func NewLoader(validator Validator) Loader {
	return &viperLoader{validator: validator}
}

// Load reads the YAML file at path. Keys missing from the file keep their
// default values; environment variables override both.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.decode(v)
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration with
// environment overrides applied.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		return l.decode(newViper())
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return l.decode(newViper())
	}
	return l.Load(path)
}

func (l *viperLoader) decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newViper returns a viper instance seeded with DefaultConfig and bound to
// the environment.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	defaults := map[string]any{
		"planner.connectivity":      d.Planner.Connectivity,
		"planner.unknown_passable":  d.Planner.UnknownPassable,
		"planner.inflation_radius":  d.Planner.InflationRadius,
		"planner.min_frontier_size": d.Planner.MinFrontierSize,
		"planner.backup_cost":       d.Planner.BackupCost,
		"planner.max_plan_attempts": d.Planner.MaxPlanAttempts,
		"planner.max_steps":         d.Planner.MaxSteps,
		"planner.replan_every_step": d.Planner.ReplanEveryStep,
		"planner.estimator":         d.Planner.Estimator,
		"planner.heuristic_prior":   d.Planner.HeuristicPrior,
		"planner.failure_factor":    d.Planner.FailureFactor,
		"sensor.range":              d.Sensor.Range,
		"motion.step_cells":         d.Motion.StepCells,
		"server.port":               d.Server.Port,
		"server.cors_origin":        d.Server.CORSOrigin,
		"logging.level":             d.Logging.Level,
		"logging.format":            d.Logging.Format,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}
