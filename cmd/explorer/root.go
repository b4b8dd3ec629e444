package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"exploration-planner/internal/config"
	"exploration-planner/internal/grid"
)

// app carries state shared by every subcommand once the config is loaded.
type app struct {
	configFile string
	resolution float64

	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "explorer",
		Short: "Subgoal-based exploration planner for partially known maps",
		Long: `explorer plans robot navigation through occupancy grids that are only
partially known. It orders frontier subgoals by expected cost and replans
as the map is revealed.`,
		PersistentPreRunE: a.loadConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to config file (YAML)")
	root.PersistentFlags().Float64Var(&a.resolution, "resolution", 1, "Cell size of ASCII maps")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newExtractCmd(a))
	root.AddCommand(newPlanCmd(a))
	return root
}

// loadConfig is called before any command runs to load configuration
func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	return nil
}

// loadMap reads an ASCII map file.
func (a *app) loadMap(path string) (*grid.ASCIIMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map: %w", err)
	}
	defer f.Close()
	return grid.ParseASCII(f, a.resolution)
}
