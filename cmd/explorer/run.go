package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"exploration-planner/internal/explore"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/mapgen"
	"exploration-planner/internal/pose"
)

type runOptions struct {
	mapFile       string
	maze          mapgen.MazeSpec
	seed          int64
	minSeparation float64
	out           string
	format        string
	show          bool
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulated exploration session",
		Long: `Run a simulated exploration session on an ASCII map or a generated maze.
The robot starts with an unknown map and senses the ground truth as it
moves. Start and goal come from the map's S and G markers, or are sampled
when the map has none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, o)
		},
	}

	cmd.Flags().StringVar(&o.mapFile, "map", "", "ASCII map file")
	cmd.Flags().IntVar(&o.maze.Cols, "maze-cols", 0, "Generate a maze with this many room columns")
	cmd.Flags().IntVar(&o.maze.Rows, "maze-rows", 0, "Room rows of the generated maze")
	cmd.Flags().IntVar(&o.maze.PathWidth, "path-width", 3, "Maze corridor width in cells")
	cmd.Flags().IntVar(&o.maze.WallWidth, "wall-width", 1, "Maze wall thickness in cells")
	cmd.Flags().Int64Var(&o.seed, "seed", 1, "Random seed for maze and pose sampling")
	cmd.Flags().Float64Var(&o.minSeparation, "min-separation", 0, "Minimum distance between sampled start and goal")
	cmd.Flags().StringVar(&o.out, "out", "", "Write the session trace to this file")
	cmd.Flags().StringVar(&o.format, "format", "json", "Trace format (json|yaml)")
	cmd.Flags().BoolVar(&o.show, "show", false, "Print the final observed map")
	return cmd
}

func (a *app) run(cmd *cobra.Command, o *runOptions) error {
	if o.format != "json" && o.format != "yaml" {
		return fmt.Errorf("unsupported trace format %q", o.format)
	}
	rng := rand.New(rand.NewSource(o.seed))

	var truth *grid.Grid
	var start *pose.Pose
	var goal *orb.Point
	switch {
	case o.mapFile != "":
		m, err := a.loadMap(o.mapFile)
		if err != nil {
			return err
		}
		truth = m.Grid
		if m.Start != nil && m.Goal != nil {
			s := pose.FromPoint(truth.CellCenter(m.Start.X, m.Start.Y), 0)
			g := truth.CellCenter(m.Goal.X, m.Goal.Y)
			start, goal = &s, &g
		}
	case o.maze.Cols > 0:
		if o.maze.Rows <= 0 {
			o.maze.Rows = o.maze.Cols
		}
		o.maze.Resolution = a.resolution
		g, err := mapgen.Maze(o.maze, rng)
		if err != nil {
			return err
		}
		truth = g
	default:
		return errors.New("either --map or --maze-cols is required")
	}

	if start == nil || goal == nil {
		s, g, err := mapgen.StartGoal(truth, rng, mapgen.StartGoalOptions{
			InflationRadius: a.cfg.Planner.InflationRadius,
			MinSeparation:   o.minSeparation,
		})
		if err != nil {
			return err
		}
		gp := g.Point()
		start, goal = &s, &gp
	}

	session, state, runErr := explore.Simulate(cmd.Context(), truth, *start, *goal, a.cfg, a.logger)
	if session == nil {
		return runErr
	}
	trace := session.Trace()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session:  %s\n", trace.SessionID)
	fmt.Fprintf(out, "Start:    %s\n", *start)
	fmt.Fprintf(out, "Goal:     (%.3f, %.3f)\n", (*goal)[0], (*goal)[1])
	fmt.Fprintf(out, "State:    %s\n", state)
	fmt.Fprintf(out, "Cycles:   %d\n", len(trace.Cycles))
	fmt.Fprintf(out, "Distance: %.3f\n", trace.Distance())
	if o.show {
		fmt.Fprintln(out)
		fmt.Fprint(out, grid.FormatASCII(session.Grid()))
	}

	if o.out != "" {
		if err := writeTrace(&trace, o.out, o.format); err != nil {
			return err
		}
		fmt.Fprintf(out, "Trace:    %s\n", o.out)
	}
	return runErr
}

func writeTrace(t *explore.Trace, path, format string) error {
	if format == "json" {
		return explore.SaveTrace(t, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := explore.WriteTraceYAML(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
