package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"exploration-planner/internal/sequencing"
	"exploration-planner/internal/subgoal"
)

// planInput is the JSON document read by the plan command.
type planInput struct {
	Subgoals []subgoal.Subgoal `json:"subgoals"`
	Costs    map[int]float64   `json:"costs"`
	Backup   *float64          `json:"backup,omitempty"`
}

type planOutput struct {
	Plan       sequencing.Plan  `json:"plan"`
	Exhaustive *sequencing.Plan `json:"exhaustive,omitempty"`
}

func newPlanCmd(a *app) *cobra.Command {
	var exhaustive bool

	cmd := &cobra.Command{
		Use:   "plan [file]",
		Short: "Order subgoals by expected cost",
		Long: `Read subgoals and their travel costs as JSON (from a file or stdin) and
print the order that minimises expected cost.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				r = f
			}

			var in planInput
			if err := json.NewDecoder(r).Decode(&in); err != nil {
				return fmt.Errorf("failed to parse input: %w", err)
			}
			for _, sg := range in.Subgoals {
				if err := sg.Validate(); err != nil {
					return fmt.Errorf("subgoal %d: %w", sg.ID, err)
				}
			}
			backup := a.cfg.Planner.BackupCost
			if in.Backup != nil {
				backup = *in.Backup
			}
			if err := sequencing.CheckBackup(backup); err != nil {
				return err
			}

			out := planOutput{Plan: sequencing.Compute(in.Costs, in.Subgoals, backup)}
			if exhaustive {
				best, err := sequencing.Exhaustive(in.Costs, in.Subgoals, backup)
				if err != nil {
					return err
				}
				out.Exhaustive = &best
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&exhaustive, "exhaustive", false, "Also evaluate every order (at most 8 subgoals)")
	return cmd
}
